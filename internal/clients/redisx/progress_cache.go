package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/types"
)

// ProgressCache is a read-through cache in front of the intake progress
// store. Autosaves arrive every few seconds while a client types, so the
// hot-path read on page reload is served from redis.
type ProgressCache interface {
	Get(ctx context.Context, clientID uuid.UUID) (*types.IntakeProgress, bool, error)
	Set(ctx context.Context, progress *types.IntakeProgress) error
	Invalidate(ctx context.Context, clientID uuid.UUID) error
	Close() error
}

type progressCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewProgressCache(log *logger.Logger) (ProgressCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &progressCache{
		log: log.With("service", "ProgressCache"),
		rdb: rdb,
		ttl: 15 * time.Minute,
	}, nil
}

func progressKey(clientID uuid.UUID) string {
	return "intake:progress:" + clientID.String()
}

func (pc *progressCache) Get(ctx context.Context, clientID uuid.UUID) (*types.IntakeProgress, bool, error) {
	if pc == nil || pc.rdb == nil {
		return nil, false, fmt.Errorf("progress cache not initialized")
	}
	raw, err := pc.rdb.Get(ctx, progressKey(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var out types.IntakeProgress
	if err := json.Unmarshal(raw, &out); err != nil {
		// A corrupt entry is dropped, not surfaced; the store is authoritative.
		pc.log.Warn("Dropping unreadable progress cache entry", "client_id", clientID, "error", err)
		_ = pc.rdb.Del(ctx, progressKey(clientID)).Err()
		return nil, false, nil
	}
	return &out, true, nil
}

func (pc *progressCache) Set(ctx context.Context, progress *types.IntakeProgress) error {
	if pc == nil || pc.rdb == nil {
		return fmt.Errorf("progress cache not initialized")
	}
	if progress == nil || progress.ClientID == uuid.Nil {
		return fmt.Errorf("progress with client id required")
	}
	raw, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return pc.rdb.Set(ctx, progressKey(progress.ClientID), raw, pc.ttl).Err()
}

func (pc *progressCache) Invalidate(ctx context.Context, clientID uuid.UUID) error {
	if pc == nil || pc.rdb == nil {
		return fmt.Errorf("progress cache not initialized")
	}
	return pc.rdb.Del(ctx, progressKey(clientID)).Err()
}

func (pc *progressCache) Close() error {
	if pc == nil || pc.rdb == nil {
		return nil
	}
	return pc.rdb.Close()
}
