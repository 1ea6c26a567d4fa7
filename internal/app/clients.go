package app

import (
	"fmt"

	"github.com/thrivewell/wellness-backend/internal/clients/gcp"
	"github.com/thrivewell/wellness-backend/internal/clients/redisx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/platform/sendgrid"
)

type Clients struct {
	Bucket gcp.BucketService
	Cache  redisx.ProgressCache
	Mail   sendgrid.Client
}

// wireClients builds the external clients. The bucket is required; cache and
// mail degrade to disabled when unconfigured.
func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring external clients...")

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	var cache redisx.ProgressCache
	if cfg.CacheEnabled {
		cache, err = redisx.NewProgressCache(log)
		if err != nil {
			log.Warn("Progress cache unavailable, continuing without it", "error", err)
			cache = nil
		}
	}

	var mail sendgrid.Client
	if cfg.MailEnabled {
		mail, err = sendgrid.NewFromEnv(log)
		if err != nil {
			log.Warn("Mail client unavailable, notifications disabled", "error", err)
			mail = nil
		}
	}

	return Clients{
		Bucket: bucket,
		Cache:  cache,
		Mail:   mail,
	}, nil
}
