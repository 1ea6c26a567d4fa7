package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/clients/redisx"
	"github.com/thrivewell/wellness-backend/internal/pkg/apierr"
	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/repos"
	"github.com/thrivewell/wellness-backend/internal/requestdata"
	"github.com/thrivewell/wellness-backend/internal/sanitize"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type SaveProgressInput struct {
	PathID         string
	CurrentStep    int
	TotalSteps     int
	Answers        map[string]any
	IsComplete     bool
	FirstName      string
	LastName       string
	Classification types.Classification
}

// ProgressService is the durable, resumable draft of in-progress intake
// answers. Progress is always scoped to the authenticated client taken from
// the request context.
type ProgressService interface {
	Save(ctx context.Context, in SaveProgressInput) (*types.IntakeProgress, error)
	// Load returns (nil, nil) for a client with no saved progress.
	Load(ctx context.Context) (*types.IntakeProgress, error)
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	clientRepo   repos.ClientRepo
	progressRepo repos.IntakeProgressRepo
	analytics    AnalyticsService
	cache        redisx.ProgressCache
	loadGroup    singleflight.Group
}

func NewProgressService(
	db *gorm.DB,
	log *logger.Logger,
	clientRepo repos.ClientRepo,
	progressRepo repos.IntakeProgressRepo,
	analytics AnalyticsService,
	cache redisx.ProgressCache,
) ProgressService {
	return &progressService{
		db:           db,
		log:          log.With("service", "ProgressService"),
		clientRepo:   clientRepo,
		progressRepo: progressRepo,
		analytics:    analytics,
		cache:        cache,
	}
}

func (ps *progressService) Save(ctx context.Context, in SaveProgressInput) (*types.IntakeProgress, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.ClientID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated client")
	}

	if in.CurrentStep < 0 {
		return nil, apierr.Validation("current step must not be negative")
	}
	if in.TotalSteps < 0 {
		return nil, apierr.Validation("total steps must not be negative")
	}
	if in.TotalSteps > 0 && in.CurrentStep > in.TotalSteps {
		return nil, apierr.Validation("current step %d exceeds total steps %d", in.CurrentStep, in.TotalSteps)
	}
	if in.Classification != "" && !in.Classification.Valid() {
		return nil, apierr.Validation("unknown classification %q", in.Classification)
	}

	answersJSON, err := marshalAnswers(sanitize.StringMap(in.Answers))
	if err != nil {
		return nil, apierr.Validation("unreadable answers payload: %v", err)
	}

	var (
		out       *types.IntakeProgress
		firstSave bool
		openedFor types.Classification
	)
	err = ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		client, err := ps.clientRepo.GetByID(dbc, rd.ClientID)
		if err != nil {
			return fmt.Errorf("load client: %w", err)
		}
		if client == nil {
			// First contact: the intake form runs before a profile exists, so
			// persist a minimal one now.
			if in.Classification == "" {
				return apierr.Validation("classification required on first save")
			}
			client = &types.Client{
				ID:             rd.ClientID,
				Email:          rd.Email,
				FirstName:      sanitize.String(in.FirstName),
				LastName:       sanitize.String(in.LastName),
				Classification: in.Classification,
			}
			if err := ps.clientRepo.Create(dbc, client); err != nil {
				return fmt.Errorf("create minimal client: %w", err)
			}
		}

		existing, err := ps.progressRepo.GetByClientID(dbc, rd.ClientID)
		if err != nil {
			return fmt.Errorf("load existing progress: %w", err)
		}
		firstSave = existing == nil

		progress := &types.IntakeProgress{
			ClientID:    rd.ClientID,
			PathID:      sanitize.String(in.PathID),
			CurrentStep: in.CurrentStep,
			TotalSteps:  in.TotalSteps,
			Answers:     answersJSON,
			IsComplete:  in.IsComplete,
			LastSavedAt: time.Now().UTC(),
		}
		if existing != nil {
			progress.ID = existing.ID
			progress.CreatedAt = existing.CreatedAt
		} else {
			progress.ID = uuid.New()
		}
		if err := ps.progressRepo.Upsert(dbc, progress); err != nil {
			return fmt.Errorf("upsert progress: %w", err)
		}

		openedFor = client.Classification
		out = progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Funnel open is advisory: a failure here never fails the save.
	if firstSave {
		if _, aerr := ps.analytics.Open(ctx, openedFor); aerr != nil {
			ps.log.Warn("Failed to open funnel record", "client_id", rd.ClientID, "error", aerr)
		}
	}

	// Drop the stale cache entry; the next Load repopulates it from the store.
	if ps.cache != nil {
		if cerr := ps.cache.Invalidate(ctx, rd.ClientID); cerr != nil {
			ps.log.Warn("Failed to invalidate progress cache", "client_id", rd.ClientID, "error", cerr)
		}
	}

	return out, nil
}

func (ps *progressService) Load(ctx context.Context) (*types.IntakeProgress, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.ClientID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated client")
	}

	v, err, _ := ps.loadGroup.Do(rd.ClientID.String(), func() (any, error) {
		if ps.cache != nil {
			cached, hit, cerr := ps.cache.Get(ctx, rd.ClientID)
			if cerr != nil {
				ps.log.Warn("Progress cache read failed, falling back to store", "client_id", rd.ClientID, "error", cerr)
			} else if hit {
				return cached, nil
			}
		}

		progress, err := ps.progressRepo.GetByClientID(dbctx.Context{Ctx: ctx}, rd.ClientID)
		if err != nil {
			return nil, fmt.Errorf("load progress: %w", err)
		}
		if progress != nil && ps.cache != nil {
			if cerr := ps.cache.Set(ctx, progress); cerr != nil {
				ps.log.Warn("Failed to populate progress cache", "client_id", rd.ClientID, "error", cerr)
			}
		}
		return progress, nil
	})
	if err != nil {
		return nil, err
	}
	progress, _ := v.(*types.IntakeProgress)
	return progress, nil
}

func marshalAnswers(answers map[string]any) (datatypes.JSON, error) {
	if answers == nil {
		return nil, nil
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
