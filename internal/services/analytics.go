package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/repos"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type AnalyticsOutcome string

const (
	OutcomeCompleted AnalyticsOutcome = "completed"
	OutcomeAbandoned AnalyticsOutcome = "abandoned"
)

// AnalyticsService records intake funnel events. It is advisory telemetry:
// callers never let its errors fail a primary flow.
type AnalyticsService interface {
	Open(ctx context.Context, classification types.Classification) (*types.IntakeAnalyticsRecord, error)
	// Close stamps the most recently opened record for the classification.
	// Returns (nil, nil) when no record is open; closing twice is a no-op by
	// construction because a closed record is never selected again.
	Close(ctx context.Context, classification types.Classification, outcome AnalyticsOutcome, dropOffStep *int) (*types.IntakeAnalyticsRecord, error)
}

type analyticsService struct {
	db            *gorm.DB
	log           *logger.Logger
	analyticsRepo repos.IntakeAnalyticsRepo
}

func NewAnalyticsService(db *gorm.DB, log *logger.Logger, analyticsRepo repos.IntakeAnalyticsRepo) AnalyticsService {
	return &analyticsService{
		db:            db,
		log:           log.With("service", "AnalyticsService"),
		analyticsRepo: analyticsRepo,
	}
}

func (as *analyticsService) Open(ctx context.Context, classification types.Classification) (*types.IntakeAnalyticsRecord, error) {
	if !classification.Valid() {
		return nil, fmt.Errorf("unknown classification %q", classification)
	}
	record := &types.IntakeAnalyticsRecord{
		ID:             uuid.New(),
		Classification: classification,
		StartedAt:      time.Now().UTC(),
	}
	if err := as.analyticsRepo.Create(dbctx.Context{Ctx: ctx}, record); err != nil {
		return nil, fmt.Errorf("open analytics record: %w", err)
	}
	as.log.Debug("Opened intake funnel record", "classification", classification, "record_id", record.ID)
	return record, nil
}

func (as *analyticsService) Close(ctx context.Context, classification types.Classification, outcome AnalyticsOutcome, dropOffStep *int) (*types.IntakeAnalyticsRecord, error) {
	if !classification.Valid() {
		return nil, fmt.Errorf("unknown classification %q", classification)
	}
	if outcome != OutcomeCompleted && outcome != OutcomeAbandoned {
		return nil, fmt.Errorf("unknown outcome %q", outcome)
	}

	var out *types.IntakeAnalyticsRecord
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		record, err := as.analyticsRepo.GetLatestOpen(dbc, classification)
		if err != nil {
			return err
		}
		if record == nil {
			return nil
		}

		now := time.Now().UTC()
		switch outcome {
		case OutcomeCompleted:
			record.CompletedAt = &now
			secs := int(now.Sub(record.StartedAt).Seconds())
			record.CompletionSeconds = &secs
		case OutcomeAbandoned:
			record.AbandonedAt = &now
			record.DropOffStep = dropOffStep
		}
		if err := as.analyticsRepo.Update(dbc, record); err != nil {
			return err
		}
		out = record
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("close analytics record: %w", err)
	}
	if out == nil {
		as.log.Debug("No open funnel record to close", "classification", classification, "outcome", outcome)
	}
	return out, nil
}
