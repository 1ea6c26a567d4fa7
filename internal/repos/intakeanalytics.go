package repos

import (
	"errors"

	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type IntakeAnalyticsRepo interface {
	Create(dbc dbctx.Context, record *types.IntakeAnalyticsRecord) error
	// GetLatestOpen returns the most recently started record for the
	// classification with neither terminal timestamp set, or nil.
	GetLatestOpen(dbc dbctx.Context, classification types.Classification) (*types.IntakeAnalyticsRecord, error)
	Update(dbc dbctx.Context, record *types.IntakeAnalyticsRecord) error
}

type intakeAnalyticsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIntakeAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) IntakeAnalyticsRepo {
	return &intakeAnalyticsRepo{db: db, log: baseLog.With("repo", "IntakeAnalyticsRepo")}
}

func (ar *intakeAnalyticsRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return ar.db.WithContext(dbc.Ctx)
}

func (ar *intakeAnalyticsRepo) Create(dbc dbctx.Context, record *types.IntakeAnalyticsRecord) error {
	if record == nil {
		return errors.New("record required")
	}
	return ar.conn(dbc).Create(record).Error
}

func (ar *intakeAnalyticsRepo) GetLatestOpen(dbc dbctx.Context, classification types.Classification) (*types.IntakeAnalyticsRecord, error) {
	var out types.IntakeAnalyticsRecord
	if err := ar.conn(dbc).
		Where("classification = ? AND completed_at IS NULL AND abandoned_at IS NULL", classification).
		Order("started_at DESC").
		First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (ar *intakeAnalyticsRepo) Update(dbc dbctx.Context, record *types.IntakeAnalyticsRecord) error {
	if record == nil {
		return errors.New("record required")
	}
	return ar.conn(dbc).Save(record).Error
}
