package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type IntakeProgressRepo interface {
	Upsert(dbc dbctx.Context, progress *types.IntakeProgress) error
	GetByClientID(dbc dbctx.Context, clientID uuid.UUID) (*types.IntakeProgress, error)
}

type intakeProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIntakeProgressRepo(db *gorm.DB, baseLog *logger.Logger) IntakeProgressRepo {
	return &intakeProgressRepo{db: db, log: baseLog.With("repo", "IntakeProgressRepo")}
}

func (ir *intakeProgressRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return ir.db.WithContext(dbc.Ctx)
}

func (ir *intakeProgressRepo) Upsert(dbc dbctx.Context, progress *types.IntakeProgress) error {
	if progress == nil || progress.ClientID == uuid.Nil {
		return errors.New("progress with client id required")
	}
	return ir.conn(dbc).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"path_id", "current_step", "total_steps", "answers",
			"is_complete", "last_saved_at", "updated_at",
		}),
	}).Create(progress).Error
}

func (ir *intakeProgressRepo) GetByClientID(dbc dbctx.Context, clientID uuid.UUID) (*types.IntakeProgress, error) {
	var out types.IntakeProgress
	if err := ir.conn(dbc).Where("client_id = ?", clientID).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
