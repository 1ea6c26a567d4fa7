package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IntakeProgress is the resumable draft of a client's questionnaire. At most
// one row per client; superseded by completion, never hard-deleted.
type IntakeProgress struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null;column:client_id" json:"client_id"`
	PathID      string         `gorm:"column:path_id" json:"path_id"`
	CurrentStep int            `gorm:"not null;default:0;column:current_step" json:"current_step"`
	TotalSteps  int            `gorm:"not null;default:0;column:total_steps" json:"total_steps"`
	Answers     datatypes.JSON `gorm:"column:answers" json:"answers"`
	IsComplete  bool           `gorm:"not null;default:false;column:is_complete" json:"is_complete"`
	LastSavedAt time.Time      `gorm:"not null;column:last_saved_at" json:"last_saved_at"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (IntakeProgress) TableName() string {
	return "intake_progress"
}
