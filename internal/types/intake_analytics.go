package types

import (
	"time"

	"github.com/google/uuid"
)

// IntakeAnalyticsRecord is one start-to-completion-or-abandonment funnel
// measurement. It references the classification by value, not by foreign key,
// so the funnel survives even when no Client row is ever created.
//
// At most one of CompletedAt/AbandonedAt is ever set; once either is set the
// record is closed and never updated again.
type IntakeAnalyticsRecord struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Classification    Classification `gorm:"not null;index;column:classification" json:"classification"`
	StartedAt         time.Time      `gorm:"not null;column:started_at" json:"started_at"`
	CompletedAt       *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	AbandonedAt       *time.Time     `gorm:"column:abandoned_at" json:"abandoned_at,omitempty"`
	CompletionSeconds *int           `gorm:"column:completion_seconds" json:"completion_seconds,omitempty"`
	DropOffStep       *int           `gorm:"column:drop_off_step" json:"drop_off_step,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (IntakeAnalyticsRecord) TableName() string {
	return "intake_analytics_record"
}

func (r *IntakeAnalyticsRecord) Closed() bool {
	return r != nil && (r.CompletedAt != nil || r.AbandonedAt != nil)
}
