package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Client struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	FirstName       string         `gorm:"column:first_name" json:"first_name"`
	LastName        string         `gorm:"column:last_name" json:"last_name"`
	Phone           string         `gorm:"column:phone" json:"phone"`
	Classification  Classification `gorm:"not null;column:classification" json:"classification"`
	Goals           string         `gorm:"column:goals" json:"goals"`
	IntakeResponses datatypes.JSON `gorm:"column:intake_responses" json:"intake_responses"`
	CreatedAt       time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Client) TableName() string {
	return "client"
}
