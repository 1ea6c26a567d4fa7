package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PacketTemplate defines the section layout a packet of a given
// type+classification follows when rendered. At most one template per
// (type, classification) pair is marked default.
type PacketTemplate struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Type           PacketType     `gorm:"not null;index:idx_template_type_classification;column:type" json:"type"`
	Classification Classification `gorm:"not null;index:idx_template_type_classification;column:classification" json:"classification"`
	Name           string         `gorm:"not null;column:name" json:"name"`
	Sections       datatypes.JSON `gorm:"column:sections" json:"sections"`
	IsDefault      bool           `gorm:"not null;default:false;column:is_default" json:"is_default"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (PacketTemplate) TableName() string {
	return "packet_template"
}
