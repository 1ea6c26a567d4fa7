package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Packet struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID          uuid.UUID      `gorm:"type:uuid;not null;index;column:client_id" json:"client_id"`
	Type              PacketType     `gorm:"not null;index:idx_packet_client_type;column:type" json:"type"`
	Status            PacketStatus   `gorm:"not null;column:status" json:"status"`
	Content           datatypes.JSON `gorm:"column:content" json:"content,omitempty"`
	DocURL            *string        `gorm:"column:doc_url" json:"doc_url,omitempty"`
	PDFURL            *string        `gorm:"column:pdf_url" json:"pdf_url,omitempty"`
	LastError         *string        `gorm:"column:last_error" json:"last_error,omitempty"`
	RetryCount        int            `gorm:"not null;default:0;column:retry_count" json:"retry_count"`
	Version           int            `gorm:"not null;default:1;column:version" json:"version"`
	PreviousVersionID *uuid.UUID     `gorm:"type:uuid;column:previous_version_id" json:"previous_version_id,omitempty"`
	SentAt            *time.Time     `gorm:"column:sent_at" json:"sent_at,omitempty"`
	// Revision is an internal optimistic-concurrency counter. Every write to
	// the row must carry the revision it read; a mismatch aborts the write.
	Revision  int       `gorm:"not null;default:0;column:revision" json:"-"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Packet) TableName() string {
	return "packet"
}
