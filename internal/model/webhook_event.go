package model

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent archives verified payment-platform deliveries for audit.
type WebhookEvent struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement"`
	Provider        string         `gorm:"size:20;not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	ProviderEventID string         `gorm:"column:provider_event_id;size:191;not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType       string         `gorm:"column:event_type;size:100;index;not null"`
	Payload         datatypes.JSON `gorm:"not null"`
	SignatureValid  bool           `gorm:"column:signature_valid;not null;default:false"`
	ProcessedAt     *time.Time     `gorm:"column:processed_at"`
	ProcessingError string         `gorm:"column:processing_error;type:text"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
