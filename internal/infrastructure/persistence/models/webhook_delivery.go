package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/safee-analytics/odoo/internal/domain/webhook"
)

// WebhookDeliveryModel is one row of the delivery log
type WebhookDeliveryModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Channel    string    `gorm:"type:varchar(16);not null"`
	Event      string    `gorm:"type:varchar(32);not null"`
	Model      string    `gorm:"type:varchar(128);index"`
	RecordID   int       `gorm:"column:record_id"`
	Database   string    `gorm:"column:db_name;type:varchar(128);index"`
	Target     string    `gorm:"type:text"`
	StatusCode int       `gorm:"column:status_code"`
	Success    bool      `gorm:"not null;index"`
	Error      string    `gorm:"type:text"`
	DurationMs int64     `gorm:"column:duration_ms"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (WebhookDeliveryModel) TableName() string {
	return "webhook_deliveries"
}

// ToDomain converts the model to a domain delivery
func (m *WebhookDeliveryModel) ToDomain() *webhook.Delivery {
	return &webhook.Delivery{
		ID:         m.ID,
		Channel:    webhook.Channel(m.Channel),
		Event:      webhook.EventType(m.Event),
		Model:      m.Model,
		RecordID:   m.RecordID,
		Database:   m.Database,
		Target:     m.Target,
		StatusCode: m.StatusCode,
		Success:    m.Success,
		Error:      m.Error,
		Duration:   time.Duration(m.DurationMs) * time.Millisecond,
		CreatedAt:  m.CreatedAt,
	}
}

// WebhookDeliveryModelFromDomain converts a domain delivery to its model
func WebhookDeliveryModelFromDomain(d *webhook.Delivery) *WebhookDeliveryModel {
	return &WebhookDeliveryModel{
		ID:         d.ID,
		Channel:    string(d.Channel),
		Event:      string(d.Event),
		Model:      d.Model,
		RecordID:   d.RecordID,
		Database:   d.Database,
		Target:     d.Target,
		StatusCode: d.StatusCode,
		Success:    d.Success,
		Error:      d.Error,
		DurationMs: d.Duration.Milliseconds(),
		CreatedAt:  d.CreatedAt,
	}
}
