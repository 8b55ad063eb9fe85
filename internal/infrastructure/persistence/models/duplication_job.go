package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/safee-analytics/odoo/internal/domain/duplication"
)

// DuplicationJobModel stores the last known state of a duplication job
type DuplicationJobModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	SourceDB   string     `gorm:"column:source_db;type:varchar(128);not null"`
	NewDB      string     `gorm:"column:new_db;type:varchar(128);not null"`
	Neutralize bool       `gorm:"not null"`
	Status     string     `gorm:"type:varchar(16);not null;index"`
	Attempts   int        `gorm:"not null"`
	Error      string     `gorm:"type:text"`
	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
	StartedAt  *time.Time `gorm:"column:started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
}

// TableName returns the table name for GORM
func (DuplicationJobModel) TableName() string {
	return "duplication_jobs"
}

// ToDomain converts the model to a domain job
func (m *DuplicationJobModel) ToDomain() *duplication.Job {
	return &duplication.Job{
		ID:         m.ID,
		SourceDB:   m.SourceDB,
		NewDB:      m.NewDB,
		Neutralize: m.Neutralize,
		Status:     duplication.Status(m.Status),
		Attempts:   m.Attempts,
		Error:      m.Error,
		CreatedAt:  m.CreatedAt,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}

// DuplicationJobModelFromDomain converts a domain job to its model
func DuplicationJobModelFromDomain(j *duplication.Job) *DuplicationJobModel {
	return &DuplicationJobModel{
		ID:         j.ID,
		SourceDB:   j.SourceDB,
		NewDB:      j.NewDB,
		Neutralize: j.Neutralize,
		Status:     string(j.Status),
		Attempts:   j.Attempts,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
	}
}

// All returns every model of the gateway store, used by AutoMigrate in tests
func All() []any {
	return []any{&APIKeyModel{}, &WebhookDeliveryModel{}, &DuplicationJobModel{}}
}
