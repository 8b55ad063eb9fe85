package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps of records the gateway owns
// itself. Odoo records keep their integer ids and never embed it.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh id and UTC timestamps
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// MarkUpdated moves UpdatedAt forward
func (e *BaseEntity) MarkUpdated(at time.Time) {
	e.UpdatedAt = at.UTC()
}
