// Package apikey models the long-lived integration keys issued for Odoo users.
package apikey

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/safee-analytics/odoo/internal/domain/shared"
)

// Scope values understood by Odoo's res.users.apikeys
const (
	ScopeRPC = "rpc"
)

// Key is the gateway's record of an issued key. The plaintext is never stored.
type Key struct {
	shared.BaseEntity
	Name       string
	Index      string
	Hash       string
	Scope      string
	Database   string
	UserID     int
	UserLogin  string
	OdooKeyID  int
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

// NewKey builds a key record for a freshly generated secret
func NewKey(db string, userID int, login, name, scope, index, hash string) (*Key, error) {
	if db == "" {
		return nil, shared.NewInvalidInputError("database is required")
	}
	if userID <= 0 {
		return nil, shared.NewInvalidInputError("user id is required")
	}
	if index == "" || hash == "" {
		return nil, shared.NewInvalidInputError("key index and hash are required")
	}
	if scope == "" {
		scope = ScopeRPC
	}
	return &Key{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Index:      index,
		Hash:       hash,
		Scope:      scope,
		Database:   db,
		UserID:     userID,
		UserLogin:  login,
	}, nil
}

// Active reports whether the key may still authenticate
func (k *Key) Active() bool {
	return k.RevokedAt == nil
}

// Revoke marks the key unusable
func (k *Key) Revoke() error {
	if k.RevokedAt != nil {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "API key already revoked")
	}
	now := time.Now().UTC()
	k.RevokedAt = &now
	k.MarkUpdated(now)
	return nil
}

// Touch records a successful authentication
func (k *Key) Touch(at time.Time) {
	at = at.UTC()
	k.LastUsedAt = &at
}

// Repository persists key records
type Repository interface {
	Save(ctx context.Context, key *Key) error
	FindByID(ctx context.Context, id uuid.UUID) (*Key, error)
	// FindActiveByIndex returns unrevoked keys sharing an index; the caller
	// verifies the hash of each.
	FindActiveByIndex(ctx context.Context, index string) ([]*Key, error)
	ListByUser(ctx context.Context, db string, userID int) ([]*Key, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	Revoke(ctx context.Context, id uuid.UUID) error
}
