package apikey

import (
	"time"

	"github.com/google/uuid"

	"github.com/safee-analytics/odoo/internal/domain/apikey"
)

// GenerateInput is the body of POST /api/generate_key
type GenerateInput struct {
	DB              string `json:"db"`
	AdminLogin      string `json:"admin_login"`
	AdminPassword   string `json:"admin_password"`
	TargetUserLogin string `json:"target_user_login"`
	TargetUserID    int    `json:"target_user_id"`
	Name            string `json:"name"`
	Scope           string `json:"scope"`
}

// GenerateResult carries the plaintext token once
type GenerateResult struct {
	OK        bool      `json:"ok"`
	UserID    int       `json:"user_id"`
	UserLogin string    `json:"user_login"`
	Name      string    `json:"name"`
	Scope     string    `json:"scope"`
	Token     string    `json:"token"`
	ID        int       `json:"id"`
	KeyID     uuid.UUID `json:"key_id"`
}

// KeyInfo describes a key without its secret
type KeyInfo struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Scope      string     `json:"scope"`
	Index      string     `json:"index"`
	Database   string     `json:"db"`
	UserID     int        `json:"user_id"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

func keyInfoFrom(k *apikey.Key) KeyInfo {
	return KeyInfo{
		ID:         k.ID,
		Name:       k.Name,
		Scope:      k.Scope,
		Index:      k.Index,
		Database:   k.Database,
		UserID:     k.UserID,
		Active:     k.Active(),
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
		RevokedAt:  k.RevokedAt,
	}
}
