package models

import (
	"time"

	"github.com/safee-analytics/odoo/internal/domain/apikey"
)

// APIKeyModel mirrors a key inserted into Odoo's res_users_apikeys
type APIKeyModel struct {
	EntityColumns
	Name       string     `gorm:"type:varchar(255);not null"`
	Index      string     `gorm:"column:key_index;type:varchar(8);not null;index"`
	Hash       string     `gorm:"type:varchar(255);not null"`
	Scope      string     `gorm:"type:varchar(64);not null"`
	Database   string     `gorm:"column:db_name;type:varchar(128);not null;index:idx_api_keys_user"`
	UserID     int        `gorm:"not null;index:idx_api_keys_user"`
	UserLogin  string     `gorm:"type:varchar(255)"`
	OdooKeyID  int        `gorm:"column:odoo_key_id"`
	LastUsedAt *time.Time `gorm:"column:last_used_at"`
	RevokedAt  *time.Time `gorm:"column:revoked_at"`
}

// TableName returns the table name for GORM
func (APIKeyModel) TableName() string {
	return "api_keys"
}

// ToDomain converts the model to a domain key
func (m *APIKeyModel) ToDomain() *apikey.Key {
	return &apikey.Key{
		BaseEntity: m.Entity(),
		Name:       m.Name,
		Index:      m.Index,
		Hash:       m.Hash,
		Scope:      m.Scope,
		Database:   m.Database,
		UserID:     m.UserID,
		UserLogin:  m.UserLogin,
		OdooKeyID:  m.OdooKeyID,
		LastUsedAt: m.LastUsedAt,
		RevokedAt:  m.RevokedAt,
	}
}

// APIKeyModelFromDomain converts a domain key to its model
func APIKeyModelFromDomain(k *apikey.Key) *APIKeyModel {
	return &APIKeyModel{
		EntityColumns: entityColumns(k.BaseEntity),
		Name:          k.Name,
		Index:         k.Index,
		Hash:          k.Hash,
		Scope:         k.Scope,
		Database:      k.Database,
		UserID:        k.UserID,
		UserLogin:     k.UserLogin,
		OdooKeyID:     k.OdooKeyID,
		LastUsedAt:    k.LastUsedAt,
		RevokedAt:     k.RevokedAt,
	}
}
