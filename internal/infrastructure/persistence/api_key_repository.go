package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safee-analytics/odoo/internal/domain/apikey"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/persistence/models"
)

// GormAPIKeyRepository implements apikey.Repository using GORM
type GormAPIKeyRepository struct {
	db *gorm.DB
}

// NewGormAPIKeyRepository creates a new GormAPIKeyRepository
func NewGormAPIKeyRepository(db *gorm.DB) *GormAPIKeyRepository {
	return &GormAPIKeyRepository{db: db}
}

// Save creates or updates a key
func (r *GormAPIKeyRepository) Save(ctx context.Context, key *apikey.Key) error {
	return r.db.WithContext(ctx).Save(models.APIKeyModelFromDomain(key)).Error
}

// FindByID finds a key by its gateway id
func (r *GormAPIKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*apikey.Key, error) {
	var model models.APIKeyModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByIndex returns unrevoked keys with the given index
func (r *GormAPIKeyRepository) FindActiveByIndex(ctx context.Context, index string) ([]*apikey.Key, error) {
	var rows []models.APIKeyModel
	err := r.db.WithContext(ctx).
		Where("key_index = ? AND revoked_at IS NULL", index).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toAPIKeys(rows), nil
}

// ListByUser returns every key issued to a user of a database, newest first
func (r *GormAPIKeyRepository) ListByUser(ctx context.Context, db string, userID int) ([]*apikey.Key, error) {
	var rows []models.APIKeyModel
	err := r.db.WithContext(ctx).
		Where("db_name = ? AND user_id = ?", db, userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toAPIKeys(rows), nil
}

// MarkUsed stamps last_used_at
func (r *GormAPIKeyRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.APIKeyModel{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at.UTC()).Error
}

// Revoke marks a key revoked. Revoking twice is reported as not found.
func (r *GormAPIKeyRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.APIKeyModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{"revoked_at": now, "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toAPIKeys(rows []models.APIKeyModel) []*apikey.Key {
	out := make([]*apikey.Key, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ apikey.Repository = (*GormAPIKeyRepository)(nil)
