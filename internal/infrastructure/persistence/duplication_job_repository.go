package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safee-analytics/odoo/internal/domain/duplication"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/persistence/models"
)

// GormDuplicationJobRepository implements duplication.Repository using GORM
type GormDuplicationJobRepository struct {
	db *gorm.DB
}

// NewGormDuplicationJobRepository creates a new GormDuplicationJobRepository
func NewGormDuplicationJobRepository(db *gorm.DB) *GormDuplicationJobRepository {
	return &GormDuplicationJobRepository{db: db}
}

// Save upserts the job snapshot
func (r *GormDuplicationJobRepository) Save(ctx context.Context, job *duplication.Job) error {
	return r.db.WithContext(ctx).Save(models.DuplicationJobModelFromDomain(job)).Error
}

// FindByID loads a job
func (r *GormDuplicationJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*duplication.Job, error) {
	var model models.DuplicationJobModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FailRunning closes jobs that were pending or running when the process stopped
func (r *GormDuplicationJobRepository) FailRunning(ctx context.Context, reason string) (int64, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.DuplicationJobModel{}).
		Where("status IN ?", []string{string(duplication.StatusPending), string(duplication.StatusRunning)}).
		Updates(map[string]any{
			"status":      string(duplication.StatusFailed),
			"error":       reason,
			"finished_at": now,
			"updated_at":  now,
		})
	return result.RowsAffected, result.Error
}

var _ duplication.Repository = (*GormDuplicationJobRepository)(nil)
