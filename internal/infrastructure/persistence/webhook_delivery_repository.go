package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/safee-analytics/odoo/internal/domain/webhook"
	"github.com/safee-analytics/odoo/internal/infrastructure/persistence/models"
)

const defaultDeliveryListLimit = 100

// GormWebhookDeliveryRepository implements webhook.DeliveryRepository using GORM
type GormWebhookDeliveryRepository struct {
	db *gorm.DB
}

// NewGormWebhookDeliveryRepository creates a new GormWebhookDeliveryRepository
func NewGormWebhookDeliveryRepository(db *gorm.DB) *GormWebhookDeliveryRepository {
	return &GormWebhookDeliveryRepository{db: db}
}

// Save appends a delivery to the log
func (r *GormWebhookDeliveryRepository) Save(ctx context.Context, d *webhook.Delivery) error {
	return r.db.WithContext(ctx).Create(models.WebhookDeliveryModelFromDomain(d)).Error
}

// List returns the most recent deliveries matching filter
func (r *GormWebhookDeliveryRepository) List(ctx context.Context, filter webhook.DeliveryFilter) ([]*webhook.Delivery, error) {
	query := r.db.WithContext(ctx).Model(&models.WebhookDeliveryModel{})
	if filter.Database != "" {
		query = query.Where("db_name = ?", filter.Database)
	}
	if filter.Model != "" {
		query = query.Where("model = ?", filter.Model)
	}
	if filter.Failed {
		query = query.Where("success = ?", false)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDeliveryListLimit
	}

	var rows []models.WebhookDeliveryModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*webhook.Delivery, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ webhook.DeliveryRepository = (*GormWebhookDeliveryRepository)(nil)
