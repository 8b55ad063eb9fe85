package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safee-analytics/odoo/internal/domain/webhook"
)

func TestGormWebhookDeliveryRepository(t *testing.T) {
	repo := NewGormWebhookDeliveryRepository(newSQLiteDB(t))
	ctx := context.Background()

	ok := webhook.NewDelivery(webhook.ChannelHTTP,
		webhook.NewRecordEvent(webhook.EventCreated, "res.partner", 7, 2, "acme"),
		"https://hooks.example.com/webhooks/odoo/contacts")
	ok.Finish(200, 120*time.Millisecond, nil)

	failed := webhook.NewDelivery(webhook.ChannelHTTP,
		webhook.NewRecordEvent(webhook.EventUpdated, "account.move", 9, 2, "acme"),
		"https://hooks.example.com/webhooks/odoo/invoices")
	failed.Finish(0, time.Second, errors.New("connection refused"))

	elsewhere := webhook.NewDelivery(webhook.ChannelKafka,
		webhook.NewRecordEvent(webhook.EventDeleted, "res.partner", 1, 2, "demo"), "odoo.mutations")
	elsewhere.Finish(0, 5*time.Millisecond, nil)

	for _, d := range []*webhook.Delivery{ok, failed, elsewhere} {
		require.NoError(t, repo.Save(ctx, d))
	}

	t.Run("filters by database", func(t *testing.T) {
		list, err := repo.List(ctx, webhook.DeliveryFilter{Database: "acme"})
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("filters failures", func(t *testing.T) {
		list, err := repo.List(ctx, webhook.DeliveryFilter{Failed: true})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "account.move", list[0].Model)
		assert.Equal(t, "connection refused", list[0].Error)
		assert.Equal(t, time.Second, list[0].Duration)
	})

	t.Run("kafka deliveries succeed without a status code", func(t *testing.T) {
		list, err := repo.List(ctx, webhook.DeliveryFilter{Database: "demo"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].Success)
		assert.Equal(t, webhook.ChannelKafka, list[0].Channel)
	})

	t.Run("honours the limit", func(t *testing.T) {
		list, err := repo.List(ctx, webhook.DeliveryFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
