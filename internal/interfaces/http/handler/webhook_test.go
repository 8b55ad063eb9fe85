package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	webhookapp "github.com/safee-analytics/odoo/internal/application/webhook"
	"github.com/safee-analytics/odoo/internal/domain/webhook"
)

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Enqueue(e webhook.Event) error {
	return m.Called(e).Error(0)
}

func (m *MockWebhookService) Verify(payload []byte, signature string) bool {
	return m.Called(string(payload), signature).Bool(0)
}

func (m *MockWebhookService) Deliveries(ctx context.Context, filter webhook.DeliveryFilter) ([]*webhook.Delivery, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*webhook.Delivery), args.Error(1)
}

func webhookRouter(svc WebhookService) *gin.Engine {
	h := NewWebhookHandler(svc)
	r := newTestRouter()
	r.POST("/api/webhooks/verify", h.Verify)
	r.POST("/api/webhooks/database_ready", h.DatabaseReady)
	r.GET("/api/webhooks/deliveries", h.Deliveries)
	return r
}

func TestWebhookHandler_Verify(t *testing.T) {
	t.Run("string payload is verified verbatim", func(t *testing.T) {
		svc := new(MockWebhookService)
		svc.On("Verify", `{"event":"created"}`, "abc").Return(true)

		w := performRequest(webhookRouter(svc), http.MethodPost, "/api/webhooks/verify",
			map[string]any{"payload": `{"event":"created"}`, "signature": "abc"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeData(t, w)["valid"])
	})

	t.Run("object payload uses its raw bytes", func(t *testing.T) {
		svc := new(MockWebhookService)
		svc.On("Verify", `{"event":"created"}`, "abc").Return(false)

		w := performRequest(webhookRouter(svc), http.MethodPost, "/api/webhooks/verify",
			`{"payload":{"event":"created"},"signature":"abc"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeData(t, w)["valid"])
	})

	t.Run("missing signature", func(t *testing.T) {
		svc := new(MockWebhookService)
		w := performRequest(webhookRouter(svc), http.MethodPost, "/api/webhooks/verify", `{"payload":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWebhookHandler_DatabaseReady(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		svc := new(MockWebhookService)
		svc.On("Enqueue", mock.MatchedBy(func(e webhook.Event) bool {
			return e.Type == webhook.EventDatabaseReady && e.Database == "acme_copy"
		})).Return(nil)

		w := performRequest(webhookRouter(svc), http.MethodPost, "/api/webhooks/database_ready", map[string]any{"db": "acme_copy"})

		assert.Equal(t, http.StatusAccepted, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("invalid name", func(t *testing.T) {
		svc := new(MockWebhookService)
		w := performRequest(webhookRouter(svc), http.MethodPost, "/api/webhooks/database_ready", map[string]any{"db": "a;drop"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Enqueue", mock.Anything)
	})

	t.Run("queue full", func(t *testing.T) {
		svc := new(MockWebhookService)
		svc.On("Enqueue", mock.Anything).Return(webhookapp.ErrQueueFull)

		w := performRequest(webhookRouter(svc), http.MethodPost, "/api/webhooks/database_ready", map[string]any{"db": "acme"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestWebhookHandler_Deliveries(t *testing.T) {
	svc := new(MockWebhookService)
	svc.On("Deliveries", mock.Anything, webhook.DeliveryFilter{Database: "acme", Model: "res.partner", Failed: true, Limit: 50}).
		Return([]*webhook.Delivery{{
			ID:         uuid.New(),
			Channel:    webhook.ChannelHTTP,
			Event:      webhook.EventCreated,
			Model:      "res.partner",
			RecordID:   3,
			Database:   "acme",
			StatusCode: 500,
			Duration:   120 * time.Millisecond,
		}}, nil)

	w := performRequest(webhookRouter(svc), http.MethodGet, "/api/webhooks/deliveries?model=res.partner&failed=true", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	deliveries := data["deliveries"].([]any)
	require.Len(t, deliveries, 1)
	first := deliveries[0].(map[string]any)
	assert.Equal(t, float64(120), first["duration_ms"])
	assert.Equal(t, "create", first["event"])
}
