package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	webhookapp "github.com/safee-analytics/odoo/internal/application/webhook"
	"github.com/safee-analytics/odoo/internal/domain/duplication"
	"github.com/safee-analytics/odoo/internal/domain/webhook"
	"github.com/safee-analytics/odoo/internal/interfaces/http/dto"
)

// WebhookService is the dispatcher surface used by the HTTP layer
type WebhookService interface {
	Enqueue(e webhook.Event) error
	Verify(payload []byte, signature string) bool
	Deliveries(ctx context.Context, filter webhook.DeliveryFilter) ([]*webhook.Delivery, error)
}

// WebhookHandler serves /api/webhooks
type WebhookHandler struct {
	BaseHandler
	webhooks WebhookService
}

// NewWebhookHandler creates the handler
func NewWebhookHandler(svc WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: svc}
}

// VerifyRequest carries a received payload and its signature. The payload
// may be the exact string that was signed or a JSON object.
type VerifyRequest struct {
	Payload   json.RawMessage `json:"payload" binding:"required"`
	Signature string          `json:"signature" binding:"required"`
}

// DatabaseReadyRequest is the body of POST /api/webhooks/database_ready
type DatabaseReadyRequest struct {
	DB string `json:"db" binding:"required"`
}

// DeliveryResponse is one entry of the delivery log
type DeliveryResponse struct {
	ID         uuid.UUID `json:"id"`
	Channel    string    `json:"channel"`
	Event      string    `json:"event"`
	Model      string    `json:"model,omitempty"`
	RecordID   int       `json:"record_id,omitempty"`
	Database   string    `json:"database"`
	Target     string    `json:"target"`
	StatusCode int       `json:"status_code"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func toDeliveryResponse(d *webhook.Delivery) DeliveryResponse {
	return DeliveryResponse{
		ID:         d.ID,
		Channel:    string(d.Channel),
		Event:      string(d.Event),
		Model:      d.Model,
		RecordID:   d.RecordID,
		Database:   d.Database,
		Target:     d.Target,
		StatusCode: d.StatusCode,
		Success:    d.Success,
		Error:      d.Error,
		DurationMS: d.Duration.Milliseconds(),
		CreatedAt:  d.CreatedAt,
	}
}

// Verify godoc
// @Summary      Check a webhook signature
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        request body VerifyRequest true "Payload and X-Odoo-Signature value"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /api/webhooks/verify [post]
func (h *WebhookHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	payload := []byte(req.Payload)
	var signed string
	if err := json.Unmarshal(req.Payload, &signed); err == nil {
		payload = []byte(signed)
	}
	h.Success(c, gin.H{"valid": h.webhooks.Verify(payload, req.Signature)})
}

// DatabaseReady queues the database_ready notification
func (h *WebhookHandler) DatabaseReady(c *gin.Context) {
	var req DatabaseReadyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	if err := duplication.ValidateDatabaseName(req.DB); err != nil {
		h.HandleError(c, err)
		return
	}
	err := h.webhooks.Enqueue(webhook.NewSystemEvent(webhook.EventDatabaseReady, req.DB, nil))
	switch {
	case errors.Is(err, webhookapp.ErrQueueFull), errors.Is(err, webhookapp.ErrStopped):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Webhook queue unavailable")
		return
	case err != nil:
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, gin.H{"message": "Database ready notification queued", "db": req.DB})
}

type deliveryQuery struct {
	Model  string `form:"model"`
	Failed bool   `form:"failed"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// Deliveries lists recent deliveries for the caller's database
func (h *WebhookHandler) Deliveries(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var q deliveryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	deliveries, err := h.webhooks.Deliveries(c.Request.Context(), webhook.DeliveryFilter{
		Database: sess.DB,
		Model:    q.Model,
		Failed:   q.Failed,
		Limit:    q.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]DeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, toDeliveryResponse(d))
	}
	h.Success(c, gin.H{"deliveries": out, "count": len(out)})
}
