package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/safee-analytics/odoo/internal/application/apikey"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

// APIKeyService issues and revokes Odoo API keys
type APIKeyService interface {
	Generate(ctx context.Context, input apikey.GenerateInput) (*apikey.GenerateResult, error)
	List(ctx context.Context, sess odoo.Session) ([]apikey.KeyInfo, error)
	Revoke(ctx context.Context, sess odoo.Session, id uuid.UUID) error
}

// APIKeyHandler serves /api/generate_key and /api/keys
type APIKeyHandler struct {
	BaseHandler
	keys APIKeyService
}

// NewAPIKeyHandler creates the handler
func NewAPIKeyHandler(keys APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

// Generate godoc
// @Summary      Generate an Odoo API key
// @Description  Authenticates an Odoo administrator and creates a key for the target user. The token is only shown once.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body apikey.GenerateInput true "Admin credentials and target user"
// @Success      200 {object} dto.Response{data=apikey.GenerateResult}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /api/generate_key [post]
func (h *APIKeyHandler) Generate(c *gin.Context) {
	var input apikey.GenerateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, "Invalid JSON body")
		return
	}
	result, err := h.keys.Generate(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// List returns the caller's keys without secrets
func (h *APIKeyHandler) List(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	keys, err := h.keys.List(c.Request.Context(), sess)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, keys)
}

// Revoke deletes one of the caller's keys
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid key id")
		return
	}
	if err := h.keys.Revoke(c.Request.Context(), sess, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": "API key revoked"})
}
