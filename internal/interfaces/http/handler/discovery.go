package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/safee-analytics/odoo/internal/application/records"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

// DiscoveryService describes installed models, fields and methods
type DiscoveryService interface {
	Models(ctx context.Context, sess odoo.Session, search string, limit int) ([]records.ModelInfo, error)
	Fields(ctx context.Context, sess odoo.Session, model string) (*records.FieldsResult, error)
	Methods(ctx context.Context, sess odoo.Session, model string) (*records.MethodsResult, error)
	Method(ctx context.Context, sess odoo.Session, model, method string) (*records.MethodInfo, error)
}

// DiscoveryHandler serves /api/discover
type DiscoveryHandler struct {
	BaseHandler
	discovery DiscoveryService
}

// NewDiscoveryHandler creates the handler
func NewDiscoveryHandler(svc DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{discovery: svc}
}

// Models lists installed models
func (h *DiscoveryHandler) Models(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit", records.DefaultModelLimit)
	if err != nil || limit <= 0 {
		h.BadRequest(c, "Invalid limit")
		return
	}
	models, err := h.discovery.Models(c.Request.Context(), sess, c.Query("search"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"models": models, "count": len(models)})
}

// Fields describes the fields of a model
func (h *DiscoveryHandler) Fields(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := h.discovery.Fields(c.Request.Context(), sess, c.Param("model"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Methods lists the public methods of a model
func (h *DiscoveryHandler) Methods(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := h.discovery.Methods(c.Request.Context(), sess, c.Param("model"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Method describes one method
func (h *DiscoveryHandler) Method(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := h.discovery.Method(c.Request.Context(), sess, c.Param("model"), c.Param("method"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
