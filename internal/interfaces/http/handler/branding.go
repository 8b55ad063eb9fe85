package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/safee-analytics/odoo/internal/domain/branding"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

// BrandingService reads and merges the company document style
type BrandingService interface {
	Get(ctx context.Context, sess odoo.Session) (branding.Style, error)
	Update(ctx context.Context, sess odoo.Session, data []byte) (branding.Style, error)
}

// BrandingHandler serves /api/branding
type BrandingHandler struct {
	BaseHandler
	branding BrandingService
}

// NewBrandingHandler creates the handler
func NewBrandingHandler(svc BrandingService) *BrandingHandler {
	return &BrandingHandler{branding: svc}
}

// Get returns the caller's company style
func (h *BrandingHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	style, err := h.branding.Get(c.Request.Context(), sess)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, style)
}

// Update godoc
// @Summary      Update the document style
// @Description  Fields missing from the body keep their current value.
// @Tags         Business
// @Accept       json
// @Produce      json
// @Param        request body branding.Style true "Style fields"
// @Success      200 {object} dto.Response{data=branding.Style}
// @Failure      400 {object} dto.Response
// @Router       /api/branding [put]
func (h *BrandingHandler) Update(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		h.BadRequest(c, "Invalid JSON body")
		return
	}
	style, err := h.branding.Update(c.Request.Context(), sess, body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, style)
}
