package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	accountingapp "github.com/safee-analytics/odoo/internal/application/accounting"
	"github.com/safee-analytics/odoo/internal/application/business"
	"github.com/safee-analytics/odoo/internal/domain/accounting"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

// BusinessService backs the dashboard style endpoints
type BusinessService interface {
	SalesDashboard(ctx context.Context, sess odoo.Session) (*business.SalesDashboard, error)
	ConfirmOrder(ctx context.Context, sess odoo.Session, id int) (*business.OrderConfirmation, error)
	CreateInvoice(ctx context.Context, sess odoo.Session, orderID int) (*business.CreatedInvoice, error)
	StockLevels(ctx context.Context, sess odoo.Session, threshold decimal.Decimal) (*business.StockLevels, error)
	ValidateDelivery(ctx context.Context, sess odoo.Session, pickingID int) (*business.DeliveryValidation, error)
	Receivables(ctx context.Context, sess odoo.Session) (*accounting.ReceivablesSummary, error)
	PostInvoice(ctx context.Context, sess odoo.Session, id int) (*accountingapp.PostResult, error)
	ProfitLoss(ctx context.Context, sess odoo.Session, dateFrom, dateTo string) (*business.ProfitLossSummary, error)
	TopCustomers(ctx context.Context, sess odoo.Session, limit int) ([]business.TopCustomer, error)
}

// BusinessHandler serves the sales, inventory and dashboard endpoints
type BusinessHandler struct {
	BaseHandler
	biz BusinessService
}

// NewBusinessHandler creates the handler
func NewBusinessHandler(svc BusinessService) *BusinessHandler {
	return &BusinessHandler{biz: svc}
}

// SalesDashboard godoc
// @Summary      Sales dashboard
// @Tags         Business
// @Produce      json
// @Success      200 {object} dto.Response{data=business.SalesDashboard}
// @Router       /api/sales/dashboard [get]
func (h *BusinessHandler) SalesDashboard(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := h.biz.SalesDashboard(c.Request.Context(), sess)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// ConfirmOrder confirms a quotation
func (h *BusinessHandler) ConfirmOrder(c *gin.Context) {
	h.withID(c, "id", func(sess odoo.Session, id int) (any, error) {
		return h.biz.ConfirmOrder(c.Request.Context(), sess, id)
	})
}

// CreateInvoice invoices a confirmed order
func (h *BusinessHandler) CreateInvoice(c *gin.Context) {
	h.withID(c, "id", func(sess odoo.Session, id int) (any, error) {
		return h.biz.CreateInvoice(c.Request.Context(), sess, id)
	})
}

// StockLevels godoc
// @Summary      Stock overview with low stock products
// @Tags         Business
// @Produce      json
// @Param        threshold query number false "Low stock threshold" default(10)
// @Success      200 {object} dto.Response{data=business.StockLevels}
// @Failure      400 {object} dto.Response
// @Router       /api/inventory/stock_levels [get]
func (h *BusinessHandler) StockLevels(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	threshold := decimal.NewFromInt(business.DefaultStockThreshold)
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			h.BadRequest(c, "Invalid threshold")
			return
		}
		threshold = parsed
	}
	res, err := h.biz.StockLevels(c.Request.Context(), sess, threshold)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// ValidateDelivery validates a picking
func (h *BusinessHandler) ValidateDelivery(c *gin.Context) {
	h.withID(c, "picking_id", func(sess odoo.Session, id int) (any, error) {
		return h.biz.ValidateDelivery(c.Request.Context(), sess, id)
	})
}

// Receivables summarizes unpaid customer invoices
func (h *BusinessHandler) Receivables(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := h.biz.Receivables(c.Request.Context(), sess)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// PostInvoice posts a draft invoice
func (h *BusinessHandler) PostInvoice(c *gin.Context) {
	h.withID(c, "id", func(sess odoo.Session, id int) (any, error) {
		return h.biz.PostInvoice(c.Request.Context(), sess, id)
	})
}

// ProfitLoss returns revenue, expenses and margin for a period
func (h *BusinessHandler) ProfitLoss(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	res, err := h.biz.ProfitLoss(c.Request.Context(), sess, c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// TopCustomers ranks customers by confirmed sales
func (h *BusinessHandler) TopCustomers(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit", business.DefaultTopCustomers)
	if err != nil || limit <= 0 {
		h.BadRequest(c, "Invalid limit")
		return
	}
	customers, err := h.biz.TopCustomers(c.Request.Context(), sess, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"customers": customers, "count": len(customers)})
}

// withID runs an action on the record named by a numeric path parameter
func (h *BusinessHandler) withID(c *gin.Context, param string, fn func(sess odoo.Session, id int) (any, error)) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.intParam(c, param)
	if !ok {
		return
	}
	res, err := fn(sess, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
