package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	accountingapp "github.com/safee-analytics/odoo/internal/application/accounting"
	"github.com/safee-analytics/odoo/internal/application/business"
	"github.com/safee-analytics/odoo/internal/domain/accounting"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

type MockBusinessService struct {
	mock.Mock
}

func (m *MockBusinessService) SalesDashboard(ctx context.Context, sess odoo.Session) (*business.SalesDashboard, error) {
	args := m.Called(ctx, sess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.SalesDashboard), args.Error(1)
}

func (m *MockBusinessService) ConfirmOrder(ctx context.Context, sess odoo.Session, id int) (*business.OrderConfirmation, error) {
	args := m.Called(ctx, sess, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.OrderConfirmation), args.Error(1)
}

func (m *MockBusinessService) CreateInvoice(ctx context.Context, sess odoo.Session, orderID int) (*business.CreatedInvoice, error) {
	args := m.Called(ctx, sess, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.CreatedInvoice), args.Error(1)
}

func (m *MockBusinessService) StockLevels(ctx context.Context, sess odoo.Session, threshold decimal.Decimal) (*business.StockLevels, error) {
	args := m.Called(ctx, sess, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.StockLevels), args.Error(1)
}

func (m *MockBusinessService) ValidateDelivery(ctx context.Context, sess odoo.Session, pickingID int) (*business.DeliveryValidation, error) {
	args := m.Called(ctx, sess, pickingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.DeliveryValidation), args.Error(1)
}

func (m *MockBusinessService) Receivables(ctx context.Context, sess odoo.Session) (*accounting.ReceivablesSummary, error) {
	args := m.Called(ctx, sess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.ReceivablesSummary), args.Error(1)
}

func (m *MockBusinessService) PostInvoice(ctx context.Context, sess odoo.Session, id int) (*accountingapp.PostResult, error) {
	args := m.Called(ctx, sess, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountingapp.PostResult), args.Error(1)
}

func (m *MockBusinessService) ProfitLoss(ctx context.Context, sess odoo.Session, dateFrom, dateTo string) (*business.ProfitLossSummary, error) {
	args := m.Called(ctx, sess, dateFrom, dateTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*business.ProfitLossSummary), args.Error(1)
}

func (m *MockBusinessService) TopCustomers(ctx context.Context, sess odoo.Session, limit int) ([]business.TopCustomer, error) {
	args := m.Called(ctx, sess, limit)
	return args.Get(0).([]business.TopCustomer), args.Error(1)
}

func businessRouter(svc BusinessService) *gin.Engine {
	h := NewBusinessHandler(svc)
	r := newTestRouter()
	r.GET("/api/sales/dashboard", h.SalesDashboard)
	r.POST("/api/sales/confirm/:id", h.ConfirmOrder)
	r.POST("/api/sales/:id/create_invoice", h.CreateInvoice)
	r.GET("/api/inventory/stock_levels", h.StockLevels)
	r.POST("/api/inventory/validate_delivery/:picking_id", h.ValidateDelivery)
	r.GET("/api/accounting/receivables", h.Receivables)
	r.POST("/api/accounting/post_invoice/:id", h.PostInvoice)
	r.GET("/api/reports/profit_loss", h.ProfitLoss)
	r.GET("/api/customers/top", h.TopCustomers)
	return r
}

func TestBusinessHandler_ConfirmOrder(t *testing.T) {
	svc := new(MockBusinessService)
	svc.On("ConfirmOrder", mock.Anything, testSession, 15).Return(&business.OrderConfirmation{
		OrderID: 15, Name: "S00015", State: "sale", DeliveryCount: 1, InvoiceStatus: "to invoice",
	}, nil)

	w := performRequest(businessRouter(svc), http.MethodPost, "/api/sales/confirm/15", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "sale", data["state"])
	assert.Equal(t, float64(1), data["delivery_count"])
}

func TestBusinessHandler_CreateInvoice_NotConfirmed(t *testing.T) {
	svc := new(MockBusinessService)
	svc.On("CreateInvoice", mock.Anything, testSession, 15).
		Return(nil, shared.NewDomainError("INVALID_STATE", "Order must be confirmed before invoicing"))

	w := performRequest(businessRouter(svc), http.MethodPost, "/api/sales/15/create_invoice", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_STATE", decode(t, w).Error.Code)
}

func TestBusinessHandler_StockLevels(t *testing.T) {
	t.Run("default threshold", func(t *testing.T) {
		svc := new(MockBusinessService)
		svc.On("StockLevels", mock.Anything, testSession, mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.NewFromInt(business.DefaultStockThreshold))
		})).Return(&business.StockLevels{TotalProducts: 3}, nil)

		w := performRequest(businessRouter(svc), http.MethodGet, "/api/inventory/stock_levels", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("fractional threshold", func(t *testing.T) {
		svc := new(MockBusinessService)
		svc.On("StockLevels", mock.Anything, testSession, mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.RequireFromString("2.5"))
		})).Return(&business.StockLevels{}, nil)

		w := performRequest(businessRouter(svc), http.MethodGet, "/api/inventory/stock_levels?threshold=2.5", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid threshold", func(t *testing.T) {
		svc := new(MockBusinessService)
		w := performRequest(businessRouter(svc), http.MethodGet, "/api/inventory/stock_levels?threshold=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBusinessHandler_ValidateDelivery(t *testing.T) {
	svc := new(MockBusinessService)
	svc.On("ValidateDelivery", mock.Anything, testSession, 40).
		Return(&business.DeliveryValidation{PickingID: 40, State: "done", ProductsMoved: 2}, nil)

	w := performRequest(businessRouter(svc), http.MethodPost, "/api/inventory/validate_delivery/40", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeData(t, w)["products_moved"])
}

func TestBusinessHandler_ProfitLoss(t *testing.T) {
	svc := new(MockBusinessService)
	svc.On("ProfitLoss", mock.Anything, testSession, "2026-01-01", "").
		Return(&business.ProfitLossSummary{
			Revenue:  decimal.NewFromInt(1000),
			Expenses: decimal.NewFromInt(600),
			Profit:   decimal.NewFromInt(400),
			Margin:   decimal.NewFromInt(40),
		}, nil)

	w := performRequest(businessRouter(svc), http.MethodGet, "/api/reports/profit_loss?date_from=2026-01-01", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(400), decodeData(t, w)["profit"])
}

func TestBusinessHandler_TopCustomers(t *testing.T) {
	svc := new(MockBusinessService)
	svc.On("TopCustomers", mock.Anything, testSession, business.DefaultTopCustomers).
		Return([]business.TopCustomer{{PartnerID: 1, Name: "Acme"}}, nil)
	svc.On("TopCustomers", mock.Anything, testSession, 5).
		Return([]business.TopCustomer{}, nil)

	r := businessRouter(svc)
	w := performRequest(r, http.MethodGet, "/api/customers/top", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeData(t, w)["count"])

	w = performRequest(r, http.MethodGet, "/api/customers/top?limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodGet, "/api/customers/top?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestBusinessHandler_SalesDashboard_OdooDown(t *testing.T) {
	svc := new(MockBusinessService)
	svc.On("SalesDashboard", mock.Anything, testSession).Return(nil, &odoo.RPCError{Kind: odoo.FaultAccess, Message: "denied"})

	w := performRequest(businessRouter(svc), http.MethodGet, "/api/sales/dashboard", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
