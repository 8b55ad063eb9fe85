package business

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	accountingapp "github.com/safee-analytics/odoo/internal/application/accounting"
	"github.com/safee-analytics/odoo/internal/domain/accounting"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

type MockOdoo struct {
	mock.Mock
}

func (m *MockOdoo) SearchRead(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain, opts odoo.Options) ([]odoo.Record, error) {
	args := m.Called(ctx, sess, model, domain, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]odoo.Record), args.Error(1)
}

func (m *MockOdoo) ReadOne(ctx context.Context, sess odoo.Session, model string, id int, fields []string) (odoo.Record, error) {
	args := m.Called(ctx, sess, model, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(odoo.Record), args.Error(1)
}

func (m *MockOdoo) Read(ctx context.Context, sess odoo.Session, model string, ids []int, fields []string) ([]odoo.Record, error) {
	args := m.Called(ctx, sess, model, ids, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]odoo.Record), args.Error(1)
}

func (m *MockOdoo) Create(ctx context.Context, sess odoo.Session, model string, vals map[string]any) (int, error) {
	args := m.Called(ctx, sess, model, vals)
	return args.Int(0), args.Error(1)
}

func (m *MockOdoo) ReadGroup(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain, aggregates, groupBy []string, opts odoo.Options) ([]odoo.Record, error) {
	args := m.Called(ctx, sess, model, domain, aggregates, groupBy, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]odoo.Record), args.Error(1)
}

func (m *MockOdoo) CallMethod(ctx context.Context, sess odoo.Session, model, method string, ids []int, a []any, kwargs map[string]any) (any, error) {
	args := m.Called(ctx, sess, model, method, ids, a, kwargs)
	return args.Get(0), args.Error(1)
}

type MockAccounting struct {
	mock.Mock
}

func (m *MockAccounting) PostInvoice(ctx context.Context, sess odoo.Session, id int) (*accountingapp.PostResult, error) {
	args := m.Called(ctx, sess, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountingapp.PostResult), args.Error(1)
}

func (m *MockAccounting) OpenInvoices(ctx context.Context, sess odoo.Session, asOf time.Time, companyID int) ([]accounting.OpenInvoice, error) {
	args := m.Called(ctx, sess, asOf, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accounting.OpenInvoice), args.Error(1)
}

func (m *MockAccounting) ProfitLoss(ctx context.Context, sess odoo.Session, p accountingapp.ReportParams) (*accounting.ProfitLoss, error) {
	args := m.Called(ctx, sess, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.ProfitLoss), args.Error(1)
}

var (
	sess  = odoo.Session{DB: "acme", UID: 2, Login: "admin", Secret: "secret"}
	today = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
)

func newService(m *MockOdoo, a *MockAccounting) *Service {
	s := NewService(m, a, zap.NewNop())
	s.now = func() time.Time { return today }
	return s
}

func TestSalesDashboard(t *testing.T) {
	m := new(MockOdoo)
	svc := newService(m, new(MockAccounting))
	amount := []string{"amount_total:sum"}
	confirmed := odoo.Where("state", "in", confirmedStates)

	m.On("ReadGroup", mock.Anything, sess, odoo.ModelSaleOrder, odoo.Domain{}, amount, []string{"state"}, odoo.Options{}).
		Return([]odoo.Record{{"state": "sale", "amount_total": 900.0, "__count": int64(3)}}, nil)
	m.On("ReadGroup", mock.Anything, sess, odoo.ModelSaleOrder, confirmed, amount, []string{"partner_id"},
		odoo.Options{Limit: 10, Order: "amount_total desc"}).
		Return([]odoo.Record{{"partner_id": []any{int64(3), "Azure Interior"}, "amount_total": 900.0}}, nil)
	m.On("ReadGroup", mock.Anything, sess, odoo.ModelSaleOrder, confirmed, amount, []string{"date_order:month"},
		odoo.Options{Limit: 6, Order: "date_order:month desc"}).
		Return([]odoo.Record{{"date_order:month": "March 2024", "amount_total": 900.0}}, nil)
	m.On("ReadGroup", mock.Anything, sess, odoo.ModelSaleOrder, confirmed, amount, []string{"user_id"}, odoo.Options{}).
		Return([]odoo.Record{{"user_id": []any{int64(2), "Mitchell Admin"}, "amount_total": 900.0}}, nil)

	d, err := svc.SalesDashboard(context.Background(), sess)
	require.NoError(t, err)
	assert.Len(t, d.RevenueByState, 1)
	assert.Equal(t, "March 2024", d.MonthlyRevenue[0]["date_order:month"])
	m.AssertExpectations(t)
}

func TestConfirmOrder(t *testing.T) {
	m := new(MockOdoo)
	svc := newService(m, new(MockAccounting))

	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrder, 5, []string{"id"}).Return(odoo.Record{"id": int64(5)}, nil)
	m.On("CallMethod", mock.Anything, sess, odoo.ModelSaleOrder, "action_confirm", []int{5}, []any(nil), map[string]any(nil)).Return(true, nil)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrder, 5, []string{"name", "state", "delivery_count", "invoice_status"}).
		Return(odoo.Record{"id": int64(5), "name": "S00005", "state": "sale", "delivery_count": int64(1), "invoice_status": "to invoice"}, nil)

	res, err := svc.ConfirmOrder(context.Background(), sess, 5)
	require.NoError(t, err)
	assert.Equal(t, OrderConfirmation{OrderID: 5, Name: "S00005", State: "sale", DeliveryCount: 1, InvoiceStatus: "to invoice"}, *res)
}

func TestConfirmOrder_NotFound(t *testing.T) {
	m := new(MockOdoo)
	svc := newService(m, new(MockAccounting))
	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrder, 404, mock.Anything).Return(nil, odoo.ErrRecordNotFound)

	_, err := svc.ConfirmOrder(context.Background(), sess, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.EqualError(t, err, "Order not found")
}

func TestCreateInvoice(t *testing.T) {
	m := new(MockOdoo)
	svc := newService(m, new(MockAccounting))

	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrder, 5, []string{"id"}).Return(odoo.Record{"id": int64(5)}, nil)
	m.On("Create", mock.Anything, sess, odoo.ModelSaleAdvancePayment, map[string]any{
		"advance_payment_method": "delivered",
		"sale_order_ids":         []any{[]any{6, 0, []int{5}}},
	}).Return(31, nil)
	m.On("CallMethod", mock.Anything, sess, odoo.ModelSaleAdvancePayment, "create_invoices", []int{31}, []any(nil), mock.Anything).
		Return(map[string]any{"type": "ir.actions.act_window"}, nil)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrder, 5, []string{"invoice_ids"}).
		Return(odoo.Record{"id": int64(5), "invoice_ids": []any{int64(12), int64(18), int64(15)}}, nil)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelAccountMove, 18, []string{"name", "amount_total", "state"}).
		Return(odoo.Record{"id": int64(18), "name": false, "amount_total": 230.0, "state": "draft"}, nil)

	res, err := svc.CreateInvoice(context.Background(), sess, 5)
	require.NoError(t, err)
	assert.Equal(t, 18, res.InvoiceID)
	assert.Equal(t, "", res.InvoiceName)
	assert.Equal(t, "draft", res.State)
	assert.True(t, res.AmountTotal.Equal(decimal.NewFromInt(230)))
}

func TestCreateInvoice_NothingToInvoice(t *testing.T) {
	m := new(MockOdoo)
	svc := newService(m, new(MockAccounting))

	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrder, 5, []string{"id"}).Return(odoo.Record{"id": int64(5)}, nil)
	m.On("Create", mock.Anything, sess, odoo.ModelSaleAdvancePayment, mock.Anything).Return(31, nil)
	m.On("CallMethod", mock.Anything, sess, odoo.ModelSaleAdvancePayment, "create_invoices", []int{31}, mock.Anything, mock.Anything).Return(true, nil)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelSaleOrder, 5, []string{"invoice_ids"}).
		Return(odoo.Record{"id": int64(5), "invoice_ids": []any{}}, nil)

	_, err := svc.CreateInvoice(context.Background(), sess, 5)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestStockLevels(t *testing.T) {
	m := new(MockOdoo)
	svc := newService(m, new(MockAccounting))

	m.On("SearchRead", mock.Anything, sess, odoo.ModelProduct, odoo.Where("type", "=", "consu"), mock.Anything).
		Return([]odoo.Record{
			{"id": int64(1), "name": "Desk", "categ_id": []any{int64(2), "Furniture"}, "qty_available": 3.0, "virtual_available": 8.0},
			{"id": int64(2), "name": "Chair", "categ_id": []any{int64(2), "Furniture"}, "qty_available": 40.0, "virtual_available": 40.0},
			{"id": int64(3), "name": "Cable", "categ_id": []any{int64(1), "All"}, "qty_available": 9.5, "virtual_available": 9.5},
		}, nil)

	res, err := svc.StockLevels(context.Background(), sess, decimal.NewFromInt(DefaultStockThreshold))
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalProducts)
	assert.Equal(t, 2, res.LowStockCount)
	assert.Equal(t, "Desk", res.LowStock[0].Name)
	assert.True(t, res.TotalQty.Equal(decimal.RequireFromString("52.5")))

	require.Len(t, res.StockByCategory, 2)
	assert.Equal(t, "All", res.StockByCategory[0].CategoryName)
	furniture := res.StockByCategory[1]
	assert.Equal(t, 2, furniture.ProductCount)
	assert.True(t, furniture.QtyAvailable.Equal(decimal.NewFromInt(43)))
}

func TestValidateDelivery(t *testing.T) {
	m := new(MockOdoo)
	svc := newService(m, new(MockAccounting))

	m.On("ReadOne", mock.Anything, sess, odoo.ModelStockPicking, 9, []string{"id"}).Return(odoo.Record{"id": int64(9)}, nil)
	m.On("CallMethod", mock.Anything, sess, odoo.ModelStockPicking, "button_validate", []int{9}, []any(nil), map[string]any(nil)).Return(true, nil)
	m.On("ReadOne", mock.Anything, sess, odoo.ModelStockPicking, 9, []string{"name", "state", "move_ids"}).
		Return(odoo.Record{"id": int64(9), "name": "WH/OUT/00009", "state": "done", "move_ids": []any{int64(1), int64(2)}}, nil)

	res, err := svc.ValidateDelivery(context.Background(), sess, 9)
	require.NoError(t, err)
	assert.Equal(t, "done", res.State)
	assert.Equal(t, 2, res.ProductsMoved)
}

func TestValidateDelivery_NeedsWizard(t *testing.T) {
	m := new(MockOdoo)
	svc := newService(m, new(MockAccounting))

	m.On("ReadOne", mock.Anything, sess, odoo.ModelStockPicking, 9, []string{"id"}).Return(odoo.Record{"id": int64(9)}, nil)
	m.On("CallMethod", mock.Anything, sess, odoo.ModelStockPicking, "button_validate", []int{9}, mock.Anything, mock.Anything).
		Return(map[string]any{"res_model": "stock.backorder.confirmation"}, nil)

	_, err := svc.ValidateDelivery(context.Background(), sess, 9)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Contains(t, err.Error(), "stock.backorder.confirmation")
}

func TestReceivables(t *testing.T) {
	a := new(MockAccounting)
	svc := newService(new(MockOdoo), a)

	a.On("OpenInvoices", mock.Anything, sess, today, 0).Return([]accounting.OpenInvoice{
		{ID: 1, PartnerID: 3, PartnerName: "A", InvoiceDate: today.AddDate(0, 0, -10), Residual: decimal.NewFromInt(100)},
		{ID: 2, PartnerID: 4, PartnerName: "B", InvoiceDate: today.AddDate(0, 0, -100), Residual: decimal.NewFromInt(250)},
	}, nil)

	res, err := svc.Receivables(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InvoiceCount)
	assert.True(t, res.TotalUnpaid.Equal(decimal.NewFromInt(350)))
	assert.True(t, res.Buckets["90+"].Equal(decimal.NewFromInt(250)))
	assert.Equal(t, 4, res.TopDebtors[0].PartnerID)
}

func TestProfitLoss(t *testing.T) {
	a := new(MockAccounting)
	svc := newService(new(MockOdoo), a)

	a.On("ProfitLoss", mock.Anything, sess, accountingapp.ReportParams{DateFrom: "2024-01-01", DateTo: "2024-03-31"}).
		Return(&accounting.ProfitLoss{
			Revenue:       decimal.NewFromInt(1000),
			COGS:          decimal.NewFromInt(300),
			Expenses:      decimal.NewFromInt(200),
			NetProfit:     decimal.NewFromInt(500),
			MarginPercent: decimal.NewFromInt(50),
		}, nil)

	res, err := svc.ProfitLoss(context.Background(), sess, "2024-01-01", "2024-03-31")
	require.NoError(t, err)
	assert.True(t, res.Expenses.Equal(decimal.NewFromInt(500)))
	assert.True(t, res.Profit.Equal(decimal.NewFromInt(500)))
	assert.True(t, res.Margin.Equal(decimal.NewFromInt(50)))
}

func TestTopCustomers(t *testing.T) {
	m := new(MockOdoo)
	svc := newService(m, new(MockAccounting))

	m.On("ReadGroup", mock.Anything, sess, odoo.ModelSaleOrder, odoo.Where("state", "in", confirmedStates),
		[]string{"amount_total:sum"}, []string{"partner_id"}, odoo.Options{Limit: 20, Order: "amount_total desc"}).
		Return([]odoo.Record{
			{"partner_id": []any{int64(4), "Deco Addict"}, "amount_total": 1200.0, "__count": int64(3)},
			{"partner_id": []any{int64(3), "Azure Interior"}, "amount_total": 800.0, "__count": int64(2)},
		}, nil)
	m.On("Read", mock.Anything, sess, odoo.ModelPartner, []int{4, 3}, mock.Anything).
		Return([]odoo.Record{
			{"id": int64(3), "name": "Azure Interior", "email": "azure@example.com", "phone": false, "credit_limit": 0.0, "credit": 100.0, "country_id": false},
			{"id": int64(4), "name": "Deco Addict", "email": "deco@example.com", "phone": "+1 555", "credit_limit": 5000.0, "credit": 0.0, "country_id": []any{int64(233), "United States"}},
		}, nil)

	res, err := svc.TopCustomers(context.Background(), sess, 0)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Deco Addict", res[0].Name)
	assert.Equal(t, 3, res[0].OrderCount)
	require.NotNil(t, res[0].Country)
	assert.Equal(t, "United States", *res[0].Country)
	assert.Nil(t, res[1].Country)
	assert.Equal(t, "", res[1].Phone)
}

func TestPostInvoice_Delegates(t *testing.T) {
	a := new(MockAccounting)
	svc := newService(new(MockOdoo), a)
	a.On("PostInvoice", mock.Anything, sess, 7).Return(&accountingapp.PostResult{ID: 7, State: "posted"}, nil)

	res, err := svc.PostInvoice(context.Background(), sess, 7)
	require.NoError(t, err)
	assert.Equal(t, "posted", res.State)
}
