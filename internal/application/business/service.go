// Package business serves the dashboard endpoints that drive Odoo's sales,
// inventory and invoicing workflows.
package business

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	accountingapp "github.com/safee-analytics/odoo/internal/application/accounting"
	"github.com/safee-analytics/odoo/internal/domain/accounting"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/logger"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/telemetry"
)

// Defaults
const (
	DefaultStockThreshold = 10
	DefaultTopCustomers   = 20
	TopDebtors            = 10
	dashboardTopCustomers = 10
	dashboardMonths       = 6
)

var confirmedStates = []string{"sale", "done"}

// Odoo is the part of the Odoo client the business service uses
type Odoo interface {
	SearchRead(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain, opts odoo.Options) ([]odoo.Record, error)
	ReadOne(ctx context.Context, sess odoo.Session, model string, id int, fields []string) (odoo.Record, error)
	Read(ctx context.Context, sess odoo.Session, model string, ids []int, fields []string) ([]odoo.Record, error)
	Create(ctx context.Context, sess odoo.Session, model string, vals map[string]any) (int, error)
	ReadGroup(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain, aggregates, groupBy []string, opts odoo.Options) ([]odoo.Record, error)
	CallMethod(ctx context.Context, sess odoo.Session, model, method string, ids []int, args []any, kwargs map[string]any) (any, error)
}

// Accounting is the accounting service the business endpoints reuse
type Accounting interface {
	PostInvoice(ctx context.Context, sess odoo.Session, id int) (*accountingapp.PostResult, error)
	OpenInvoices(ctx context.Context, sess odoo.Session, asOf time.Time, companyID int) ([]accounting.OpenInvoice, error)
	ProfitLoss(ctx context.Context, sess odoo.Session, p accountingapp.ReportParams) (*accounting.ProfitLoss, error)
}

// Service implements the business endpoints
type Service struct {
	odoo       Odoo
	accounting Accounting
	now        func() time.Time
	logger     *zap.Logger
}

// NewService creates the service
func NewService(odooClient Odoo, acct Accounting, logger *zap.Logger) *Service {
	return &Service{odoo: odooClient, accounting: acct, now: time.Now, logger: logger}
}

// SalesDashboard aggregates sale orders by state, customer, month and salesperson
func (s *Service) SalesDashboard(ctx context.Context, sess odoo.Session) (*SalesDashboard, error) {
	ctx, span := telemetry.StartSpan(ctx, "business.sales_dashboard", telemetry.AttrDatabase, sess.DB)
	defer span.End()

	confirmed := odoo.Where("state", "in", confirmedStates)
	amount := []string{"amount_total:sum"}
	var (
		d   SalesDashboard
		err error
	)
	if d.RevenueByState, err = s.odoo.ReadGroup(ctx, sess, odoo.ModelSaleOrder, odoo.Domain{}, amount, []string{"state"}, odoo.Options{}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if d.TopCustomers, err = s.odoo.ReadGroup(ctx, sess, odoo.ModelSaleOrder, confirmed, amount, []string{"partner_id"},
		odoo.Options{Limit: dashboardTopCustomers, Order: "amount_total desc"}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if d.MonthlyRevenue, err = s.odoo.ReadGroup(ctx, sess, odoo.ModelSaleOrder, confirmed, amount, []string{"date_order:month"},
		odoo.Options{Limit: dashboardMonths, Order: "date_order:month desc"}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if d.BySalesperson, err = s.odoo.ReadGroup(ctx, sess, odoo.ModelSaleOrder, confirmed, amount, []string{"user_id"}, odoo.Options{}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &d, nil
}

// ConfirmOrder runs action_confirm, which creates deliveries and reserves stock
func (s *Service) ConfirmOrder(ctx context.Context, sess odoo.Session, id int) (*OrderConfirmation, error) {
	if _, err := s.readOne(ctx, sess, odoo.ModelSaleOrder, id, []string{"id"}, "Order not found"); err != nil {
		return nil, err
	}
	if _, err := s.odoo.CallMethod(ctx, sess, odoo.ModelSaleOrder, "action_confirm", []int{id}, nil, nil); err != nil {
		return nil, err
	}
	rec, err := s.readOne(ctx, sess, odoo.ModelSaleOrder, id, []string{"name", "state", "delivery_count", "invoice_status"}, "Order not found")
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Order confirmed", zap.Int("order_id", id), zap.String("name", rec.String("name")))
	return &OrderConfirmation{
		OrderID:       id,
		Name:          rec.String("name"),
		State:         rec.String("state"),
		DeliveryCount: rec.Int("delivery_count"),
		InvoiceStatus: rec.String("invoice_status"),
	}, nil
}

// CreateInvoice invoices the delivered quantities of an order through the
// sale.advance.payment.inv wizard and returns the newest invoice.
func (s *Service) CreateInvoice(ctx context.Context, sess odoo.Session, orderID int) (*CreatedInvoice, error) {
	if _, err := s.readOne(ctx, sess, odoo.ModelSaleOrder, orderID, []string{"id"}, "Order not found"); err != nil {
		return nil, err
	}

	wizardID, err := s.odoo.Create(ctx, sess, odoo.ModelSaleAdvancePayment, map[string]any{
		"advance_payment_method": "delivered",
		"sale_order_ids":         []any{[]any{6, 0, []int{orderID}}},
	})
	if err != nil {
		return nil, err
	}
	_, err = s.odoo.CallMethod(ctx, sess, odoo.ModelSaleAdvancePayment, "create_invoices", []int{wizardID}, nil,
		map[string]any{"context": map[string]any{
			"active_model": odoo.ModelSaleOrder,
			"active_ids":   []int{orderID},
			"active_id":    orderID,
		}})
	if err != nil {
		return nil, err
	}

	order, err := s.readOne(ctx, sess, odoo.ModelSaleOrder, orderID, []string{"invoice_ids"}, "Order not found")
	if err != nil {
		return nil, err
	}
	ids := order.IDs("invoice_ids")
	if len(ids) == 0 {
		return nil, shared.NewDomainError("INVALID_STATE", "Order has nothing to invoice")
	}
	newest := ids[0]
	for _, id := range ids[1:] {
		newest = max(newest, id)
	}

	inv, err := s.readOne(ctx, sess, odoo.ModelAccountMove, newest, []string{"name", "amount_total", "state"}, "Invoice not found")
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Invoice created from order", zap.Int("order_id", orderID), zap.Int("invoice_id", newest))
	return &CreatedInvoice{
		InvoiceID:   newest,
		InvoiceName: inv.String("name"),
		AmountTotal: inv.Decimal("amount_total"),
		State:       inv.String("state"),
	}, nil
}

// StockLevels lists consumable products below threshold and sums stock per
// category. qty_available is not stored, so the category totals are computed
// here instead of by read_group.
func (s *Service) StockLevels(ctx context.Context, sess odoo.Session, threshold decimal.Decimal) (*StockLevels, error) {
	products, err := s.odoo.SearchRead(ctx, sess, odoo.ModelProduct, odoo.Where("type", "=", "consu"), odoo.Options{
		Fields: []string{"name", "categ_id", "qty_available", "virtual_available", "incoming_qty", "outgoing_qty"},
		Order:  "qty_available, id",
	})
	if err != nil {
		return nil, err
	}

	out := &StockLevels{Threshold: threshold, LowStock: []ProductStock{}, TotalProducts: len(products)}
	categories := map[int]*CategoryStock{}
	for _, p := range products {
		qty := p.Decimal("qty_available")
		virtual := p.Decimal("virtual_available")
		out.TotalQty = out.TotalQty.Add(qty)

		if qty.LessThan(threshold) {
			out.LowStock = append(out.LowStock, ProductStock{
				ID:               p.ID(),
				Name:             p.String("name"),
				QtyAvailable:     qty,
				VirtualAvailable: virtual,
				IncomingQty:      p.Decimal("incoming_qty"),
				OutgoingQty:      p.Decimal("outgoing_qty"),
			})
		}

		categID, categName := p.Many2One("categ_id")
		c, ok := categories[categID]
		if !ok {
			c = &CategoryStock{CategoryID: categID, CategoryName: categName}
			categories[categID] = c
		}
		c.ProductCount++
		c.QtyAvailable = c.QtyAvailable.Add(qty)
		c.VirtualAvailable = c.VirtualAvailable.Add(virtual)
	}
	out.LowStockCount = len(out.LowStock)

	out.StockByCategory = make([]CategoryStock, 0, len(categories))
	for _, c := range categories {
		out.StockByCategory = append(out.StockByCategory, *c)
	}
	sort.Slice(out.StockByCategory, func(i, j int) bool {
		return out.StockByCategory[i].CategoryName < out.StockByCategory[j].CategoryName
	})
	return out, nil
}

// ValidateDelivery runs button_validate on a picking
func (s *Service) ValidateDelivery(ctx context.Context, sess odoo.Session, pickingID int) (*DeliveryValidation, error) {
	if _, err := s.readOne(ctx, sess, odoo.ModelStockPicking, pickingID, []string{"id"}, "Delivery not found"); err != nil {
		return nil, err
	}
	res, err := s.odoo.CallMethod(ctx, sess, odoo.ModelStockPicking, "button_validate", []int{pickingID}, nil, nil)
	if err != nil {
		return nil, err
	}
	// A dict means Odoo wants a wizard answered (backorder, immediate transfer)
	if action, ok := res.(map[string]any); ok {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Delivery needs confirmation in Odoo (%s)", odoo.AsString(action["res_model"])))
	}

	rec, err := s.readOne(ctx, sess, odoo.ModelStockPicking, pickingID, []string{"name", "state", "move_ids"}, "Delivery not found")
	if err != nil {
		return nil, err
	}
	return &DeliveryValidation{
		PickingID:     pickingID,
		Name:          rec.String("name"),
		State:         rec.String("state"),
		ProductsMoved: len(rec.IDs("move_ids")),
	}, nil
}

// Receivables buckets unpaid customer invoices by invoice age
func (s *Service) Receivables(ctx context.Context, sess odoo.Session) (*accounting.ReceivablesSummary, error) {
	today := s.now()
	invoices, err := s.accounting.OpenInvoices(ctx, sess, today, 0)
	if err != nil {
		return nil, err
	}
	summary := accounting.NewReceivablesSummary(today, invoices, TopDebtors)
	return &summary, nil
}

// PostInvoice posts an invoice the same way the accounting endpoint does
func (s *Service) PostInvoice(ctx context.Context, sess odoo.Session, id int) (*accountingapp.PostResult, error) {
	return s.accounting.PostInvoice(ctx, sess, id)
}

// ProfitLoss condenses the accounting P&L into revenue, expenses and margin.
// Expenses include cost of goods sold.
func (s *Service) ProfitLoss(ctx context.Context, sess odoo.Session, dateFrom, dateTo string) (*ProfitLossSummary, error) {
	pl, err := s.accounting.ProfitLoss(ctx, sess, accountingapp.ReportParams{DateFrom: dateFrom, DateTo: dateTo})
	if err != nil {
		return nil, err
	}
	return &ProfitLossSummary{
		Revenue:  pl.Revenue,
		Expenses: pl.COGS.Add(pl.Expenses),
		Profit:   pl.NetProfit,
		Margin:   pl.MarginPercent,
	}, nil
}

// TopCustomers ranks customers by confirmed sales and enriches them with
// their partner data.
func (s *Service) TopCustomers(ctx context.Context, sess odoo.Session, limit int) ([]TopCustomer, error) {
	if limit <= 0 {
		limit = DefaultTopCustomers
	}
	rows, err := s.odoo.ReadGroup(ctx, sess, odoo.ModelSaleOrder, odoo.Where("state", "in", confirmedStates),
		[]string{"amount_total:sum"}, []string{"partner_id"},
		odoo.Options{Limit: limit, Order: "amount_total desc"})
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		if id := r.Many2OneID("partner_id"); id > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []TopCustomer{}, nil
	}
	partners, err := s.odoo.Read(ctx, sess, odoo.ModelPartner, ids,
		[]string{"name", "email", "phone", "credit_limit", "credit", "country_id"})
	if err != nil {
		return nil, err
	}
	byID := make(map[int]odoo.Record, len(partners))
	for _, p := range partners {
		byID[p.ID()] = p
	}

	out := make([]TopCustomer, 0, len(rows))
	for _, r := range rows {
		p, ok := byID[r.Many2OneID("partner_id")]
		if !ok {
			continue
		}
		c := TopCustomer{
			PartnerID:    p.ID(),
			Name:         p.String("name"),
			Email:        p.String("email"),
			Phone:        p.String("phone"),
			TotalRevenue: r.Decimal("amount_total"),
			OrderCount:   r.Int("__count"),
			CreditLimit:  p.Decimal("credit_limit"),
			Credit:       p.Decimal("credit"),
		}
		if country := p.Many2OneName("country_id"); country != "" {
			c.Country = &country
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) readOne(ctx context.Context, sess odoo.Session, model string, id int, fields []string, missing string) (odoo.Record, error) {
	rec, err := s.odoo.ReadOne(ctx, sess, model, id, fields)
	if err != nil {
		if errors.Is(err, odoo.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError(missing)
		}
		return nil, err
	}
	return rec, nil
}
