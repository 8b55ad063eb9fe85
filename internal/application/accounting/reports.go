package accounting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/accounting"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/storage"
	"github.com/safee-analytics/odoo/internal/infrastructure/telemetry"
)

// Report names
const (
	ReportBalanceSheet    = "balance_sheet"
	ReportProfitLoss      = "profit_loss"
	ReportAgedReceivables = "aged_receivables"
	ReportCashFlow        = "cash_flow"
	ReportTax             = "tax_report"
)

// ReportNames lists the reports Report and ExportReport accept
var ReportNames = []string{
	ReportBalanceSheet,
	ReportProfitLoss,
	ReportAgedReceivables,
	ReportCashFlow,
	ReportTax,
}

// Report builds a report by name
func (s *Service) Report(ctx context.Context, sess odoo.Session, name string, p ReportParams) (any, error) {
	switch name {
	case ReportBalanceSheet:
		return s.BalanceSheet(ctx, sess, p)
	case ReportProfitLoss:
		return s.ProfitLoss(ctx, sess, p)
	case ReportAgedReceivables:
		return s.AgedReceivables(ctx, sess, p)
	case ReportCashFlow:
		return s.CashFlow(ctx, sess, p)
	case ReportTax:
		return s.TaxReport(ctx, sess, p)
	}
	return nil, shared.NewNotFoundError(fmt.Sprintf("Unknown report %s", name))
}

// ExportReport builds a report and stores it as JSON, returning a
// presigned link to it.
func (s *Service) ExportReport(ctx context.Context, sess odoo.Session, name string, p ReportParams) (*ExportResult, error) {
	if s.store == nil {
		return nil, shared.NewDomainError("SERVICE_UNAVAILABLE", "Report storage is not configured")
	}
	report, err := s.Report(ctx, sess, name, p)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}

	key := storage.ReportKey(sess.DB, name, s.today())
	if err := s.store.Put(ctx, key, body, storage.ContentTypeJSON); err != nil {
		return nil, err
	}
	url, expires, err := s.store.DownloadURL(ctx, key, s.presign)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Report exported", zap.String("report", name), zap.String("key", key), zap.String("db", sess.DB))
	return &ExportResult{Report: name, Key: key, URL: url, ExpiresAt: expires}, nil
}

// BalanceSheet reports assets, liabilities and equity at p.Date
func (s *Service) BalanceSheet(ctx context.Context, sess odoo.Session, p ReportParams) (*accounting.BalanceSheet, error) {
	date, err := parseDate(p.Date, s.today())
	if err != nil {
		return nil, err
	}
	domain := odoo.Where("date", "<=", odoo.FormatDate(date))
	b, err := s.balances(ctx, sess, domain, p.CompanyID, accounting.BalanceSheetTypes())
	if err != nil {
		return nil, err
	}
	report := accounting.NewBalanceSheet(date, b)
	return &report, nil
}

// ProfitLoss reports revenue, costs and margin over a period
func (s *Service) ProfitLoss(ctx context.Context, sess odoo.Session, p ReportParams) (*accounting.ProfitLoss, error) {
	from, to, domain, err := s.period(p)
	if err != nil {
		return nil, err
	}
	b, err := s.balances(ctx, sess, domain, p.CompanyID, accounting.ProfitLossTypes())
	if err != nil {
		return nil, err
	}
	report := accounting.NewProfitLoss(from, to, b)
	return &report, nil
}

// CashFlow reports operating, investing and financing flows over a period
func (s *Service) CashFlow(ctx context.Context, sess odoo.Session, p ReportParams) (*accounting.CashFlow, error) {
	from, to, domain, err := s.period(p)
	if err != nil {
		return nil, err
	}
	b, err := s.balances(ctx, sess, domain, p.CompanyID, accounting.CashFlowTypes())
	if err != nil {
		return nil, err
	}
	report := accounting.NewCashFlow(from, to, b)
	return &report, nil
}

// AgedReceivables buckets unpaid customer invoices by days overdue at p.Date
func (s *Service) AgedReceivables(ctx context.Context, sess odoo.Session, p ReportParams) (*accounting.AgedReceivables, error) {
	date, err := parseDate(p.Date, s.today())
	if err != nil {
		return nil, err
	}
	invoices, err := s.OpenInvoices(ctx, sess, date, p.CompanyID)
	if err != nil {
		return nil, err
	}
	report := accounting.NewAgedReceivables(date, invoices)
	return &report, nil
}

// OpenInvoices loads posted customer invoices that are not fully paid at asOf
func (s *Service) OpenInvoices(ctx context.Context, sess odoo.Session, asOf time.Time, companyID int) ([]accounting.OpenInvoice, error) {
	domain := odoo.Where("move_type", "=", "out_invoice").
		And("state", "=", "posted").
		And("payment_state", "in", []string{"not_paid", "partial"}).
		And("invoice_date", "<=", odoo.FormatDate(asOf))
	if companyID > 0 {
		domain = domain.And("company_id", "=", companyID)
	}
	recs, err := s.odoo.SearchRead(ctx, sess, odoo.ModelAccountMove, domain, odoo.Options{
		Fields: []string{"name", "partner_id", "invoice_date", "invoice_date_due", "amount_total", "amount_residual"},
		Order:  "invoice_date_due, id",
	})
	if err != nil {
		return nil, err
	}
	out := make([]accounting.OpenInvoice, 0, len(recs))
	for _, r := range recs {
		partnerID, partnerName := r.Many2One("partner_id")
		out = append(out, accounting.OpenInvoice{
			ID:          r.ID(),
			Name:        r.String("name"),
			PartnerID:   partnerID,
			PartnerName: partnerName,
			InvoiceDate: r.Date("invoice_date"),
			DueDate:     r.Date("invoice_date_due"),
			Total:       r.Decimal("amount_total"),
			Residual:    r.Decimal("amount_residual"),
		})
	}
	return out, nil
}

// TaxReport sums tax bases and tax amounts per tax over a period. Amounts are
// credit-positive, so collected tax is positive and deductible tax negative.
func (s *Service) TaxReport(ctx context.Context, sess odoo.Session, p ReportParams) (*TaxReport, error) {
	from, to, domain, err := s.period(p)
	if err != nil {
		return nil, err
	}
	domain = domain.And("parent_state", "=", "posted")
	if p.CompanyID > 0 {
		domain = domain.And("company_id", "=", p.CompanyID)
	}

	bases, err := s.taxAmounts(ctx, sess, domain.And("tax_ids", "!=", false), "tax_ids")
	if err != nil {
		return nil, err
	}
	taxes, err := s.taxAmounts(ctx, sess, domain.And("tax_line_id", "!=", false), "tax_line_id")
	if err != nil {
		return nil, err
	}
	return &TaxReport{
		DateFrom: optionalDate(from),
		DateTo:   odoo.FormatDate(to),
		Taxes:    accounting.NewTaxReport(bases, taxes),
	}, nil
}

func (s *Service) taxAmounts(ctx context.Context, sess odoo.Session, domain odoo.Domain, field string) ([]accounting.TaxAmount, error) {
	rows, err := s.odoo.ReadGroup(ctx, sess, odoo.ModelAccountMoveLine, domain,
		[]string{field, "balance:sum"}, []string{field}, odoo.Options{})
	if err != nil {
		return nil, err
	}
	out := make([]accounting.TaxAmount, 0, len(rows))
	for _, r := range rows {
		id, name := r.Many2One(field)
		if id == 0 {
			continue
		}
		out = append(out, accounting.TaxAmount{TaxID: id, TaxName: name, Amount: r.Decimal("balance").Neg()})
	}
	return out, nil
}

// period resolves date_from/date_to into a domain on "date". date_to falls
// back to date and then to today; date_from is optional.
func (s *Service) period(p ReportParams) (time.Time, time.Time, odoo.Domain, error) {
	toRaw := p.DateTo
	if toRaw == "" {
		toRaw = p.Date
	}
	to, err := parseDate(toRaw, s.today())
	if err != nil {
		return time.Time{}, time.Time{}, nil, err
	}
	from, err := parseDate(p.DateFrom, time.Time{})
	if err != nil {
		return time.Time{}, time.Time{}, nil, err
	}
	if !from.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, nil, shared.NewInvalidInputError("date_from must not be after date_to")
	}

	domain := odoo.Where("date", "<=", odoo.FormatDate(to))
	if !from.IsZero() {
		domain = domain.And("date", ">=", odoo.FormatDate(from))
	}
	return from, to, domain, nil
}

// balances sums posted journal items per account, then folds the accounts
// into their account types.
func (s *Service) balances(ctx context.Context, sess odoo.Session, domain odoo.Domain, companyID int, types []string) (accounting.Balances, error) {
	ctx, span := telemetry.StartSpan(ctx, "accounting.balances", telemetry.AttrDatabase, sess.DB)
	defer span.End()

	domain = domain.And("parent_state", "=", "posted").
		And("account_id.account_type", "in", types)
	if companyID > 0 {
		domain = domain.And("company_id", "=", companyID)
	}
	rows, err := s.odoo.ReadGroup(ctx, sess, odoo.ModelAccountMoveLine, domain,
		[]string{"account_id", "debit:sum", "credit:sum"}, []string{"account_id"}, odoo.Options{})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(rows) == 0 {
		return accounting.NewBalances(nil), nil
	}

	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		if id := r.Many2OneID("account_id"); id > 0 {
			ids = append(ids, id)
		}
	}
	accounts, err := s.odoo.Read(ctx, sess, odoo.ModelAccountAccount, ids, []string{"account_type"})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	typeOf := make(map[int]string, len(accounts))
	for _, a := range accounts {
		typeOf[a.ID()] = a.String("account_type")
	}

	balances := make([]accounting.TypeBalance, 0, len(rows))
	for _, r := range rows {
		t, ok := typeOf[r.Many2OneID("account_id")]
		if !ok {
			continue
		}
		balances = append(balances, accounting.TypeBalance{
			AccountType: t,
			Debit:       r.Decimal("debit"),
			Credit:      r.Decimal("credit"),
		})
	}
	return accounting.NewBalances(balances), nil
}

// Prorata answers a read_group on a model whose records span a
// date_from/date_to period. When the domain carries a date window and the
// aggregates are sums, every record contributes in proportion to the days it
// shares with the window. Other requests go to read_group unchanged.
func (s *Service) Prorata(ctx context.Context, sess odoo.Session, q ProrataQuery) ([]map[string]any, error) {
	if q.Model == "" {
		return nil, shared.NewInvalidInputError("model is required")
	}
	domain, err := odoo.DomainFromList(q.Domain)
	if err != nil {
		return nil, shared.NewInvalidInputError("Invalid domain")
	}
	if len(q.Aggregates) == 0 {
		q.Aggregates = []string{"__count"}
	}

	terms := toTerms(domain)
	window, ok := accounting.DateRangeFromDomain(terms)
	if !ok || !accounting.CanProrate(q.Aggregates, q.GroupBy) {
		rows, err := s.odoo.ReadGroup(ctx, sess, q.Model, domain, q.Aggregates, q.GroupBy, odoo.Options{})
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, len(rows))
		for i, r := range rows {
			out[i] = r
		}
		return out, nil
	}

	fields := []string{"date_from", "date_to"}
	for _, a := range q.Aggregates {
		if a != "__count" {
			fields = append(fields, strings.TrimSuffix(a, ":sum"))
		}
	}
	fields = append(fields, q.GroupBy...)

	recs, err := s.odoo.SearchRead(ctx, sess, q.Model, fromTerms(accounting.RewriteDateDomain(terms)), odoo.Options{Fields: fields})
	if err != nil {
		return nil, err
	}
	items := make([]accounting.BudgetItem, 0, len(recs))
	for _, r := range recs {
		period := accounting.DateRange{From: r.Date("date_from"), To: r.Date("date_to")}
		if period.From.IsZero() || period.To.IsZero() {
			continue
		}
		items = append(items, accounting.BudgetItem{Period: period, Values: r})
	}

	groups := accounting.Prorate(items, q.Aggregates, q.GroupBy, window)
	out := make([]map[string]any, len(groups))
	for i, g := range groups {
		out[i] = g.ToRecord()
	}
	return out, nil
}

func toTerms(d odoo.Domain) []accounting.Term {
	out := make([]accounting.Term, len(d))
	for i, c := range d {
		out[i] = accounting.Term{Field: c.Field, Operator: c.Operator, Value: c.Value}
	}
	return out
}

func fromTerms(terms []accounting.Term) odoo.Domain {
	out := make(odoo.Domain, len(terms))
	for i, t := range terms {
		out[i] = odoo.Condition{Field: t.Field, Operator: t.Operator, Value: t.Value}
	}
	return out
}
