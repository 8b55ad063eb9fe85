package accounting

import (
	"context"
	"errors"
	"sort"

	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

// MaxSuggestions caps reconciliation suggestions per statement line
const MaxSuggestions = 10

var receivablePayable = []string{"asset_receivable", "liability_payable"}

// ListPayments lists account.payment records
func (s *Service) ListPayments(ctx context.Context, sess odoo.Session, f PaymentFilter) ([]PaymentSummary, error) {
	domain, err := odoo.ParseDomain(f.Domain)
	if err != nil {
		return nil, shared.NewInvalidInputError("Invalid domain")
	}
	if f.PaymentType != "" {
		domain = domain.And("payment_type", "=", f.PaymentType)
	}
	if f.State != "" {
		domain = domain.And("state", "=", f.State)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	recs, err := s.odoo.SearchRead(ctx, sess, odoo.ModelAccountPayment, domain, odoo.Options{
		Fields: []string{"name", "partner_id", "amount", "date", "payment_type", "state", "ref"},
		Limit:  limit,
		Order:  "date desc, id desc",
	})
	if err != nil {
		return nil, err
	}
	out := make([]PaymentSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, PaymentSummary{
			ID:          r.ID(),
			Name:        r.String("name"),
			PartnerName: r.Many2OneName("partner_id"),
			Amount:      r.Decimal("amount"),
			PaymentDate: dateOrNil(r, "date"),
			PaymentType: r.String("payment_type"),
			State:       r.String("state"),
			Ref:         r.String("ref"),
		})
	}
	return out, nil
}

// BankStatements lists statements that are not complete yet
func (s *Service) BankStatements(ctx context.Context, sess odoo.Session) ([]BankStatement, error) {
	recs, err := s.odoo.SearchRead(ctx, sess, odoo.ModelAccountBankStmt,
		odoo.Where("is_complete", "=", false),
		odoo.Options{
			Fields: []string{"name", "journal_id", "balance_start", "balance_end_real", "date", "line_ids"},
			Order:  "date desc, id desc",
		})
	if err != nil {
		return nil, err
	}
	out := make([]BankStatement, 0, len(recs))
	for _, r := range recs {
		journalID, journalName := r.Many2One("journal_id")
		out = append(out, BankStatement{
			ID:             r.ID(),
			Name:           r.String("name"),
			JournalID:      journalID,
			JournalName:    journalName,
			BalanceStart:   r.Decimal("balance_start"),
			BalanceEndReal: r.Decimal("balance_end_real"),
			Date:           dateOrNil(r, "date"),
			LineCount:      len(r.IDs("line_ids")),
		})
	}
	return out, nil
}

// Suggestions proposes open journal items that could settle a bank
// statement line, closest amount first.
func (s *Service) Suggestions(ctx context.Context, sess odoo.Session, lineID int) ([]Suggestion, error) {
	line, err := s.odoo.ReadOne(ctx, sess, odoo.ModelAccountBankStmtLine, lineID, []string{"partner_id", "amount", "company_id"})
	if err != nil {
		if errors.Is(err, odoo.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Line not found")
		}
		return nil, err
	}

	amount := line.Decimal("amount")
	domain := odoo.Where("reconciled", "=", false).
		And("parent_state", "=", "posted").
		And("account_type", "in", receivablePayable)
	if amount.IsNegative() {
		domain = domain.And("amount_residual", "<", 0)
	} else {
		domain = domain.And("amount_residual", ">", 0)
	}
	if partnerID := line.Many2OneID("partner_id"); partnerID > 0 {
		domain = domain.And("partner_id", "=", partnerID)
	}
	if companyID := line.Many2OneID("company_id"); companyID > 0 {
		domain = domain.And("company_id", "=", companyID)
	}

	recs, err := s.odoo.SearchRead(ctx, sess, odoo.ModelAccountMoveLine, domain, odoo.Options{
		Fields: []string{"name", "partner_id", "amount_residual", "date"},
		Limit:  MaxSuggestions * 5,
		Order:  "date desc, id desc",
	})
	if err != nil {
		return nil, err
	}

	target := amount.Abs()
	sort.SliceStable(recs, func(i, j int) bool {
		di := recs[i].Decimal("amount_residual").Abs().Sub(target).Abs()
		dj := recs[j].Decimal("amount_residual").Abs().Sub(target).Abs()
		return di.LessThan(dj)
	})
	if len(recs) > MaxSuggestions {
		recs = recs[:MaxSuggestions]
	}

	out := make([]Suggestion, 0, len(recs))
	for _, r := range recs {
		var partner any
		if name := r.Many2OneName("partner_id"); name != "" {
			partner = name
		}
		out = append(out, Suggestion{
			ID:          r.ID(),
			Name:        r.String("name"),
			PartnerName: partner,
			Amount:      r.Decimal("amount_residual"),
			Date:        dateOrNil(r, "date"),
		})
	}
	return out, nil
}
