package accounting

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/branding"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/logger"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/printing"
	"github.com/safee-analytics/odoo/internal/infrastructure/storage"
	"github.com/safee-analytics/odoo/internal/infrastructure/telemetry"
)

// DefaultMoveType is listed when no type filter is given
const DefaultMoveType = "out_invoice"

// Invoice email template and layout
const (
	InvoiceTemplateModule = "account"
	InvoiceTemplateName   = "email_template_edi_invoice"
	invoiceEmailLayout    = "mail.mail_notification_layout_with_responsible_signature"
	commentSubtype        = "mail.mt_comment"
)

var invoiceListFields = []string{
	"id", "name", "partner_id", "invoice_date", "invoice_date_due",
	"amount_untaxed", "amount_tax", "amount_total", "amount_residual",
	"state", "payment_state", "currency_id",
}

// ListInvoices lists account.move records of one type
func (s *Service) ListInvoices(ctx context.Context, sess odoo.Session, f InvoiceFilter) (*InvoiceList, error) {
	domain, err := odoo.ParseDomain(f.Domain)
	if err != nil {
		return nil, shared.NewInvalidInputError("Invalid domain")
	}
	moveType := f.Type
	if moveType == "" {
		moveType = DefaultMoveType
	}
	domain = domain.And("move_type", "=", moveType)
	if f.State != "" {
		domain = domain.And("state", "=", f.State)
	}
	if f.PaymentState != "" {
		domain = domain.And("payment_state", "=", f.PaymentState)
	}
	if f.PartnerID > 0 {
		domain = domain.And("partner_id", "=", f.PartnerID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	recs, err := s.odoo.SearchRead(ctx, sess, odoo.ModelAccountMove, domain, odoo.Options{
		Fields: invoiceListFields,
		Limit:  limit,
		Offset: f.Offset,
		Order:  "invoice_date desc, id desc",
	})
	if err != nil {
		return nil, err
	}
	total, err := s.odoo.SearchCount(ctx, sess, odoo.ModelAccountMove, domain)
	if err != nil {
		return nil, err
	}

	out := make([]InvoiceSummary, 0, len(recs))
	for _, r := range recs {
		partnerID, partnerName := r.Many2One("partner_id")
		out = append(out, InvoiceSummary{
			ID:             r.ID(),
			Name:           r.String("name"),
			PartnerID:      partnerID,
			PartnerName:    partnerName,
			InvoiceDate:    dateOrNil(r, "invoice_date"),
			InvoiceDateDue: dateOrNil(r, "invoice_date_due"),
			AmountUntaxed:  r.Decimal("amount_untaxed"),
			AmountTax:      r.Decimal("amount_tax"),
			AmountTotal:    r.Decimal("amount_total"),
			AmountResidual: r.Decimal("amount_residual"),
			State:          r.String("state"),
			PaymentState:   r.String("payment_state"),
			Currency:       r.Many2OneName("currency_id"),
		})
	}
	return &InvoiceList{Invoices: out, Total: total}, nil
}

// PostInvoice validates a draft invoice
func (s *Service) PostInvoice(ctx context.Context, sess odoo.Session, id int) (*PostResult, error) {
	if _, err := s.readInvoice(ctx, sess, id, []string{"id"}); err != nil {
		return nil, err
	}
	if _, err := s.odoo.CallMethod(ctx, sess, odoo.ModelAccountMove, "action_post", []int{id}, nil, nil); err != nil {
		return nil, err
	}
	rec, err := s.readInvoice(ctx, sess, id, []string{"name", "state", "amount_total", "payment_state"})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Invoice posted", zap.Int("invoice_id", id), zap.String("name", rec.String("name")))
	return &PostResult{
		ID:           id,
		Name:         rec.String("name"),
		State:        rec.String("state"),
		AmountTotal:  rec.Decimal("amount_total"),
		PaymentState: rec.String("payment_state"),
	}, nil
}

// RegisterPayment creates and posts a payment for a posted invoice, then
// reconciles it against the invoice.
func (s *Service) RegisterPayment(ctx context.Context, sess odoo.Session, id int, in PaymentInput) (*PaymentResult, error) {
	inv, err := s.readInvoice(ctx, sess, id, []string{"name", "move_type", "state", "partner_id", "amount_residual"})
	if err != nil {
		return nil, err
	}
	if inv.String("state") != "posted" {
		return nil, shared.NewInvalidInputError("Invoice must be posted before registering a payment")
	}

	amount := inv.Decimal("amount_residual")
	if in.Amount != nil {
		amount = *in.Amount
	}
	if !amount.IsPositive() {
		return nil, shared.NewInvalidInputError("Payment amount must be greater than zero")
	}
	date, err := parseDate(in.PaymentDate, s.today())
	if err != nil {
		return nil, err
	}

	paymentType, partnerType := "outbound", "supplier"
	switch inv.String("move_type") {
	case "out_invoice", "out_refund":
		paymentType, partnerType = "inbound", "customer"
	}

	vals := map[string]any{
		"payment_type": paymentType,
		"partner_type": partnerType,
		"partner_id":   inv.Many2OneID("partner_id"),
		"amount":       amount.InexactFloat64(),
		"date":         odoo.FormatDate(date),
		"ref":          inv.String("name"),
	}
	if in.JournalID > 0 {
		vals["journal_id"] = in.JournalID
	}
	if in.PaymentMethodID > 0 {
		vals["payment_method_line_id"] = in.PaymentMethodID
	}

	ctx, span := telemetry.StartSpan(ctx, "accounting.register_payment", telemetry.AttrRecordID, id)
	defer span.End()

	paymentID, err := s.odoo.Create(ctx, sess, odoo.ModelAccountPayment, vals)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := s.odoo.CallMethod(ctx, sess, odoo.ModelAccountPayment, "action_post", []int{paymentID}, nil, nil); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payment, err := s.odoo.ReadOne(ctx, sess, odoo.ModelAccountPayment, paymentID, []string{"name", "amount", "move_id"})
	if err != nil {
		return nil, err
	}

	lines, err := s.odoo.SearchRead(ctx, sess, odoo.ModelAccountMoveLine,
		odoo.Where("move_id", "=", payment.Many2OneID("move_id")).
			And("reconciled", "=", false).
			And("account_type", "in", []string{"asset_receivable", "liability_payable"}),
		odoo.Options{Fields: []string{"id"}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if _, err := s.odoo.CallMethod(ctx, sess, odoo.ModelAccountMove, "js_assign_outstanding_line",
			[]int{id}, []any{lines[0].ID()}, nil); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	} else {
		s.logger.Warn("Payment has no open counterpart line", zap.Int("payment_id", paymentID), zap.Int("invoice_id", id))
	}

	after, err := s.readInvoice(ctx, sess, id, []string{"payment_state"})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Payment registered",
		zap.Int("invoice_id", id),
		zap.Int("payment_id", paymentID),
		zap.String("amount", amount.String()),
	)
	return &PaymentResult{
		PaymentID:           paymentID,
		PaymentName:         payment.String("name"),
		Amount:              payment.Decimal("amount"),
		InvoicePaymentState: after.String("payment_state"),
	}, nil
}

// SendInvoiceEmail posts the invoice email template on the invoice chatter,
// which mails the customer. It returns the confirmation message.
func (s *Service) SendInvoiceEmail(ctx context.Context, sess odoo.Session, id int) (string, error) {
	inv, err := s.readInvoice(ctx, sess, id, []string{"name", "partner_id"})
	if err != nil {
		return "", err
	}
	partner, err := s.odoo.ReadOne(ctx, sess, odoo.ModelPartner, inv.Many2OneID("partner_id"), []string{"email"})
	if err != nil {
		return "", err
	}

	tmpl, err := s.odoo.SearchRead(ctx, sess, odoo.ModelIrModelData,
		odoo.Where("module", "=", InvoiceTemplateModule).
			And("name", "=", InvoiceTemplateName).
			And("model", "=", odoo.ModelMailTemplate),
		odoo.Options{Fields: []string{"res_id"}, Limit: 1})
	if err != nil {
		return "", err
	}
	if len(tmpl) > 0 {
		_, err := s.odoo.CallMethod(ctx, sess, odoo.ModelAccountMove, "message_post_with_source", []int{id},
			[]any{InvoiceTemplateModule + "." + InvoiceTemplateName},
			map[string]any{
				"email_layout_xmlid": invoiceEmailLayout,
				"subtype_xmlid":      commentSubtype,
			})
		if err != nil {
			return "", err
		}
	} else {
		s.logger.Warn("Invoice email template missing", zap.String("db", sess.DB))
	}
	return fmt.Sprintf("Invoice %s sent to %s", inv.String("name"), partner.String("email")), nil
}

var (
	pdfInvoiceFields = []string{
		"name", "move_type", "state", "invoice_date", "invoice_date_due", "currency_id",
		"partner_id", "company_id", "amount_untaxed", "amount_tax", "amount_total",
		"amount_residual", "payment_reference", "narration",
	}
	pdfLineFields  = []string{"name", "quantity", "price_unit", "discount", "price_subtotal"}
	partyFields    = []string{"name", "street", "city", "country_id", "vat", "email"}
	pdfCompanyKeys = append(append([]string{"logo"}, partyFields...), branding.CompanyFields...)
)

// InvoicePDF renders an invoice with the company's document style. With an
// artifact store configured the PDF is uploaded and a link is returned.
func (s *Service) InvoicePDF(ctx context.Context, sess odoo.Session, id int) (*PDFResult, error) {
	inv, err := s.readInvoice(ctx, sess, id, pdfInvoiceFields)
	if err != nil {
		return nil, err
	}
	doc, style, err := s.invoiceDocument(ctx, sess, id, inv)
	if err != nil {
		return nil, err
	}

	html, err := printing.RenderInvoiceHTML(doc, style)
	if err != nil {
		return nil, err
	}
	res, err := s.renderer.Render(ctx, &printing.RenderRequest{
		HTML:    html,
		Title:   doc.Number,
		Margins: printing.DefaultMargins,
	})
	if err != nil {
		return nil, err
	}

	filename := strings.NewReplacer("/", "_", " ", "_").Replace(doc.Number) + ".pdf"
	if s.store == nil {
		return &PDFResult{Filename: filename, PDF: res.PDF}, nil
	}
	key := storage.InvoicePDFKey(sess.DB, id, doc.Number)
	if err := s.store.Put(ctx, key, res.PDF, storage.ContentTypePDF); err != nil {
		return nil, err
	}
	url, expires, err := s.store.DownloadURL(ctx, key, s.presign)
	if err != nil {
		return nil, err
	}
	return &PDFResult{Filename: filename, URL: url, ExpiresAt: expires}, nil
}

func (s *Service) invoiceDocument(ctx context.Context, sess odoo.Session, id int, inv odoo.Record) (printing.InvoiceDocument, branding.Style, error) {
	company, err := s.odoo.ReadOne(ctx, sess, odoo.ModelCompany, inv.Many2OneID("company_id"), pdfCompanyKeys)
	if err != nil {
		return printing.InvoiceDocument{}, branding.Style{}, err
	}
	customer, err := s.odoo.ReadOne(ctx, sess, odoo.ModelPartner, inv.Many2OneID("partner_id"), partyFields)
	if err != nil {
		return printing.InvoiceDocument{}, branding.Style{}, err
	}
	lines, err := s.odoo.SearchRead(ctx, sess, odoo.ModelAccountMoveLine,
		odoo.Where("move_id", "=", id).And("display_type", "=", "product"),
		odoo.Options{Fields: pdfLineFields, Order: "sequence, id"})
	if err != nil {
		return printing.InvoiceDocument{}, branding.Style{}, err
	}

	doc := printing.InvoiceDocument{
		Number:        inv.String("name"),
		MoveType:      inv.String("move_type"),
		State:         inv.String("state"),
		InvoiceDate:   inv.Date("invoice_date"),
		DueDate:       inv.Date("invoice_date_due"),
		Currency:      inv.Many2OneName("currency_id"),
		Company:       party(company),
		Customer:      party(customer),
		AmountUntaxed: inv.Decimal("amount_untaxed"),
		AmountTax:     inv.Decimal("amount_tax"),
		AmountTotal:   inv.Decimal("amount_total"),
		AmountDue:     inv.Decimal("amount_residual"),
		PaymentRef:    inv.String("payment_reference"),
		Notes:         inv.String("narration"),
	}
	if logo := company.String("logo"); logo != "" {
		doc.LogoDataURI = printing.LogoDataURI(logo)
	}
	for _, l := range lines {
		doc.Lines = append(doc.Lines, printing.InvoiceLine{
			Description: l.String("name"),
			Quantity:    l.Decimal("quantity"),
			PriceUnit:   l.Decimal("price_unit"),
			Discount:    l.Decimal("discount"),
			Subtotal:    l.Decimal("price_subtotal"),
		})
	}
	return doc, branding.FromCompany(company), nil
}

func party(r odoo.Record) printing.Party {
	return printing.Party{
		Name:    r.String("name"),
		Street:  r.String("street"),
		City:    r.String("city"),
		Country: r.Many2OneName("country_id"),
		VAT:     r.String("vat"),
		Email:   r.String("email"),
	}
}
