package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	accountingapp "github.com/safee-analytics/odoo/internal/application/accounting"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/interfaces/http/dto"
)

// AccountingService wraps Odoo's accounting workflows and reports
type AccountingService interface {
	ListInvoices(ctx context.Context, sess odoo.Session, f accountingapp.InvoiceFilter) (*accountingapp.InvoiceList, error)
	PostInvoice(ctx context.Context, sess odoo.Session, id int) (*accountingapp.PostResult, error)
	RegisterPayment(ctx context.Context, sess odoo.Session, id int, in accountingapp.PaymentInput) (*accountingapp.PaymentResult, error)
	SendInvoiceEmail(ctx context.Context, sess odoo.Session, id int) (string, error)
	InvoicePDF(ctx context.Context, sess odoo.Session, id int) (*accountingapp.PDFResult, error)
	ListPayments(ctx context.Context, sess odoo.Session, f accountingapp.PaymentFilter) ([]accountingapp.PaymentSummary, error)
	BankStatements(ctx context.Context, sess odoo.Session) ([]accountingapp.BankStatement, error)
	Suggestions(ctx context.Context, sess odoo.Session, lineID int) ([]accountingapp.Suggestion, error)
	Report(ctx context.Context, sess odoo.Session, name string, p accountingapp.ReportParams) (any, error)
	ExportReport(ctx context.Context, sess odoo.Session, name string, p accountingapp.ReportParams) (*accountingapp.ExportResult, error)
	Prorata(ctx context.Context, sess odoo.Session, q accountingapp.ProrataQuery) ([]map[string]any, error)
}

// AccountingHandler serves /api/accounting
type AccountingHandler struct {
	BaseHandler
	acct AccountingService
}

// NewAccountingHandler creates the handler
func NewAccountingHandler(svc AccountingService) *AccountingHandler {
	return &AccountingHandler{acct: svc}
}

// invoiceQuery binds the invoice list filters
type invoiceQuery struct {
	Type         string `form:"type" json:"type"`
	State        string `form:"state" json:"state"`
	PaymentState string `form:"payment_state" json:"payment_state"`
	PartnerID    int    `form:"partner_id" json:"partner_id" binding:"omitempty,min=1"`
	dto.ListRequest
}

// reportQuery binds the report parameters from the query string or body
type reportQuery struct {
	Date      string `form:"date" json:"date"`
	DateFrom  string `form:"date_from" json:"date_from"`
	DateTo    string `form:"date_to" json:"date_to"`
	CompanyID int    `form:"company_id" json:"company_id" binding:"omitempty,min=1"`
}

func (q reportQuery) params() accountingapp.ReportParams {
	return accountingapp.ReportParams{Date: q.Date, DateFrom: q.DateFrom, DateTo: q.DateTo, CompanyID: q.CompanyID}
}

// ListInvoices godoc
// @Summary      List invoices
// @Tags         Accounting
// @Produce      json
// @Param        type          query string false "Move type" default(out_invoice)
// @Param        state         query string false "draft, posted or cancel"
// @Param        payment_state query string false "Payment state"
// @Param        partner_id    query int    false "Partner id"
// @Param        domain        query string false "Extra JSON domain"
// @Success      200 {object} dto.Response
// @Router       /api/accounting/invoices/list [post]
// @Router       /api/accounting/invoices [get]
func (h *AccountingHandler) ListInvoices(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var q invoiceQuery
	if err := bindQueryOrBody(c, &q); err != nil {
		h.ValidationError(c, err)
		return
	}
	list, err := h.acct.ListInvoices(c.Request.Context(), sess, accountingapp.InvoiceFilter{
		Type:         q.Type,
		State:        q.State,
		PaymentState: q.PaymentState,
		PartnerID:    q.PartnerID,
		Domain:       string(q.Domain),
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(list.Invoices, int64(list.Total), len(list.Invoices), q.Limit, q.Offset))
}

// PostInvoice validates a draft invoice
func (h *AccountingHandler) PostInvoice(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}
	res, err := h.acct.PostInvoice(c.Request.Context(), sess, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// RegisterPayment godoc
// @Summary      Register a payment against a posted invoice
// @Description  The amount defaults to the invoice residual and the date to today.
// @Tags         Accounting
// @Accept       json
// @Produce      json
// @Param        id      path int                        true  "Invoice id"
// @Param        request body accountingapp.PaymentInput false "Payment"
// @Success      200 {object} dto.Response{data=accountingapp.PaymentResult}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /api/accounting/invoice/{id}/register_payment [post]
func (h *AccountingHandler) RegisterPayment(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}
	var in accountingapp.PaymentInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			h.BadRequest(c, "Invalid JSON body")
			return
		}
	}
	res, err := h.acct.RegisterPayment(c.Request.Context(), sess, id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// SendEmail mails the invoice with Odoo's invoice template
func (h *AccountingHandler) SendEmail(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}
	msg, err := h.acct.SendInvoiceEmail(c.Request.Context(), sess, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": msg})
}

// InvoicePDF returns a presigned link when storage is configured and the
// PDF itself otherwise.
func (h *AccountingHandler) InvoicePDF(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}
	res, err := h.acct.InvoicePDF(c.Request.Context(), sess, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if res.URL != "" {
		h.Success(c, gin.H{"filename": res.Filename, "url": res.URL, "expires_at": res.ExpiresAt})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", res.Filename))
	c.Data(http.StatusOK, "application/pdf", res.PDF)
}

// paymentQuery binds the payment list filters
type paymentQuery struct {
	PaymentType string `form:"payment_type" json:"payment_type" binding:"omitempty,oneof=inbound outbound"`
	State       string `form:"state" json:"state"`
	dto.ListRequest
}

// ListPayments lists payments
func (h *AccountingHandler) ListPayments(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var q paymentQuery
	if err := bindQueryOrBody(c, &q); err != nil {
		h.ValidationError(c, err)
		return
	}
	payments, err := h.acct.ListPayments(c.Request.Context(), sess, accountingapp.PaymentFilter{
		PaymentType: q.PaymentType,
		State:       q.State,
		Domain:      string(q.Domain),
		Limit:       q.Limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"payments": payments, "count": len(payments)})
}

// BankStatements lists statements still being reconciled
func (h *AccountingHandler) BankStatements(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	statements, err := h.acct.BankStatements(c.Request.Context(), sess)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"statements": statements, "count": len(statements)})
}

// Suggestions proposes move lines matching a statement line
func (h *AccountingHandler) Suggestions(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	lineID, ok := h.intParam(c, "line_id")
	if !ok {
		return
	}
	suggestions, err := h.acct.Suggestions(c.Request.Context(), sess, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"line_id": lineID, "suggestions": suggestions})
}

// Report godoc
// @Summary      Build a financial report
// @Tags         Accounting
// @Produce      json
// @Param        report     path  string true  "balance_sheet, profit_loss, aged_receivables, cash_flow or tax_report"
// @Param        date       query string false "As-of date (YYYY-MM-DD)"
// @Param        date_from  query string false "Period start"
// @Param        date_to    query string false "Period end"
// @Param        company_id query int    false "Company"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /api/accounting/reports/{report} [post]
// @Router       /api/accounting/reports/{report} [get]
func (h *AccountingHandler) Report(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var q reportQuery
	if err := bindQueryOrBody(c, &q); err != nil {
		h.ValidationError(c, err)
		return
	}
	report, err := h.acct.Report(c.Request.Context(), sess, c.Param("report"), q.params())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ExportReport stores a report in object storage. Parameters come from
// the JSON body, falling back to the query string.
func (h *AccountingHandler) ExportReport(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var q reportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&q); err != nil {
			h.BadRequest(c, "Invalid JSON body")
			return
		}
	}
	res, err := h.acct.ExportReport(c.Request.Context(), sess, c.Param("report"), q.params())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Prorata runs a read_group whose sums are prorated to the domain's date
// window.
func (h *AccountingHandler) Prorata(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var q accountingapp.ProrataQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		h.BadRequest(c, "Invalid JSON body")
		return
	}
	groups, err := h.acct.Prorata(c.Request.Context(), sess, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"groups": groups, "count": len(groups)})
}
