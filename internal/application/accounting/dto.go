package accounting

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/safee-analytics/odoo/internal/domain/accounting"
)

// InvoiceFilter holds the invoice list parameters
type InvoiceFilter struct {
	Type         string
	State        string
	PaymentState string
	PartnerID    int
	Domain       string
	Limit        int
	Offset       int
}

// InvoiceSummary is one row of the invoice list
type InvoiceSummary struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	PartnerID      int             `json:"partner_id"`
	PartnerName    string          `json:"partner_name"`
	InvoiceDate    any             `json:"invoice_date"`
	InvoiceDateDue any             `json:"invoice_date_due"`
	AmountUntaxed  decimal.Decimal `json:"amount_untaxed"`
	AmountTax      decimal.Decimal `json:"amount_tax"`
	AmountTotal    decimal.Decimal `json:"amount_total"`
	AmountResidual decimal.Decimal `json:"amount_residual"`
	State          string          `json:"state"`
	PaymentState   string          `json:"payment_state"`
	Currency       string          `json:"currency"`
}

// InvoiceList is one page of invoices
type InvoiceList struct {
	Invoices []InvoiceSummary
	Total    int
}

// PostResult is the invoice state after action_post
type PostResult struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	State        string          `json:"state"`
	AmountTotal  decimal.Decimal `json:"amount_total"`
	PaymentState string          `json:"payment_state"`
}

// PaymentInput is the body of register_payment
type PaymentInput struct {
	Amount          *decimal.Decimal `json:"amount"`
	PaymentDate     string           `json:"payment_date"`
	JournalID       int              `json:"journal_id"`
	PaymentMethodID int              `json:"payment_method_id"`
}

// PaymentResult describes the registered payment
type PaymentResult struct {
	PaymentID           int             `json:"payment_id"`
	PaymentName         string          `json:"payment_name"`
	Amount              decimal.Decimal `json:"amount"`
	InvoicePaymentState string          `json:"invoice_payment_state"`
}

// PDFResult is either a download link or the document itself
type PDFResult struct {
	Filename  string
	URL       string
	ExpiresAt time.Time
	PDF       []byte
}

// PaymentFilter holds the payment list parameters
type PaymentFilter struct {
	PaymentType string
	State       string
	Domain      string
	Limit       int
}

// PaymentSummary is one row of the payment list
type PaymentSummary struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	PartnerName string          `json:"partner_name"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate any             `json:"payment_date"`
	PaymentType string          `json:"payment_type"`
	State       string          `json:"state"`
	Ref         string          `json:"ref"`
}

// BankStatement is an open statement awaiting reconciliation
type BankStatement struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	JournalID      int             `json:"journal_id"`
	JournalName    string          `json:"journal_name"`
	BalanceStart   decimal.Decimal `json:"balance_start"`
	BalanceEndReal decimal.Decimal `json:"balance_end_real"`
	Date           any             `json:"date"`
	LineCount      int             `json:"line_count"`
}

// Suggestion is a journal item that could match a statement line
type Suggestion struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	PartnerName any             `json:"partner_name"`
	Amount      decimal.Decimal `json:"amount"`
	Date        any             `json:"date"`
}

// ReportParams are the common report parameters
type ReportParams struct {
	Date      string `json:"date"`
	DateFrom  string `json:"date_from"`
	DateTo    string `json:"date_to"`
	CompanyID int    `json:"company_id"`
}

// TaxReport wraps the tax lines with the period
type TaxReport struct {
	DateFrom string               `json:"date_from"`
	DateTo   string               `json:"date_to"`
	Taxes    []accounting.TaxLine `json:"taxes"`
}

// ExportResult points at a stored report
type ExportResult struct {
	Report    string    `json:"report"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProrataQuery is a read_group request on a model with date_from/date_to
// periods, e.g. budget lines.
type ProrataQuery struct {
	Model      string   `json:"model"`
	Domain     []any    `json:"domain"`
	Aggregates []string `json:"fields"`
	GroupBy    []string `json:"groupby"`
}
