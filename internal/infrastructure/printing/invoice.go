package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safee-analytics/odoo/internal/domain/branding"
)

// InvoiceLine is one printed invoice line
type InvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	PriceUnit   decimal.Decimal
	Discount    decimal.Decimal
	Subtotal    decimal.Decimal
}

// Party is the company or customer block of an invoice
type Party struct {
	Name    string
	Street  string
	City    string
	Country string
	VAT     string
	Email   string
}

// InvoiceDocument carries everything the invoice template prints
type InvoiceDocument struct {
	Number        string
	MoveType      string
	State         string
	InvoiceDate   time.Time
	DueDate       time.Time
	Currency      string
	Company       Party
	Customer      Party
	LogoDataURI   template.URL
	Lines         []InvoiceLine
	AmountUntaxed decimal.Decimal
	AmountTax     decimal.Decimal
	AmountTotal   decimal.Decimal
	AmountDue     decimal.Decimal
	PaymentRef    string
	Notes         string
}

// Title returns the document caption, honouring the company's invoice label
func (d InvoiceDocument) Title(style branding.Style) string {
	switch d.MoveType {
	case "out_refund", "in_refund":
		return "CREDIT NOTE"
	case "in_invoice":
		return "VENDOR BILL"
	}
	return style.Labels.Invoice
}

var fontSizes = map[string]string{
	"small":  "12px",
	"medium": "14px",
	"large":  "16px",
}

var invoiceFuncs = template.FuncMap{
	"money": func(d decimal.Decimal, currency string) string {
		return strings.TrimSpace(d.StringFixed(2) + " " + currency)
	},
	"qty": func(d decimal.Decimal) string {
		return d.String()
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"positive": func(d decimal.Decimal) bool {
		return d.IsPositive()
	},
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(invoiceFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}} {{.Doc.Number}}</title>
<style>
  body { font-family: "{{.Style.Font}}", sans-serif; font-size: {{.FontSize}}; color: {{.Style.TextColor}}; background: {{.Style.BackgroundColor}}; margin: 0; }
  .header { display: flex; justify-content: space-between; border-bottom: 3px solid {{.Style.PrimaryColor}}; padding-bottom: 12px; }
  .logo { text-align: {{.Style.LogoPosition}}; }
  .logo img { max-height: 64px; }
  h1 { color: {{.Style.PrimaryColor}}; margin: 0; letter-spacing: 1px; }
  .label { color: {{.Style.SecondaryColor}}; font-weight: 600; font-size: 0.85em; }
  table { width: 100%; border-collapse: collapse; margin-top: 24px; }
  th { background: {{.Style.PrimaryColor}}; color: #FFFFFF; text-align: left; padding: 6px; }
  td { border-bottom: 1px solid #E5E7EB; padding: 6px; }
  td.num, th.num { text-align: right; }
  .totals { width: 40%; margin-left: auto; }
  .totals td.total { color: {{.Style.AccentColor}}; font-weight: 700; }
  .footer { margin-top: 32px; text-align: center; color: {{.Style.SecondaryColor}}; }
</style>
</head>
<body>
<div class="header">
  <div>
    {{if and .Style.ShowLogo .Doc.LogoDataURI}}<div class="logo"><img src="{{.Doc.LogoDataURI}}" alt="logo"></div>{{end}}
    <strong>{{.Doc.Company.Name}}</strong><br>
    {{with .Doc.Company.Street}}{{.}}<br>{{end}}
    {{with .Doc.Company.City}}{{.}}{{end}}{{with .Doc.Company.Country}}, {{.}}{{end}}<br>
    {{with .Doc.Company.VAT}}VAT: {{.}}{{end}}
  </div>
  <div>
    <h1>{{.Title}}</h1>
    <div>{{.Doc.Number}}</div>
    <div><span class="label">{{.Style.Labels.Date}}</span> {{date .Doc.InvoiceDate}}</div>
    {{if not .Doc.DueDate.IsZero}}<div><span class="label">{{.Style.Labels.DueDate}}</span> {{date .Doc.DueDate}}</div>{{end}}
  </div>
</div>

<div style="margin-top: 16px">
  <div class="label">{{.Style.Labels.BillTo}}</div>
  <strong>{{.Doc.Customer.Name}}</strong><br>
  {{with .Doc.Customer.Street}}{{.}}<br>{{end}}
  {{with .Doc.Customer.City}}{{.}}{{end}}{{with .Doc.Customer.Country}}, {{.}}{{end}}<br>
  {{with .Doc.Customer.VAT}}VAT: {{.}}<br>{{end}}
  {{with .Doc.Customer.Email}}{{.}}{{end}}
</div>

<table>
  <thead>
    <tr><th>Description</th><th class="num">Quantity</th><th class="num">Unit Price</th><th class="num">Disc. %</th><th class="num">Amount</th></tr>
  </thead>
  <tbody>
  {{range .Doc.Lines}}
    <tr>
      <td>{{.Description}}</td>
      <td class="num">{{qty .Quantity}}</td>
      <td class="num">{{money .PriceUnit ""}}</td>
      <td class="num">{{if positive .Discount}}{{qty .Discount}}{{end}}</td>
      <td class="num">{{money .Subtotal $.Doc.Currency}}</td>
    </tr>
  {{end}}
  </tbody>
</table>

<table class="totals">
  <tr><td>Untaxed Amount</td><td class="num">{{money .Doc.AmountUntaxed .Doc.Currency}}</td></tr>
  <tr><td>Taxes</td><td class="num">{{money .Doc.AmountTax .Doc.Currency}}</td></tr>
  <tr><td class="total">Total</td><td class="num total">{{money .Doc.AmountTotal .Doc.Currency}}</td></tr>
  {{if positive .Doc.AmountDue}}<tr><td>Amount Due</td><td class="num">{{money .Doc.AmountDue .Doc.Currency}}</td></tr>{{end}}
</table>

{{if and .Style.ShowPaymentInfo .Doc.PaymentRef}}<p><span class="label">Payment Communication:</span> {{.Doc.PaymentRef}}</p>{{end}}
{{if and .Style.ShowNotes .Doc.Notes}}<p>{{.Doc.Notes}}</p>{{end}}

<div class="footer">{{.Style.FooterText}}</div>
</body>
</html>
`))

// RenderInvoiceHTML lays out doc with the company's document style
func RenderInvoiceHTML(doc InvoiceDocument, style branding.Style) (string, error) {
	size, ok := fontSizes[style.FontSize]
	if !ok {
		size = fontSizes[branding.DefaultFontSize]
	}
	data := struct {
		Doc      InvoiceDocument
		Style    branding.Style
		Title    string
		FontSize string
	}{Doc: doc, Style: style, Title: doc.Title(style), FontSize: size}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invoice %s: %w", doc.Number, err)
	}
	return buf.String(), nil
}

// LogoDataURI turns the base64 image Odoo stores in res.company.logo into an
// inline src. Odoo accepts PNG and SVG uploads; SVG payloads start with "PHN2".
func LogoDataURI(b64 string) template.URL {
	mime := "image/png"
	if strings.HasPrefix(b64, "PHN2") || strings.HasPrefix(b64, "PD94") {
		mime = "image/svg+xml"
	}
	return template.URL("data:" + mime + ";base64," + b64)
}
