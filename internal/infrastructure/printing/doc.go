// Package printing renders invoice PDFs with headless Chrome.
//
// InvoiceDocument is filled from Odoo data and executed against the embedded
// HTML template, then ChromedpRenderer prints the page to PDF. When printing
// is disabled DisabledRenderer answers every request with PRINTING_DISABLED.
//
//	html, err := printing.RenderInvoiceHTML(doc, style)
//	if err != nil {
//		return err
//	}
//	result, err := renderer.Render(ctx, &printing.RenderRequest{HTML: html})
package printing
