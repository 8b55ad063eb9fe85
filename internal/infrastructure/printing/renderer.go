package printing

import (
	"context"
	"time"
)

// Paper sizes in millimeters
const (
	A4WidthMM  = 210.0
	A4HeightMM = 297.0
)

// Margins in millimeters
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// DefaultMargins is used for invoices
var DefaultMargins = Margins{Top: 12, Right: 12, Bottom: 15, Left: 12}

// RenderRequest is one HTML document to print
type RenderRequest struct {
	HTML       string
	Title      string
	Landscape  bool
	Margins    Margins
	FooterHTML string
	// Timeout overrides the renderer default
	Timeout time.Duration
}

// RenderResult is the printed document
type RenderResult struct {
	PDF            []byte
	RenderDuration time.Duration
}

// PDFRenderer converts HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// RenderError is a classified rendering failure
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
	ErrCodeDisabled      = "PRINTING_DISABLED"
)

// NewRenderError creates a RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// DisabledRenderer answers every request with ErrCodeDisabled. It is used
// when printing.enabled is false so the invoice PDF route reports a clear error.
type DisabledRenderer struct{}

// Render implements PDFRenderer
func (DisabledRenderer) Render(context.Context, *RenderRequest) (*RenderResult, error) {
	return nil, NewRenderError(ErrCodeDisabled, "PDF rendering is disabled", nil)
}

// Close implements PDFRenderer
func (DisabledRenderer) Close() error { return nil }
