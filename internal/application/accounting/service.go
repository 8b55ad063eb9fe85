// Package accounting wraps Odoo's invoicing, payment and reconciliation
// actions and builds the gateway's financial reports.
package accounting

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/printing"
	"github.com/safee-analytics/odoo/internal/infrastructure/storage"
)

// DefaultLimit is the page size of invoice and payment lists
const DefaultLimit = 80

// Odoo is the part of the Odoo client the accounting service uses
type Odoo interface {
	SearchRead(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain, opts odoo.Options) ([]odoo.Record, error)
	SearchCount(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain) (int, error)
	ReadOne(ctx context.Context, sess odoo.Session, model string, id int, fields []string) (odoo.Record, error)
	Read(ctx context.Context, sess odoo.Session, model string, ids []int, fields []string) ([]odoo.Record, error)
	Create(ctx context.Context, sess odoo.Session, model string, vals map[string]any) (int, error)
	ReadGroup(ctx context.Context, sess odoo.Session, model string, domain odoo.Domain, aggregates, groupBy []string, opts odoo.Options) ([]odoo.Record, error)
	CallMethod(ctx context.Context, sess odoo.Session, model, method string, ids []int, args []any, kwargs map[string]any) (any, error)
}

// Option configures a Service
type Option func(*Service)

// WithRenderer sets the PDF renderer used for invoice downloads
func WithRenderer(r printing.PDFRenderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithArtifactStore stores PDFs and report exports and hands out links
func WithArtifactStore(store storage.ArtifactStore, presign time.Duration) Option {
	return func(s *Service) {
		s.store = store
		if presign > 0 {
			s.presign = presign
		}
	}
}

// Service implements the accounting endpoints
type Service struct {
	odoo     Odoo
	renderer printing.PDFRenderer
	store    storage.ArtifactStore
	presign  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates the service
func NewService(odooClient Odoo, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		odoo:     odooClient,
		renderer: printing.DisabledRenderer{},
		presign:  time.Hour,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	t := s.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// readInvoice loads an account.move or reports "Invoice not found"
func (s *Service) readInvoice(ctx context.Context, sess odoo.Session, id int, fields []string) (odoo.Record, error) {
	rec, err := s.odoo.ReadOne(ctx, sess, odoo.ModelAccountMove, id, fields)
	if err != nil {
		if errors.Is(err, odoo.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("Invoice not found")
		}
		return nil, err
	}
	return rec, nil
}

func parseDate(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(odoo.DateLayout, raw)
	if err != nil {
		return time.Time{}, shared.NewInvalidInputError("Dates must use the YYYY-MM-DD format")
	}
	return t, nil
}

// dateOrNil renders an Odoo date for JSON, or nil when unset
func dateOrNil(rec odoo.Record, field string) any {
	t := rec.Date(field)
	if t.IsZero() {
		return nil
	}
	return odoo.FormatDate(t)
}

func optionalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return odoo.FormatDate(t)
}
