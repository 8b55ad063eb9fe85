// Package storage keeps generated artifacts (report exports, invoice PDFs)
// in S3-compatible object storage and hands out presigned download links.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyKey is returned for operations without an object key
var ErrEmptyKey = errors.New("storage key is required")

// Content types of stored artifacts
const (
	ContentTypeJSON = "application/json"
	ContentTypePDF  = "application/pdf"
)

// ArtifactStore stores generated files
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// ReportKey returns reports/<db>/<report>/<date>-<uuid>.json
func ReportKey(db, report string, date time.Time) string {
	name := fmt.Sprintf("%s-%s.json", date.Format("2006-01-02"), uuid.NewString())
	return path.Join("reports", safeSegment(db), safeSegment(report), name)
}

// InvoicePDFKey returns invoices/<db>/<id>-<name>.pdf
func InvoicePDFKey(db string, invoiceID int, invoiceName string) string {
	name := fmt.Sprintf("%d-%s.pdf", invoiceID, safeSegment(invoiceName))
	return path.Join("invoices", safeSegment(db), name)
}

// safeSegment keeps a single path segment. Invoice names contain slashes
// (INV/2024/0001).
func safeSegment(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(s))
	if s == "" {
		return "_"
	}
	return s
}
