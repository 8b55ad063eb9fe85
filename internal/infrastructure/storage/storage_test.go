package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportKey(t *testing.T) {
	key := ReportKey("acme", "balance_sheet", time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(key, "reports/acme/balance_sheet/2024-03-31-"), key)
	assert.True(t, strings.HasSuffix(key, ".json"))

	other := ReportKey("acme", "balance_sheet", time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	assert.NotEqual(t, key, other)
}

func TestInvoicePDFKey(t *testing.T) {
	assert.Equal(t, "invoices/acme/42-INV_2024_0001.pdf", InvoicePDFKey("acme", 42, "INV/2024/0001"))
	assert.Equal(t, "invoices/__/7-_.pdf", InvoicePDFKey("../", 7, ""))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("http://localhost:8069/files")
	ctx := context.Background()

	data := []byte("%PDF-1.4")
	require.NoError(t, s.Put(ctx, "invoices/acme/1.pdf", data, ContentTypePDF))
	data[0] = 'X'

	got, ct, ok := s.Get("invoices/acme/1.pdf")
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.4", string(got))
	assert.Equal(t, ContentTypePDF, ct)

	link, _, err := s.DownloadURL(ctx, "invoices/acme/1.pdf", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://localhost:8069/files/invoices/acme/1.pdf?expires="))

	require.NoError(t, s.Delete(ctx, "invoices/acme/1.pdf"))
	exists, err := s.Exists(ctx, "invoices/acme/1.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}
