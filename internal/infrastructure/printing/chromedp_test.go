package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safee-analytics/odoo/internal/infrastructure/config"
)

func TestBuildPrintParams_DefaultsToA4WithInvoiceMargins(t *testing.T) {
	p := buildPrintParams(&RenderRequest{HTML: "<p>x</p>"})

	assert.InDelta(t, 8.27, p.PaperWidth, 0.01)
	assert.InDelta(t, 11.69, p.PaperHeight, 0.01)
	assert.InDelta(t, mmToInches(DefaultMargins.Top), p.MarginTop, 0.0001)
	assert.InDelta(t, mmToInches(DefaultMargins.Bottom), p.MarginBottom, 0.0001)
	assert.True(t, p.PrintBackground)
	assert.False(t, p.DisplayHeaderFooter)
}

func TestBuildPrintParams_CustomMarginsAndFooter(t *testing.T) {
	p := buildPrintParams(&RenderRequest{
		HTML:       "<p>x</p>",
		Landscape:  true,
		Margins:    Margins{Top: 25.4, Right: 0, Bottom: 25.4, Left: 0},
		FooterHTML: `<div class="pageNumber"></div>`,
	})

	assert.InDelta(t, 1.0, p.MarginTop, 0.0001)
	assert.Zero(t, p.MarginLeft)
	assert.True(t, p.Landscape)
	assert.True(t, p.DisplayHeaderFooter)
	assert.Equal(t, `<div class="pageNumber"></div>`, p.FooterTemplate)
}

func TestCompleteHTML(t *testing.T) {
	t.Run("full document is kept", func(t *testing.T) {
		html := "<!DOCTYPE html><html><body>x</body></html>"
		assert.Equal(t, html, completeHTML(&RenderRequest{HTML: html}))
	})

	t.Run("fragment is wrapped", func(t *testing.T) {
		out := completeHTML(&RenderRequest{HTML: "<p>x</p>", Title: "INV/2025/0001"})
		assert.Contains(t, out, "<!DOCTYPE html>")
		assert.Contains(t, out, "<title>INV/2025/0001</title>")
		assert.Contains(t, out, "<body><p>x</p></body>")
	})
}

func TestIsRemote(t *testing.T) {
	assert.True(t, isRemote("ws://chrome:9222"))
	assert.True(t, isRemote("http://chrome:9222"))
	assert.False(t, isRemote("/usr/bin/chromium"))
	assert.False(t, isRemote(""))
}

func TestChromedpRenderer_RejectsEmptyHTML(t *testing.T) {
	r := NewChromedpRenderer(config.PrintingConfig{Timeout: time.Second}, nil)
	defer func() { _ = r.Close() }()

	_, err := r.Render(context.Background(), &RenderRequest{HTML: "   "})
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)

	_, err = r.Render(context.Background(), nil)
	assert.Error(t, err)
}

func TestDisabledRenderer(t *testing.T) {
	_, err := DisabledRenderer{}.Render(context.Background(), &RenderRequest{HTML: "<p>x</p>"})
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeDisabled, renderErr.Code)
	assert.NoError(t, DisabledRenderer{}.Close())
}

func TestRenderError(t *testing.T) {
	cause := errors.New("target closed")
	err := NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", cause)
	assert.Equal(t, "chromedp execution failed: target closed", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "empty", NewRenderError(ErrCodeInvalidHTML, "empty", nil).Error())
}
