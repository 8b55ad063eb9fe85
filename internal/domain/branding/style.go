// Package branding holds the per-company document style used to render
// invoices and quotations.
package branding

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/safee-analytics/odoo/internal/domain/shared"
)

// Default style values
const (
	DefaultPrimaryColor    = "#3B82F6"
	DefaultSecondaryColor  = "#8B5CF6"
	DefaultAccentColor     = "#8B5CF6"
	DefaultTextColor       = "#1F2937"
	DefaultBackgroundColor = "#FFFFFF"
	DefaultFont            = "Inter"
	DefaultFontSize        = "medium"
	DefaultLogoPosition    = "left"
	DefaultFooterText      = "Thank you for your business!"
)

var colorExpr = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

var (
	fontSizes     = []string{"small", "medium", "large"}
	logoPositions = []string{"left", "center", "right"}
)

// Labels are the document captions a company may translate or rename
type Labels struct {
	Invoice   string `json:"invoice"`
	Quotation string `json:"quotation"`
	BillTo    string `json:"bill_to"`
	Date      string `json:"date"`
	DueDate   string `json:"due_date"`
}

// Style is the document style of one company
type Style struct {
	PrimaryColor    string `json:"primary_color"`
	SecondaryColor  string `json:"secondary_color"`
	AccentColor     string `json:"accent_color"`
	TextColor       string `json:"text_color"`
	BackgroundColor string `json:"background_color"`
	Font            string `json:"font"`
	FontSize        string `json:"font_size"`
	LogoPosition    string `json:"logo_position"`
	FooterText      string `json:"footer_text"`
	Labels          Labels `json:"labels"`
	ShowLogo        bool   `json:"show_logo"`
	ShowPaymentInfo bool   `json:"show_payment_info"`
	ShowNotes       bool   `json:"show_notes"`
}

// Default returns the style used when a company has not customized anything
func Default() Style {
	return Style{
		PrimaryColor:    DefaultPrimaryColor,
		SecondaryColor:  DefaultSecondaryColor,
		AccentColor:     DefaultAccentColor,
		TextColor:       DefaultTextColor,
		BackgroundColor: DefaultBackgroundColor,
		Font:            DefaultFont,
		FontSize:        DefaultFontSize,
		LogoPosition:    DefaultLogoPosition,
		FooterText:      DefaultFooterText,
		Labels: Labels{
			Invoice:   "INVOICE",
			Quotation: "QUOTATION",
			BillTo:    "BILL TO",
			Date:      "DATE",
			DueDate:   "DUE DATE",
		},
		ShowLogo:        true,
		ShowPaymentInfo: true,
		ShowNotes:       true,
	}
}

// Validate checks colors and enumerations
func (s Style) Validate() error {
	colors := map[string]string{
		"primary_color":    s.PrimaryColor,
		"secondary_color":  s.SecondaryColor,
		"accent_color":     s.AccentColor,
		"text_color":       s.TextColor,
		"background_color": s.BackgroundColor,
	}
	for field, value := range colors {
		if !ValidColor(value) {
			return shared.NewInvalidInputError(fmt.Sprintf("%s must be a hex color like #RRGGBB, got %q", field, value))
		}
	}
	if !contains(fontSizes, s.FontSize) {
		return shared.NewInvalidInputError(fmt.Sprintf("font_size must be one of %s", strings.Join(fontSizes, ", ")))
	}
	if !contains(logoPositions, s.LogoPosition) {
		return shared.NewInvalidInputError(fmt.Sprintf("logo_position must be one of %s", strings.Join(logoPositions, ", ")))
	}
	return nil
}

// ValidColor reports whether c is a #RRGGBB color
func ValidColor(c string) bool {
	return colorExpr.MatchString(c)
}

// CompanyFields lists the res.company fields that store the style
var CompanyFields = []string{
	"safee_primary_color",
	"safee_secondary_color",
	"safee_accent_color",
	"safee_text_color",
	"safee_background_color",
	"safee_font",
	"safee_font_size",
	"safee_logo_position",
	"safee_footer_text",
	"safee_label_invoice",
	"safee_label_quotation",
	"safee_label_bill_to",
	"safee_label_date",
	"safee_label_due_date",
	"safee_show_logo",
	"safee_show_payment_info",
	"safee_show_notes",
}

// FromCompany builds a style from a res.company record, keeping defaults for
// fields Odoo returns empty.
func FromCompany(rec map[string]any) Style {
	s := Default()
	str := func(field string, dst *string) {
		if v, ok := rec[field].(string); ok && v != "" {
			*dst = v
		}
	}
	flag := func(field string, dst *bool) {
		if v, ok := rec[field].(bool); ok {
			*dst = v
		}
	}

	str("safee_primary_color", &s.PrimaryColor)
	str("safee_secondary_color", &s.SecondaryColor)
	str("safee_accent_color", &s.AccentColor)
	str("safee_text_color", &s.TextColor)
	str("safee_background_color", &s.BackgroundColor)
	str("safee_font", &s.Font)
	str("safee_font_size", &s.FontSize)
	str("safee_logo_position", &s.LogoPosition)
	str("safee_footer_text", &s.FooterText)
	str("safee_label_invoice", &s.Labels.Invoice)
	str("safee_label_quotation", &s.Labels.Quotation)
	str("safee_label_bill_to", &s.Labels.BillTo)
	str("safee_label_date", &s.Labels.Date)
	str("safee_label_due_date", &s.Labels.DueDate)
	flag("safee_show_logo", &s.ShowLogo)
	flag("safee_show_payment_info", &s.ShowPaymentInfo)
	flag("safee_show_notes", &s.ShowNotes)
	return s
}

// CompanyValues renders the style as res.company write values
func (s Style) CompanyValues() map[string]any {
	return map[string]any{
		"safee_primary_color":     s.PrimaryColor,
		"safee_secondary_color":   s.SecondaryColor,
		"safee_accent_color":      s.AccentColor,
		"safee_text_color":        s.TextColor,
		"safee_background_color":  s.BackgroundColor,
		"safee_font":              s.Font,
		"safee_font_size":         s.FontSize,
		"safee_logo_position":     s.LogoPosition,
		"safee_footer_text":       s.FooterText,
		"safee_label_invoice":     s.Labels.Invoice,
		"safee_label_quotation":   s.Labels.Quotation,
		"safee_label_bill_to":     s.Labels.BillTo,
		"safee_label_date":        s.Labels.Date,
		"safee_label_due_date":    s.Labels.DueDate,
		"safee_show_logo":         s.ShowLogo,
		"safee_show_payment_info": s.ShowPaymentInfo,
		"safee_show_notes":        s.ShowNotes,
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
