package odoo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts used by Odoo over RPC
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Record is a single record as returned by read/search_read
type Record map[string]any

// ID returns the record id or 0
func (r Record) ID() int {
	return AsInt(r["id"])
}

// Int returns the integer value of field, or 0
func (r Record) Int(field string) int {
	return AsInt(r[field])
}

// Float returns the float value of field, or 0
func (r Record) Float(field string) float64 {
	return AsFloat(r[field])
}

// Decimal returns the monetary value of field as a decimal
func (r Record) Decimal(field string) decimal.Decimal {
	return AsDecimal(r[field])
}

// String returns the string value of field. Odoo sends false for empty char fields.
func (r Record) String(field string) string {
	return AsString(r[field])
}

// Bool returns the boolean value of field
func (r Record) Bool(field string) bool {
	b, _ := r[field].(bool)
	return b
}

// Many2One returns the (id, display name) pair of a many2one field
func (r Record) Many2One(field string) (int, string) {
	return AsMany2One(r[field])
}

// Many2OneID returns only the id of a many2one field
func (r Record) Many2OneID(field string) int {
	id, _ := AsMany2One(r[field])
	return id
}

// Many2OneName returns only the display name of a many2one field
func (r Record) Many2OneName(field string) string {
	_, name := AsMany2One(r[field])
	return name
}

// IDs returns the ids of a one2many/many2many field
func (r Record) IDs(field string) []int {
	return AsIntSlice(r[field])
}

// Date parses a date field, returning the zero time when empty
func (r Record) Date(field string) time.Time {
	return AsDate(r[field])
}

// AsInt converts an RPC scalar to int
func AsInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case int32:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	}
	return 0
}

// AsFloat converts an RPC scalar to float64
func AsFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	}
	return 0
}

// AsDecimal converts an RPC scalar to a decimal rounded to Odoo's float digits
func AsDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case int64:
		return decimal.NewFromInt(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case string:
		d, err := decimal.NewFromString(t)
		if err == nil {
			return d
		}
	case decimal.Decimal:
		return t
	}
	return decimal.Zero
}

// AsString converts an RPC scalar to string; false and nil become ""
func AsString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil, bool:
		return ""
	case int64, int, float64:
		return fmt.Sprint(t)
	}
	return ""
}

// AsMany2One decodes a many2one value, which is either false or [id, name]
func AsMany2One(v any) (int, string) {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return 0, ""
		}
		id := AsInt(t[0])
		if len(t) > 1 {
			return id, AsString(t[1])
		}
		return id, ""
	case int64, int:
		return AsInt(t), ""
	}
	return 0, ""
}

// AsIntSlice decodes a list of ids
func AsIntSlice(v any) []int {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		out = append(out, AsInt(item))
	}
	return out
}

// AsDate parses an Odoo date or datetime string
func AsDate(v any) time.Time {
	s := AsString(v)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(DateTimeLayout, s); err == nil {
		return t
	}
	return time.Time{}
}

// FormatDate renders a date the way Odoo expects it
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NullString turns "" into false, which Odoo uses for empty values
func NullString(s string) any {
	if s == "" {
		return false
	}
	return s
}

// NullDate turns the zero time into false
func NullDate(t time.Time) any {
	if t.IsZero() {
		return false
	}
	return FormatDate(t)
}

// AsRecords decodes a search_read/read reply
func AsRecords(v any) ([]Record, error) {
	if v == nil {
		return []Record{}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected list, got %T", ErrInvalidResponse, v)
	}
	out := make([]Record, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected struct, got %T", ErrInvalidResponse, item)
		}
		out = append(out, Record(m))
	}
	return out, nil
}
