// Package pricing holds the triple discount rules applied to order and
// invoice lines.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safee-analytics/odoo/internal/domain/shared"
)

// Field names used on sale.order.line and account.move.line
const (
	FieldDiscount  = "discount"
	FieldDiscount1 = "discount1"
	FieldDiscount2 = "discount2"
	FieldDiscount3 = "discount3"
)

// DiscountFields lists the component discount fields in application order
var DiscountFields = []string{FieldDiscount1, FieldDiscount2, FieldDiscount3}

// Precision is the number of decimals Odoo keeps for the Discount field
const Precision = 4

var hundred = decimal.NewFromInt(100)

// ErrDiscountTooHigh is returned when a component discount exceeds 100%
var ErrDiscountTooHigh = shared.NewInvalidInputError("Discount value should be less than 100")

// Aggregate folds cascading percentage discounts into one equivalent
// discount: (1 - (1-d1/100)(1-d2/100)(1-d3/100)) * 100.
func Aggregate(discounts ...decimal.Decimal) (decimal.Decimal, error) {
	factor := decimal.NewFromInt(1)
	for _, d := range discounts {
		if err := Validate(d); err != nil {
			return decimal.Zero, err
		}
		factor = factor.Mul(decimal.NewFromInt(1).Sub(d.Div(hundred)))
	}
	return decimal.NewFromInt(1).Sub(factor).Mul(hundred).Round(Precision), nil
}

// Validate checks a single component discount
func Validate(d decimal.Decimal) error {
	if d.GreaterThan(hundred) {
		return ErrDiscountTooHigh
	}
	if d.IsNegative() {
		return shared.NewInvalidInputError("Discount value cannot be negative")
	}
	return nil
}

// Line is the discount state of one line
type Line struct {
	Discount1 decimal.Decimal
	Discount2 decimal.Decimal
	Discount3 decimal.Decimal
}

// Discount returns the aggregated discount of the line
func (l Line) Discount() (decimal.Decimal, error) {
	return Aggregate(l.Discount1, l.Discount2, l.Discount3)
}

// NormalizeCreate prepares create values. A non-zero discount without any
// non-zero component is moved into discount1, then the aggregate is
// recomputed.
func NormalizeCreate(vals map[string]any) (map[string]any, error) {
	out := clone(vals)
	if v := out[FieldDiscount]; nonZero(v) && !anyNonZeroComponent(out) {
		out[FieldDiscount1] = v
	}
	if !hasComponent(out) {
		return out, nil
	}
	return recompute(out)
}

// NormalizeWrite prepares write values. Writing discount directly replaces
// the cascade: it becomes discount1 and the other components are reset.
func NormalizeWrite(vals map[string]any) (map[string]any, error) {
	out := clone(vals)
	if v, ok := out[FieldDiscount]; ok {
		out[FieldDiscount1] = v
		out[FieldDiscount2] = 0
		out[FieldDiscount3] = 0
	}
	if !hasComponent(out) {
		return out, nil
	}
	return recompute(out)
}

// FromValues reads the component discounts out of a values map. Missing
// components count as zero.
func FromValues(vals map[string]any) (Line, error) {
	var parts [3]decimal.Decimal
	for i, field := range DiscountFields {
		d, err := toDecimal(vals[field])
		if err != nil {
			return Line{}, fmt.Errorf("%s: %w", field, err)
		}
		parts[i] = d
	}
	return Line{Discount1: parts[0], Discount2: parts[1], Discount3: parts[2]}, nil
}

func recompute(vals map[string]any) (map[string]any, error) {
	line, err := FromValues(vals)
	if err != nil {
		return nil, err
	}
	total, err := line.Discount()
	if err != nil {
		return nil, err
	}
	vals[FieldDiscount] = total.InexactFloat64()
	return vals, nil
}

func hasComponent(vals map[string]any) bool {
	for _, f := range DiscountFields {
		if _, ok := vals[f]; ok {
			return true
		}
	}
	return false
}

func anyNonZeroComponent(vals map[string]any) bool {
	for _, f := range DiscountFields {
		if nonZero(vals[f]) {
			return true
		}
	}
	return false
}

// nonZero treats unparsable values as set so FromValues reports them
func nonZero(v any) bool {
	if v == nil {
		return false
	}
	d, err := toDecimal(v)
	if err != nil {
		return true
	}
	return !d.IsZero()
}

func clone(vals map[string]any) map[string]any {
	out := make(map[string]any, len(vals)+3)
	for k, v := range vals {
		out[k] = v
	}
	return out
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil, bool:
		return decimal.Zero, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero, shared.NewInvalidInputError("invalid discount value")
		}
		return d, nil
	case decimal.Decimal:
		return t, nil
	}
	return decimal.Zero, shared.NewInvalidInputError(fmt.Sprintf("unsupported discount type %T", v))
}
