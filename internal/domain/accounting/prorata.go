package accounting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Term is one leaf of a search domain
type Term struct {
	Field    string
	Operator string
	Value    any
}

// DateRange is an inclusive range of calendar days
type DateRange struct {
	From time.Time
	To   time.Time
}

// Days returns the number of days in the range, inclusive of both ends
func (r DateRange) Days() int {
	return DaysBetween(r.From, r.To) + 1
}

// Overlap returns the number of days r shares with other
func (r DateRange) Overlap(other DateRange) int {
	from := r.From
	if other.From.After(from) {
		from = other.From
	}
	to := r.To
	if other.To.Before(to) {
		to = other.To
	}
	if to.Before(from) {
		return 0
	}
	return DaysBetween(from, to) + 1
}

// DateRangeFromDomain extracts the requested window from a domain. Both the
// report form (date >= / date <=) and the rewritten budget form
// (date_to >= / date_from <=) are recognised.
func DateRangeFromDomain(terms []Term) (DateRange, bool) {
	var r DateRange
	for _, t := range terms {
		d, ok := parseDay(t.Value)
		if !ok {
			continue
		}
		switch {
		case (t.Field == "date" || t.Field == "date_to") && t.Operator == ">=":
			r.From = d
		case (t.Field == "date" || t.Field == "date_from") && t.Operator == "<=":
			r.To = d
		}
	}
	if r.From.IsZero() || r.To.IsZero() {
		return DateRange{}, false
	}
	return r, true
}

// RewriteDateDomain maps a report domain on "date" onto budget lines that
// carry date_from/date_to: every line overlapping the window matches.
func RewriteDateDomain(terms []Term) []Term {
	out := make([]Term, len(terms))
	for i, t := range terms {
		switch {
		case t.Field == "date" && t.Operator == ">=":
			t.Field = "date_to"
		case t.Field == "date" && t.Operator == "<=":
			t.Field = "date_from"
		}
		out[i] = t
	}
	return out
}

// CanProrate reports whether a read_group request can be answered pro-rata:
// every aggregate is a sum (or the implicit count) and no groupby uses a
// date granularity.
func CanProrate(aggregates, groupBy []string) bool {
	for _, g := range groupBy {
		if strings.Contains(g, ":") {
			return false
		}
	}
	for _, a := range aggregates {
		if a == "__count" {
			continue
		}
		if !strings.HasSuffix(a, ":sum") {
			return false
		}
	}
	return true
}

// BudgetItem is a record valid over a period whose amounts spread evenly
// across its days.
type BudgetItem struct {
	Period DateRange
	Values map[string]any
}

// Group is one aggregated row, keyed by its groupby values
type Group struct {
	Key    map[string]any
	Values map[string]decimal.Decimal
	Count  int
}

// ToRecord renders the group the way read_group returns rows
func (g Group) ToRecord() map[string]any {
	out := make(map[string]any, len(g.Key)+len(g.Values)+1)
	for k, v := range g.Key {
		out[k] = v
	}
	for k, v := range g.Values {
		out[k] = v.InexactFloat64()
	}
	out["__count"] = g.Count
	return out
}

// Prorate aggregates items grouped by groupBy, weighting every summed field by
// the share of the item's days that fall inside window. __count counts each
// overlapping item once. Groups come back ordered by their key.
func Prorate(items []BudgetItem, aggregates, groupBy []string, window DateRange) []Group {
	fields := make([]string, 0, len(aggregates))
	for _, a := range aggregates {
		if a == "__count" {
			continue
		}
		fields = append(fields, strings.TrimSuffix(a, ":sum"))
	}

	groups := map[string]*Group{}
	var order []string
	for _, item := range items {
		itemDays := item.Period.Days()
		overlap := item.Period.Overlap(window)
		if itemDays <= 0 || overlap <= 0 {
			continue
		}
		num := decimal.NewFromInt(int64(overlap))
		den := decimal.NewFromInt(int64(itemDays))

		key := groupKey(item.Values, groupBy)
		g, ok := groups[key]
		if !ok {
			g = &Group{Key: map[string]any{}, Values: map[string]decimal.Decimal{}}
			for _, gb := range groupBy {
				g.Key[gb] = item.Values[gb]
			}
			for _, f := range fields {
				g.Values[f] = decimal.Zero
			}
			groups[key] = g
			order = append(order, key)
		}
		for _, f := range fields {
			g.Values[f] = g.Values[f].Add(numeric(item.Values[f]).Mul(num).Div(den))
		}
		g.Count++
	}

	sort.Strings(order)
	out := make([]Group, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out
}

func groupKey(values map[string]any, groupBy []string) string {
	parts := make([]string, len(groupBy))
	for i, g := range groupBy {
		parts[i] = fmt.Sprint(keyValue(values[g]))
	}
	return strings.Join(parts, "\x1f")
}

// keyValue reduces many2one pairs to their id
func keyValue(v any) any {
	if pair, ok := v.([]any); ok && len(pair) > 0 {
		return pair[0]
	}
	return v
}

func numeric(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case int64:
		return decimal.NewFromInt(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case decimal.Decimal:
		return t
	}
	return decimal.Zero
}

func parseDay(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		if d, err := time.Parse(time.DateOnly, t); err == nil {
			return d, true
		}
		if d, err := time.Parse(time.DateTime, t); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
