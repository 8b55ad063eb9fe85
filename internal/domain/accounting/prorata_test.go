package accounting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRange(t *testing.T) {
	r := DateRange{From: day("2024-01-01"), To: day("2024-01-31")}
	assert.Equal(t, 31, r.Days())

	assert.Equal(t, 10, r.Overlap(DateRange{From: day("2024-01-22"), To: day("2024-02-15")}))
	assert.Equal(t, 0, r.Overlap(DateRange{From: day("2024-02-01"), To: day("2024-02-15")}))
	assert.Equal(t, 31, r.Overlap(DateRange{From: day("2023-12-01"), To: day("2024-03-01")}))
}

func TestDateRangeFromDomain(t *testing.T) {
	r, ok := DateRangeFromDomain([]Term{
		{Field: "date", Operator: ">=", Value: "2024-01-01"},
		{Field: "date", Operator: "<=", Value: "2024-03-31"},
		{Field: "company_id", Operator: "=", Value: int64(1)},
	})
	require.True(t, ok)
	assert.Equal(t, day("2024-01-01"), r.From)
	assert.Equal(t, day("2024-03-31"), r.To)

	r, ok = DateRangeFromDomain([]Term{
		{Field: "date_to", Operator: ">=", Value: "2024-01-01"},
		{Field: "date_from", Operator: "<=", Value: "2024-03-31"},
	})
	require.True(t, ok)
	assert.Equal(t, 91, r.Days())

	_, ok = DateRangeFromDomain([]Term{{Field: "date", Operator: ">=", Value: "2024-01-01"}})
	assert.False(t, ok)
}

func TestRewriteDateDomain(t *testing.T) {
	out := RewriteDateDomain([]Term{
		{Field: "date", Operator: ">=", Value: "2024-01-01"},
		{Field: "date", Operator: "<=", Value: "2024-03-31"},
		{Field: "analytic_account_id", Operator: "=", Value: int64(3)},
	})

	assert.Equal(t, "date_to", out[0].Field)
	assert.Equal(t, "date_from", out[1].Field)
	assert.Equal(t, "analytic_account_id", out[2].Field)
}

func TestCanProrate(t *testing.T) {
	assert.True(t, CanProrate([]string{"balance:sum", "__count"}, []string{"account_id"}))
	assert.False(t, CanProrate([]string{"balance:avg"}, []string{"account_id"}))
	assert.False(t, CanProrate([]string{"balance:sum"}, []string{"date:month"}))
}

func TestProrate(t *testing.T) {
	window := DateRange{From: day("2024-01-01"), To: day("2024-01-31")}
	items := []BudgetItem{
		{
			// fully inside: counts entirely
			Period: DateRange{From: day("2024-01-01"), To: day("2024-01-31")},
			Values: map[string]any{"account_id": []any{int64(7), "Sales"}, "balance": float64(310)},
		},
		{
			// a quarter budget: 31 of 91 days fall in January
			Period: DateRange{From: day("2024-01-01"), To: day("2024-03-31")},
			Values: map[string]any{"account_id": []any{int64(7), "Sales"}, "balance": float64(910)},
		},
		{
			Period: DateRange{From: day("2024-01-17"), To: day("2024-02-15")},
			Values: map[string]any{"account_id": []any{int64(8), "Rent"}, "balance": int64(300)},
		},
		{
			// outside the window
			Period: DateRange{From: day("2024-02-01"), To: day("2024-02-29")},
			Values: map[string]any{"account_id": []any{int64(8), "Rent"}, "balance": float64(999)},
		},
	}

	groups := Prorate(items, []string{"balance:sum", "__count"}, []string{"account_id"}, window)
	require.Len(t, groups, 2)

	assert.True(t, d("620").Equal(groups[0].Values["balance"]), groups[0].Values["balance"].String())
	assert.Equal(t, 2, groups[0].Count)

	// 15 of 30 days
	assert.True(t, d("150").Equal(groups[1].Values["balance"]), groups[1].Values["balance"].String())
	assert.Equal(t, 1, groups[1].Count)

	rec := groups[1].ToRecord()
	assert.Equal(t, 1, rec["__count"])
	assert.Equal(t, float64(150), rec["balance"])
}
