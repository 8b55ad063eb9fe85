package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safee-analytics/odoo/internal/domain/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name      string
		discounts []decimal.Decimal
		want      string
	}{
		{"no discounts", nil, "0"},
		{"single", []decimal.Decimal{dec("10")}, "10"},
		{"cascade", []decimal.Decimal{dec("11"), dec("22"), dec("33")}, "53.4886"},
		{"fifty fifty", []decimal.Decimal{dec("50"), dec("50"), dec("0")}, "75"},
		{"full", []decimal.Decimal{dec("100"), dec("20"), dec("5")}, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(tt.discounts...)
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestAggregate_RejectsOutOfRange(t *testing.T) {
	_, err := Aggregate(dec("101"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = Aggregate(dec("-1"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestNormalizeCreate(t *testing.T) {
	t.Run("plain discount moves into discount1", func(t *testing.T) {
		out, err := NormalizeCreate(map[string]any{"product_id": int64(4), "discount": float64(15)})
		require.NoError(t, err)
		assert.Equal(t, float64(15), out[FieldDiscount1])
		assert.Equal(t, float64(15), out[FieldDiscount])
	})

	t.Run("zero components do not hide a plain discount", func(t *testing.T) {
		out, err := NormalizeCreate(map[string]any{"discount": float64(10), "discount1": float64(0)})
		require.NoError(t, err)
		assert.Equal(t, float64(10), out[FieldDiscount1])
		assert.Equal(t, float64(10), out[FieldDiscount])
	})

	t.Run("zero discount with components is left to the components", func(t *testing.T) {
		out, err := NormalizeCreate(map[string]any{"discount": float64(0), "discount2": float64(10)})
		require.NoError(t, err)
		assert.NotContains(t, out, FieldDiscount1)
		assert.Equal(t, float64(10), out[FieldDiscount])
	})

	t.Run("components recompute the aggregate", func(t *testing.T) {
		out, err := NormalizeCreate(map[string]any{
			"discount":  float64(99),
			"discount1": float64(11),
			"discount2": float64(22),
			"discount3": float64(33),
		})
		require.NoError(t, err)
		assert.InDelta(t, 53.4886, out[FieldDiscount], 1e-9)
	})

	t.Run("no discount fields untouched", func(t *testing.T) {
		in := map[string]any{"name": "line"}
		out, err := NormalizeCreate(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := map[string]any{"discount": float64(5)}
		_, err := NormalizeCreate(in)
		require.NoError(t, err)
		assert.NotContains(t, in, FieldDiscount1)
	})
}

func TestNormalizeWrite(t *testing.T) {
	out, err := NormalizeWrite(map[string]any{"discount": float64(20)})
	require.NoError(t, err)
	assert.Equal(t, float64(20), out[FieldDiscount1])
	assert.Equal(t, 0, out[FieldDiscount2])
	assert.Equal(t, 0, out[FieldDiscount3])
	assert.Equal(t, float64(20), out[FieldDiscount])

	_, err = NormalizeWrite(map[string]any{"discount2": float64(150)})
	assert.Error(t, err)
}

func TestFromValues_InvalidString(t *testing.T) {
	_, err := FromValues(map[string]any{"discount1": "abc"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
