package odoo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomain_AndLeavesReceiverUntouched(t *testing.T) {
	base := make(Domain, 0, 4)
	base = append(base, Condition{Field: "state", Operator: "=", Value: "posted"})

	customers := base.And("move_type", "=", "out_invoice")
	vendors := base.And("move_type", "=", "in_invoice")

	assert.Len(t, base, 1)
	assert.Equal(t, "out_invoice", customers[1].Value)
	assert.Equal(t, "in_invoice", vendors[1].Value)
}

func TestDomain_ToRPC(t *testing.T) {
	d := Domain{
		{Operator: OpOr},
		{Field: "name", Operator: "ilike", Value: "acme"},
		{Field: "ref", Operator: "=", Value: "A1"},
	}

	assert.Equal(t, []any{
		"|",
		[]any{"name", "ilike", "acme"},
		[]any{"ref", "=", "A1"},
	}, d.ToRPC())
}

func TestParseDomain(t *testing.T) {
	t.Run("prefix operators and ids", func(t *testing.T) {
		d, err := ParseDomain(`[["state","=","posted"],"|",["partner_id","=",3],["amount",">",1.5]]`)
		require.NoError(t, err)
		require.Len(t, d, 4)
		assert.Equal(t, OpOr, d[1].Operator)
		assert.Equal(t, int64(3), d[2].Value)
		assert.Equal(t, 1.5, d[3].Value)
	})

	t.Run("empty", func(t *testing.T) {
		d, err := ParseDomain("  ")
		require.NoError(t, err)
		assert.Empty(t, d)
	})

	for name, raw := range map[string]string{
		"not json":         `state=posted`,
		"unknown operator": `["^",["a","=",1]]`,
		"short term":       `[["a","="]]`,
		"empty field":      `[["","=",1]]`,
		"number element":   `[1]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDomain(raw)
			assert.Error(t, err)
		})
	}
}
