package partner

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safee-analytics/odoo/internal/domain/shared"
)

func TestCleanName(t *testing.T) {
	assert.Equal(t, "John Smith", CleanName("  John   Smith ", false))
	assert.Equal(t, "Smith,John", CleanName("Smith , John", true))
	// e + combining acute accent composes to é
	assert.Equal(t, "Andr\u00e9", CleanName("Andre\u0301", false))
}

func TestComputeName(t *testing.T) {
	tests := []struct {
		order NamesOrder
		first string
		last  string
		want  string
	}{
		{OrderFirstLast, "John", "Smith", "John Smith"},
		{OrderLastFirst, "John", "Smith", "Smith John"},
		{OrderLastFirstComma, "John", "Smith", "Smith, John"},
		{OrderFirstLast, "", "Smith", "Smith"},
		{OrderLastFirstComma, "John", "", "John"},
		{OrderFirstLast, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.order)+"/"+tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeName(tt.first, tt.last, tt.order))
		})
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		isCompany bool
		order     NamesOrder
		first     string
		last      string
	}{
		{"first_last two words", "John Smith", false, OrderFirstLast, "John", "Smith"},
		{"first_last three words", "John Paul Smith", false, OrderFirstLast, "John", "Paul Smith"},
		{"first_last single word", "Cher", false, OrderFirstLast, "", "Cher"},
		{"first_last keeps commas", "Smith, John", false, OrderFirstLast, "Smith,", "John"},
		{"last_first two words", "Smith John", false, OrderLastFirst, "John", "Smith"},
		{"last_first three words", "Smith John Paul", false, OrderLastFirst, "John Paul", "Smith"},
		{"last_first single word", "Cher", false, OrderLastFirst, "", "Cher"},
		{"last_first_comma", "Smith, John", false, OrderLastFirstComma, "John", "Smith"},
		{"last_first_comma spaced", "Smith ,  John Paul", false, OrderLastFirstComma, "John Paul", "Smith"},
		{"last_first_comma without comma", "John Smith", false, OrderLastFirstComma, "", "John Smith"},
		{"company", "Acme Corp", true, OrderFirstLast, "", "Acme Corp"},
		{"empty", "  ", false, OrderLastFirst, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitName(tt.input, tt.isCompany, tt.order)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestSplitThenCompute_RoundTrip(t *testing.T) {
	for i := 0; i < 20; i++ {
		first := gofakeit.FirstName()
		last := gofakeit.LastName()
		name := ComputeName(first, last, OrderLastFirstComma)

		gotFirst, gotLast := SplitName(name, false, OrderLastFirstComma)
		assert.Equal(t, CleanName(first, false), gotFirst)
		assert.Equal(t, CleanName(last, false), gotLast)
	}
}

func TestCheckRequired(t *testing.T) {
	assert.NoError(t, CheckRequired("Acme", "", "", true, Required{}))
	assert.Error(t, CheckRequired(" ", "", "", true, Required{}))
	assert.NoError(t, CheckRequired("", "John", "", false, Required{}))
	assert.Error(t, CheckRequired("", " ", "", false, Required{}))
	assert.Error(t, CheckRequired("", "John", "", false, Required{Lastname: true}))
	assert.Error(t, CheckRequired("", "", "Doe", false, ParseRequired("firstname_lastname")))
}

func TestParseRequired(t *testing.T) {
	assert.Equal(t, Required{}, ParseRequired(""))
	assert.Equal(t, Required{Firstname: true}, ParseRequired("firstname"))
	assert.Equal(t, Required{Lastname: true}, ParseRequired("lastname"))
	assert.Equal(t, Required{Firstname: true, Lastname: true}, ParseRequired("firstname_lastname"))
}

func TestValidateNames(t *testing.T) {
	t.Run("person without names", func(t *testing.T) {
		out := ApplyNames(map[string]any{"firstname": "", "lastname": ""}, nil, OrderFirstLast)
		assert.ErrorIs(t, ValidateNames(out, nil, Required{}), shared.ErrInvalidInput)
	})

	t.Run("company without name", func(t *testing.T) {
		err := ValidateNames(map[string]any{"name": "", "is_company": true}, nil, Required{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("write falls back to stored names", func(t *testing.T) {
		existing := map[string]any{"firstname": "Jane", "lastname": "Doe", "is_company": false}
		out := ApplyNames(map[string]any{"lastname": false}, existing, OrderFirstLast)
		assert.NoError(t, ValidateNames(out, existing, Required{}))
		assert.Error(t, ValidateNames(out, existing, Required{Lastname: true}))
	})

	t.Run("non contact address is exempt", func(t *testing.T) {
		assert.NoError(t, ValidateNames(map[string]any{"type": "delivery"}, nil, Required{}))
	})
}

func TestTouchesNames(t *testing.T) {
	assert.True(t, TouchesNames(map[string]any{"lastname": "Doe"}))
	assert.False(t, TouchesNames(map[string]any{"phone": "123"}))
}

func TestApplyNames(t *testing.T) {
	t.Run("name is split on create", func(t *testing.T) {
		out := ApplyNames(map[string]any{"name": "Jane  Doe"}, nil, OrderFirstLast)
		assert.Equal(t, "Jane", out["firstname"])
		assert.Equal(t, "Doe", out["lastname"])
		assert.Equal(t, "Jane Doe", out["name"])
	})

	t.Run("parts recompute name", func(t *testing.T) {
		existing := map[string]any{"firstname": "Jane", "lastname": "Doe"}
		out := ApplyNames(map[string]any{"lastname": "Roe"}, existing, OrderLastFirstComma)
		require.Contains(t, out, "name")
		assert.Equal(t, "Roe, Jane", out["name"])
	})

	t.Run("company keeps full name", func(t *testing.T) {
		out := ApplyNames(map[string]any{"name": "Acme Corp", "is_company": true}, nil, OrderFirstLast)
		assert.Equal(t, false, out["firstname"])
		assert.Equal(t, "Acme Corp", out["lastname"])
	})
}
