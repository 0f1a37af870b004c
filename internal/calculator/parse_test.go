package calculator

import (
	"testing"

	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFinancialNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		expected float64
	}{
		{"1234.56", 1234.56},
		{"-12.5", -12.5},
		{"+3", 3},
		{"1,234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"1.234.567,89", 1234567.89},
		{"1,234,567", 1234567},
		{"1,234", 1234},
		{"12,5", 12.5},
		{"$1,250.00", 1250},
		{"1.250,00 €", 1250},
		{"USD 99.95", 99.95},
		{"(250.00)", -250},
		{"($1,000)", -1000},
		{"-12.5%", -12.5},
		{"250-", -250},
		{"1'234.5", 1234.5},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			v, err := ParseFinancialNumber(tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, v, 1e-9)
		})
	}
}

func TestParseFinancialNumberInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "abc", "$", "1.2.3#", "NaN", "Inf", "."} {
		v, err := ParseFinancialNumber(raw)
		assert.Equal(t, 0.0, v, raw)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidNumber), raw)
		assert.Equal(t, 0.0, ParseOrZero(raw), raw)
	}
}
