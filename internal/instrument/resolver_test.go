package instrument

import (
	"testing"

	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil)

	tests := []struct {
		name         string
		symbol       string
		category     types.InstrumentCategory
		pipValue     float64
		pipPosition  int
		contractSize float64
		usdBase      bool
	}{
		{"exact major", "EURUSD", types.InstrumentForex, 0.0001, 4, 100000, false},
		{"separator and case", "eur/usd", types.InstrumentForex, 0.0001, 4, 100000, false},
		{"usd base", "USD_CHF", types.InstrumentForex, 0.0001, 4, 100000, true},
		{"exact jpy", "USDJPY", types.InstrumentForex, 0.01, 2, 100000, true},
		{"gold", "XAUUSD", types.InstrumentMetal, 0.1, 1, 100, false},
		{"gold alias", "GOLD", types.InstrumentMetal, 0.1, 1, 100, false},
		{"silver alias", "silver.spot", types.InstrumentMetal, 0.01, 2, 5000, false},
		{"bitcoin variant", "BTCUSDT", types.InstrumentCrypto, 1, 0, 1, false},
		{"ether", "ETH-EUR", types.InstrumentCrypto, 0.01, 2, 1, false},
		{"oil alias", "WTI", types.InstrumentCommodity, 0.01, 2, 1000, false},
		{"index keeps digits", "us30", types.InstrumentIndex, 1, 0, 1, false},
		{"fuzzy jpy", "NZDJPY", types.InstrumentForex, 0.01, 2, 100000, false},
		{"default", "EURNOK", types.InstrumentForex, 0.0001, 4, 100000, false},
		{"default usd base", "USDSEK", types.InstrumentForex, 0.0001, 4, 100000, true},
		{"empty", "", types.InstrumentForex, 0.0001, 4, 100000, false},
		{"garbage", "?!#", types.InstrumentForex, 0.0001, 4, 100000, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spec := r.Resolve(tt.symbol)
			assert.Equal(t, tt.category, spec.Category)
			assert.InDelta(t, tt.pipValue, spec.PipValue, 1e-12)
			assert.Equal(t, tt.pipPosition, spec.PipPosition)
			assert.InDelta(t, tt.contractSize, spec.ContractSize, 1e-9)
			assert.Equal(t, tt.usdBase, spec.USDBase)
		})
	}
}

func TestResolvePriorityGoldBeforeJPY(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil)

	// Contains both XAU and JPY: the metal rule has priority.
	spec := r.Resolve("XAUJPY")
	assert.Equal(t, types.InstrumentMetal, spec.Category)
	assert.Equal(t, "XAUJPY", spec.Symbol)
}

func TestResolverOverrides(t *testing.T) {
	t.Parallel()

	r := NewResolver(map[string]types.InstrumentSpec{
		"de-40": {Category: types.InstrumentIndex, PipValue: 0.5, PipPosition: 1, ContractSize: 25},
	})

	spec := r.Resolve("DE40")
	assert.Equal(t, "DE40", spec.Symbol)
	assert.InDelta(t, 25.0, spec.ContractSize, 1e-9)
	assert.True(t, r.Known("de40"))
	assert.False(t, r.Known("XAUJPY"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "EURUSD", Normalize(" eur/usd "))
	assert.Equal(t, "NAS100", Normalize("nas_100"))
	assert.Equal(t, "", Normalize("--"))
}
