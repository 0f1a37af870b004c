// Package instrument resolves trading symbols to their pip and contract conventions.
package instrument

import (
	"strings"
	"unicode"

	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
)

const (
	majorPip      = 0.0001
	jpyPip        = 0.01
	forexContract = 100000
)

// DefaultSpec is returned when no rule matches: a 4-decimal major forex pair.
var DefaultSpec = types.InstrumentSpec{
	Symbol:       "",
	Category:     types.InstrumentForex,
	PipValue:     majorPip,
	PipPosition:  4,
	ContractSize: forexContract,
	USDBase:      false,
}

func forex(symbol string) types.InstrumentSpec {
	return types.InstrumentSpec{Symbol: symbol, Category: types.InstrumentForex, PipValue: majorPip, PipPosition: 4, ContractSize: forexContract}
}

func jpy(symbol string) types.InstrumentSpec {
	return types.InstrumentSpec{Symbol: symbol, Category: types.InstrumentForex, PipValue: jpyPip, PipPosition: 2, ContractSize: forexContract}
}

func usdBase(spec types.InstrumentSpec) types.InstrumentSpec {
	spec.USDBase = true

	return spec
}

func index(symbol string) types.InstrumentSpec {
	return types.InstrumentSpec{Symbol: symbol, Category: types.InstrumentIndex, PipValue: 1, PipPosition: 0, ContractSize: 1}
}

var (
	goldSpec   = types.InstrumentSpec{Symbol: "XAUUSD", Category: types.InstrumentMetal, PipValue: 0.1, PipPosition: 1, ContractSize: 100}
	silverSpec = types.InstrumentSpec{Symbol: "XAGUSD", Category: types.InstrumentMetal, PipValue: 0.01, PipPosition: 2, ContractSize: 5000}
	btcSpec    = types.InstrumentSpec{Symbol: "BTCUSD", Category: types.InstrumentCrypto, PipValue: 1, PipPosition: 0, ContractSize: 1}
	ethSpec    = types.InstrumentSpec{Symbol: "ETHUSD", Category: types.InstrumentCrypto, PipValue: 0.01, PipPosition: 2, ContractSize: 1}
	oilSpec    = types.InstrumentSpec{Symbol: "USOIL", Category: types.InstrumentCommodity, PipValue: 0.01, PipPosition: 2, ContractSize: 1000}
)

// builtinSpecs is the exact-match table, keyed by normalized symbol.
var builtinSpecs = map[string]types.InstrumentSpec{
	"EURUSD": forex("EURUSD"),
	"GBPUSD": forex("GBPUSD"),
	"AUDUSD": forex("AUDUSD"),
	"NZDUSD": forex("NZDUSD"),
	"EURGBP": forex("EURGBP"),
	"EURCHF": forex("EURCHF"),
	"EURAUD": forex("EURAUD"),
	"GBPCHF": forex("GBPCHF"),
	"AUDCAD": forex("AUDCAD"),
	"USDCHF": usdBase(forex("USDCHF")),
	"USDCAD": usdBase(forex("USDCAD")),
	"USDJPY": usdBase(jpy("USDJPY")),
	"EURJPY": jpy("EURJPY"),
	"GBPJPY": jpy("GBPJPY"),
	"AUDJPY": jpy("AUDJPY"),
	"CADJPY": jpy("CADJPY"),
	"CHFJPY": jpy("CHFJPY"),
	"XAUUSD": goldSpec,
	"XAGUSD": silverSpec,
	"BTCUSD": btcSpec,
	"ETHUSD": ethSpec,
	"USOIL":  oilSpec,
	"UKOIL":  withSymbol(oilSpec, "UKOIL"),
	"US30":   index("US30"),
	"NAS100": index("NAS100"),
	"SPX500": index("SPX500"),
	"GER40":  index("GER40"),
	"UK100":  index("UK100"),
}

// substringRule is checked in slice order; the first rule whose needle occurs in the
// symbol wins.
type substringRule struct {
	needles []string
	spec    types.InstrumentSpec
}

var substringRules = []substringRule{
	{needles: []string{"XAU", "GOLD"}, spec: goldSpec},
	{needles: []string{"XAG", "SILVER"}, spec: silverSpec},
	{needles: []string{"BTC"}, spec: btcSpec},
	{needles: []string{"ETH"}, spec: ethSpec},
	{needles: []string{"OIL", "WTI", "BRENT", "XTI", "XBR"}, spec: oilSpec},
}

func withSymbol(spec types.InstrumentSpec, symbol string) types.InstrumentSpec {
	spec.Symbol = symbol

	return spec
}

// Resolver maps symbols to InstrumentSpec values. The zero value is not usable; call
// NewResolver.
type Resolver struct {
	specs map[string]types.InstrumentSpec
}

// NewResolver creates a resolver over the built-in table plus the given overrides.
// Override keys are normalized the same way lookups are; entries without a positive pip
// value and contract size are ignored.
func NewResolver(overrides map[string]types.InstrumentSpec) *Resolver {
	specs := make(map[string]types.InstrumentSpec, len(builtinSpecs)+len(overrides))
	for k, v := range builtinSpecs {
		specs[k] = v
	}

	for k, v := range overrides {
		key := Normalize(k)
		if key == "" || v.PipValue <= 0 || v.ContractSize <= 0 {
			continue
		}

		v.Symbol = key
		specs[key] = v
	}

	return &Resolver{specs: specs}
}

// Normalize uppercases the symbol and strips everything but letters and digits, so
// "eur/usd" and "EUR_USD" both become "EURUSD" while "US30" keeps its digits.
func Normalize(symbol string) string {
	var b strings.Builder

	b.Grow(len(symbol))

	for _, r := range strings.ToUpper(symbol) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Resolve never fails. Order: exact table match, substring rules, contains JPY, default.
func (r *Resolver) Resolve(symbol string) types.InstrumentSpec {
	key := Normalize(symbol)

	if spec, ok := r.specs[key]; ok {
		return spec
	}

	for _, rule := range substringRules {
		for _, needle := range rule.needles {
			if strings.Contains(key, needle) {
				return withSymbol(rule.spec, key)
			}
		}
	}

	if strings.Contains(key, "JPY") {
		spec := jpy(key)
		spec.USDBase = strings.HasPrefix(key, "USD")

		return spec
	}

	spec := withSymbol(DefaultSpec, key)
	spec.USDBase = len(key) == 6 && strings.HasPrefix(key, "USD")

	return spec
}

// Known reports whether the symbol has an exact table entry.
func (r *Resolver) Known(symbol string) bool {
	_, ok := r.specs[Normalize(symbol)]

	return ok
}
