package mocks

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
)

// TradeGenerator generates realistic raw journal records for testing and benchmarking.
type TradeGenerator struct {
	rng *rand.Rand
}

// NewTradeGenerator creates a new TradeGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewTradeGenerator(seed int64) *TradeGenerator {
	return &TradeGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// TradeGeneratorConfig configures how trades are generated.
type TradeGeneratorConfig struct {
	// Pairs are cycled through in order. Unknown pairs start at a price of 100.
	Pairs []string
	// StartDate is the date of the first trade
	StartDate time.Time
	// TradesPerDay controls how many consecutive records share a date
	TradesPerDay int
	// Count is the number of records to generate
	Count int
	// WinRate is the probability that a closed trade exits in profit (0.0 to 1.0)
	WinRate float64
	// OpenRatio is the fraction of records left without an exit (0.0 to 1.0)
	OpenRatio float64
	// Volatility is the typical exit distance as a fraction of the entry price
	Volatility float64
}

// DefaultTradeConfig returns a sensible default configuration.
func DefaultTradeConfig() TradeGeneratorConfig {
	return TradeGeneratorConfig{
		Pairs:        []string{"EURUSD", "GBPUSD", "USDJPY", "XAUUSD"},
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TradesPerDay: 5,
		Count:        1000,
		WinRate:      0.55,
		OpenRatio:    0.05,
		Volatility:   0.002, // 0.2% per trade
	}
}

var basePrices = map[string]float64{
	"EURUSD": 1.10,
	"GBPUSD": 1.27,
	"USDJPY": 150.0,
	"XAUUSD": 2000.0,
	"BTCUSD": 60000.0,
}

var setups = []string{"breakout", "pullback", "range", ""}

// Generate creates raw records whose dedup hashes are all distinct: records on the same
// date always differ in lot size.
func (g *TradeGenerator) Generate(config TradeGeneratorConfig) []types.RawTrade {
	perDay := max(config.TradesPerDay, 1)
	prices := make(map[string]float64, len(config.Pairs))
	trades := make([]types.RawTrade, config.Count)

	for i := range config.Count {
		pair := config.Pairs[i%len(config.Pairs)]

		price, ok := prices[pair]
		if !ok {
			price = basePrices[pair]
			if price == 0 {
				price = 100
			}
		}

		// Random walk between entries, Box-Muller for the normal draw
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(1-u1)) * math.Cos(2*math.Pi*u2)

		entry := price * (1 + config.Volatility*z*0.5)
		if entry <= 0 {
			entry = price
		}

		prices[pair] = entry

		sign := 1.0
		direction := "buy"

		if g.rng.Float64() < 0.5 {
			sign = -1
			direction = "sell"
		}

		move := entry * config.Volatility * (0.5 + g.rng.Float64())
		decimals := priceDecimals(pair)

		raw := types.RawTrade{
			Date:       config.StartDate.AddDate(0, 0, i/perDay).Format(types.DateLayout),
			Pair:       pair,
			Type:       direction,
			Entry:      formatPrice(entry, decimals),
			StopLoss:   formatPrice(entry-sign*move*1.2, decimals),
			TakeProfit: formatPrice(entry+sign*move*2, decimals),
			LotSize:    types.RawNumber(strconv.FormatFloat(0.01*float64(1+i%100), 'f', 2, 64)),
			Setup:      setups[i%len(setups)],
			Notes:      "",
		}

		if g.rng.Float64() >= config.OpenRatio {
			outcome := -1.0
			if g.rng.Float64() < config.WinRate {
				outcome = 1
			}

			raw.Exit = formatPrice(entry+sign*outcome*move, decimals)
		}

		trades[i] = raw
	}

	return trades
}

// GenerateUnique is a convenience function returning n unique, valid records
// with default settings.
func GenerateUnique(n int) []types.RawTrade {
	gen := NewTradeGenerator(42) // Fixed seed for reproducibility
	config := DefaultTradeConfig()
	config.Count = n

	return gen.Generate(config)
}

func priceDecimals(pair string) int {
	switch {
	case strings.Contains(pair, "JPY"):
		return 3
	case strings.HasPrefix(pair, "XAU"), strings.HasPrefix(pair, "BTC"):
		return 2
	default:
		return 5
	}
}

func formatPrice(v float64, decimals int) types.RawNumber {
	return types.RawNumber(strconv.FormatFloat(v, 'f', decimals, 64))
}
