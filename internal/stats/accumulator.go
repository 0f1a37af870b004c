package stats

import (
	"math"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/calculator"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
)

// UntaggedSetup is the setup bucket for trades without a setup tag.
const UntaggedSetup = "untagged"

// groupAccumulator holds running totals for one pair, setup or period bucket.
type groupAccumulator struct {
	start  time.Time
	trades int
	wins   int
	losses int
	pnl    float64
}

// accumulator collects everything that does not depend on trade order. A list is split
// into chunks, every chunk gets its own accumulator and the results are merged in chunk
// order.
type accumulator struct {
	total      int
	open       int
	closed     int
	wins       int
	losses     int
	breakeven  int
	pnl        float64
	grossWin   float64
	grossLoss  float64
	largestWin float64
	largestLos float64
	pips       float64

	withStop   int
	withTarget int

	riskCount int
	riskSum   float64
	riskMax   float64

	rrCount int
	rrSum   float64

	// closedPnL keeps input order; it feeds the distribution metrics.
	closedPnL []float64

	pairs   map[string]*groupAccumulator
	setups  map[string]*groupAccumulator
	monthly map[string]*groupAccumulator
	daily   map[string]*groupAccumulator
}

func newAccumulator() *accumulator {
	return &accumulator{
		closedPnL: make([]float64, 0),
		pairs:     make(map[string]*groupAccumulator),
		setups:    make(map[string]*groupAccumulator),
		monthly:   make(map[string]*groupAccumulator),
		daily:     make(map[string]*groupAccumulator),
	}
}

func (acc *accumulator) add(calc *calculator.Calculator, trade types.Trade) {
	acc.total++

	if trade.HasStop() {
		acc.withStop++

		if amount, err := calc.CalculateRiskAmount(trade.EntryPrice, trade.StopLoss.Unwrap(), trade.LotSize, trade.Pair); err == nil {
			acc.riskCount++
			acc.riskSum += amount
			acc.riskMax = math.Max(acc.riskMax, amount)
		}
	}

	if trade.HasTarget() {
		acc.withTarget++
	}

	if trade.RiskReward.IsSome() && finite(trade.RiskReward.Unwrap()) {
		acc.rrCount++
		acc.rrSum += trade.RiskReward.Unwrap()
	}

	if !trade.IsClosed() {
		acc.open++

		return
	}

	pnl := sanitize(trade.PnL)

	acc.closed++
	acc.pnl += pnl
	acc.closedPnL = append(acc.closedPnL, pnl)

	switch {
	case pnl > 0:
		acc.wins++
		acc.grossWin += pnl
		acc.largestWin = math.Max(acc.largestWin, pnl)
	case pnl < 0:
		acc.losses++
		acc.grossLoss += -pnl
		acc.largestLos = math.Min(acc.largestLos, pnl)
	default:
		acc.breakeven++
	}

	if trade.ExitPrice.IsSome() {
		acc.pips += trade.Direction.Sign() * calc.CalculatePips(trade.EntryPrice, trade.ExitPrice.Unwrap(), trade.Pair)
	}

	setup := trade.Setup
	if setup == "" {
		setup = UntaggedSetup
	}

	day := time.Date(trade.Date.Year(), trade.Date.Month(), trade.Date.Day(), 0, 0, 0, 0, time.UTC)
	month := time.Date(trade.Date.Year(), trade.Date.Month(), 1, 0, 0, 0, 0, time.UTC)

	addToGroup(acc.pairs, trade.Pair, time.Time{}, pnl)
	addToGroup(acc.setups, setup, time.Time{}, pnl)
	addToGroup(acc.monthly, month.Format("2006-01"), month, pnl)
	addToGroup(acc.daily, day.Format(types.DateLayout), day, pnl)
}

func addToGroup(groups map[string]*groupAccumulator, key string, start time.Time, pnl float64) {
	g, ok := groups[key]
	if !ok {
		g = &groupAccumulator{start: start}
		groups[key] = g
	}

	g.trades++
	g.pnl += pnl

	switch {
	case pnl > 0:
		g.wins++
	case pnl < 0:
		g.losses++
	}
}

// merge folds other into acc. Merging chunk accumulators in chunk order gives the same
// result as accumulating the whole list at once.
func (acc *accumulator) merge(other *accumulator) {
	acc.total += other.total
	acc.open += other.open
	acc.closed += other.closed
	acc.wins += other.wins
	acc.losses += other.losses
	acc.breakeven += other.breakeven
	acc.pnl += other.pnl
	acc.grossWin += other.grossWin
	acc.grossLoss += other.grossLoss
	acc.largestWin = math.Max(acc.largestWin, other.largestWin)
	acc.largestLos = math.Min(acc.largestLos, other.largestLos)
	acc.pips += other.pips
	acc.withStop += other.withStop
	acc.withTarget += other.withTarget
	acc.riskCount += other.riskCount
	acc.riskSum += other.riskSum
	acc.riskMax = math.Max(acc.riskMax, other.riskMax)
	acc.rrCount += other.rrCount
	acc.rrSum += other.rrSum
	acc.closedPnL = append(acc.closedPnL, other.closedPnL...)

	mergeGroups(acc.pairs, other.pairs)
	mergeGroups(acc.setups, other.setups)
	mergeGroups(acc.monthly, other.monthly)
	mergeGroups(acc.daily, other.daily)
}

func mergeGroups(dst, src map[string]*groupAccumulator) {
	for key, g := range src {
		d, ok := dst[key]
		if !ok {
			copied := *g
			dst[key] = &copied

			continue
		}

		d.trades += g.trades
		d.wins += g.wins
		d.losses += g.losses
		d.pnl += g.pnl
	}
}
