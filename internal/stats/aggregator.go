// Package stats turns a trade list into a StatisticsSnapshot.
package stats

import (
	"context"
	"sort"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/calculator"
	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkSize is the number of trades per partial accumulator.
	DefaultChunkSize = 1000
	// DefaultWorkers bounds the goroutines used for partial accumulation.
	DefaultWorkers = 4
)

// Aggregator computes statistics snapshots. Order-independent totals are accumulated per
// chunk on a bounded worker pool and merged in chunk order; streaks, drawdown and the
// equity curve are computed afterwards in one chronological pass. Since the chunking
// does not depend on the worker count, every worker count yields the same snapshot.
type Aggregator struct {
	calc      *calculator.Calculator
	chunkSize int
	workers   int
	logger    *logger.Logger
}

// NewAggregator creates an aggregator. Non-positive sizes fall back to the defaults.
func NewAggregator(calc *calculator.Calculator, chunkSize, workers int, log *logger.Logger) *Aggregator {
	if calc == nil {
		calc = calculator.New(nil)
	}

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	if workers <= 0 {
		workers = DefaultWorkers
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Aggregator{
		calc:      calc,
		chunkSize: chunkSize,
		workers:   workers,
		logger:    log,
	}
}

// Calculator returns the calculator used for pips and risk amounts.
func (a *Aggregator) Calculator() *calculator.Calculator {
	return a.calc
}

// Aggregate computes a snapshot on the calling goroutine with the built-in instrument
// table. It never fails.
func Aggregate(trades []types.Trade, accountBalance float64) *types.StatisticsSnapshot {
	snapshot, _ := NewAggregator(nil, DefaultChunkSize, 1, nil).Aggregate(context.Background(), trades, accountBalance)

	return snapshot
}

// Aggregate computes the snapshot of trades against the starting accountBalance. The
// only possible error is the context's.
func (a *Aggregator) Aggregate(ctx context.Context, trades []types.Trade, accountBalance float64) (*types.StatisticsSnapshot, error) {
	start := time.Now()

	if len(trades) == 0 {
		return types.EmptySnapshot(), nil
	}

	chunks := (len(trades) + a.chunkSize - 1) / a.chunkSize
	partials := make([]*accumulator, chunks)

	accumulate := func(i int) {
		lo := i * a.chunkSize
		hi := min(lo+a.chunkSize, len(trades))

		acc := newAccumulator()
		for _, trade := range trades[lo:hi] {
			acc.add(a.calc, trade)
		}

		partials[i] = acc
	}

	if a.workers == 1 || chunks == 1 {
		for i := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			accumulate(i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.workers)

		for i := range chunks {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				accumulate(i)

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	total := newAccumulator()
	for _, p := range partials {
		total.merge(p)
	}

	snapshot := a.finalize(total, trades, accountBalance)

	a.logger.Debug("Statistics aggregated",
		zap.Int("trades", len(trades)),
		zap.Int("chunks", chunks),
		zap.Duration("elapsed", time.Since(start)),
	)

	return snapshot, nil
}

//nolint:funcorder // helper method used by Aggregate
func (a *Aggregator) finalize(acc *accumulator, trades []types.Trade, balance float64) *types.StatisticsSnapshot {
	s := types.EmptySnapshot()

	s.TotalTrades = acc.total
	s.OpenTrades = acc.open
	s.ClosedTrades = acc.closed
	s.WinningTrades = acc.wins
	s.LosingTrades = acc.losses
	s.BreakevenTrades = acc.breakeven

	winRate := ratio(float64(acc.wins), float64(acc.closed)) * 100
	lossRate := ratio(float64(acc.losses), float64(acc.closed)) * 100
	avgWin := ratio(acc.grossWin, float64(acc.wins))
	avgLoss := ratio(acc.grossLoss, float64(acc.losses))
	pf := profitFactor(acc.grossWin, acc.grossLoss)

	s.WinRate = round2(winRate)
	s.LossRate = round2(lossRate)
	s.TotalPnL = round2(acc.pnl)
	s.GrossProfit = round2(acc.grossWin)
	s.GrossLoss = round2(acc.grossLoss)
	s.AverageWin = round2(avgWin)
	s.AverageLoss = round2(avgLoss)
	s.LargestWin = round2(acc.largestWin)
	s.LargestLoss = round2(acc.largestLos)
	s.AverageTradePnL = round2(ratio(acc.pnl, float64(acc.closed)))
	s.ProfitFactor = round2(pf)
	s.TotalPips = sanitize(roundTo(acc.pips, 1))
	s.ReturnPercent = round2(ratio(acc.pnl, balance) * 100)

	chronological := closedChronological(trades)
	streaks := scanStreaks(chronological)

	s.CurrentWinStreak = streaks.currentWin
	s.CurrentLossStreak = streaks.currentLoss
	s.MaxWinStreak = streaks.maxWin
	s.MaxLossStreak = streaks.maxLoss

	curve := buildCurves(chronological, balance)

	s.MaxDrawdown = round2(curve.maxDrawdown)
	s.CurrentDrawdown = round2(curve.currentDrawdown)
	s.MaxDrawdownAmount = round2(curve.maxDrawdownAmount)
	s.EquityCurve = curve.equity
	s.DrawdownSeries = curve.drawdown

	returns := make([]float64, len(acc.closedPnL))
	for i, pnl := range acc.closedPnL {
		if balance > 0 {
			returns[i] = pnl / balance * 100
		} else {
			returns[i] = pnl
		}
	}

	s.Expectancy = round2(winRate/100*avgWin - lossRate/100*avgLoss)
	s.RecoveryFactor = round2(ratio(acc.pnl, curve.maxDrawdown/100*balance))
	s.CalmarRatio = round2(ratio(ratio(acc.pnl, balance)*100, curve.maxDrawdown))
	s.SharpeRatio = round2(sharpe(returns))
	s.SortinoRatio = round2(sortino(returns))
	s.Skewness = round2(skewness(acc.closedPnL))
	s.Kurtosis = round2(excessKurtosis(acc.closedPnL))
	s.KellyCriterion = round2(kelly(winRate, avgWin, avgLoss))

	avgRR := ratio(acc.rrSum, float64(acc.rrCount))
	var95 := valueAtRisk95(acc.closedPnL)

	s.Risk = types.RiskMetrics{
		MaxRiskPerTrade:      round2(ratio(acc.riskMax, balance) * 100),
		AvgRiskPerTrade:      round2(ratio(ratio(acc.riskSum, float64(acc.riskCount)), balance) * 100),
		TradesWithRisk:       acc.riskCount,
		AverageRiskReward:    round2(avgRR),
		ValueAtRisk95:        round2(var95),
		ValueAtRisk95Percent: round2(ratio(var95, balance) * 100),
	}

	s.PairPerformance = groupRows(acc.pairs)
	s.SetupPerformance = groupRows(acc.setups)
	s.MonthlyPerformance = periodRows(acc.monthly)
	s.DailyPerformance = periodRows(acc.daily)

	positiveDays := 0

	for _, day := range acc.daily {
		if day.pnl > 0 {
			positiveDays++
		}
	}

	s.WorthScore = worthScore(worthInputs{
		closed:        acc.closed,
		total:         acc.total,
		winRate:       winRate,
		profitFactor:  pf,
		avgRiskReward: avgRR,
		maxDrawdown:   curve.maxDrawdown,
		maxLossStreak: streaks.maxLoss,
		withStop:      acc.withStop,
		withTarget:    acc.withTarget,
		positiveDays:  positiveDays,
		tradingDays:   len(acc.daily),
	})

	return s
}

// closedChronological returns the closed trades stable-sorted by date, so trades on the
// same day keep their input order.
func closedChronological(trades []types.Trade) []types.Trade {
	closed := make([]types.Trade, 0, len(trades))

	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}

	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].Date.Before(closed[j].Date)
	})

	return closed
}

type streakResult struct {
	currentWin  int
	currentLoss int
	maxWin      int
	maxLoss     int
}

// scanStreaks walks closed trades in order. A zero P&L trade ends both streaks.
func scanStreaks(chronological []types.Trade) streakResult {
	var r streakResult

	for _, t := range chronological {
		switch {
		case t.PnL > 0:
			r.currentWin++
			r.currentLoss = 0
		case t.PnL < 0:
			r.currentLoss++
			r.currentWin = 0
		default:
			r.currentWin = 0
			r.currentLoss = 0
		}

		r.maxWin = max(r.maxWin, r.currentWin)
		r.maxLoss = max(r.maxLoss, r.currentLoss)
	}

	return r
}

type curveResult struct {
	equity            []types.EquityPoint
	drawdown          []types.DrawdownPoint
	maxDrawdown       float64
	currentDrawdown   float64
	maxDrawdownAmount float64
}

// buildCurves replays the closed trades from the starting balance. The drawdown series
// starts with the starting balance dated at the first trade.
func buildCurves(chronological []types.Trade, start float64) curveResult {
	r := curveResult{
		equity:   make([]types.EquityPoint, 0, len(chronological)),
		drawdown: make([]types.DrawdownPoint, 0, len(chronological)+1),
	}

	if len(chronological) == 0 {
		return r
	}

	balance := start
	peak := start
	cumulative := 0.0

	r.drawdown = append(r.drawdown, types.DrawdownPoint{
		Date:            chronological[0].Date,
		Balance:         round2(balance),
		Peak:            round2(peak),
		DrawdownPercent: 0,
	})

	for _, t := range chronological {
		pnl := sanitize(t.PnL)
		balance += pnl
		cumulative += pnl
		peak = max(peak, balance)

		amount := peak - balance
		percent := 0.0

		if peak > 0 {
			percent = amount / peak * 100
		}

		r.maxDrawdown = max(r.maxDrawdown, percent)
		r.maxDrawdownAmount = max(r.maxDrawdownAmount, amount)
		r.currentDrawdown = percent

		r.equity = append(r.equity, types.EquityPoint{
			Date:          t.Date,
			TradeID:       t.ID,
			Balance:       round2(balance),
			CumulativePnL: round2(cumulative),
		})
		r.drawdown = append(r.drawdown, types.DrawdownPoint{
			Date:            t.Date,
			Balance:         round2(balance),
			Peak:            round2(peak),
			DrawdownPercent: round2(percent),
		})
	}

	return r
}

// groupRows sorts by total P&L descending, ties by name.
func groupRows(groups map[string]*groupAccumulator) []types.GroupPerformance {
	rows := make([]types.GroupPerformance, 0, len(groups))

	for name, g := range groups {
		rows = append(rows, types.GroupPerformance{
			Name:       name,
			Trades:     g.trades,
			Wins:       g.wins,
			Losses:     g.losses,
			WinRate:    round2(ratio(float64(g.wins), float64(g.trades)) * 100),
			TotalPnL:   round2(g.pnl),
			AveragePnL: round2(ratio(g.pnl, float64(g.trades))),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalPnL != rows[j].TotalPnL {
			return rows[i].TotalPnL > rows[j].TotalPnL
		}

		return rows[i].Name < rows[j].Name
	})

	return rows
}

// periodRows sorts chronologically.
func periodRows(groups map[string]*groupAccumulator) []types.PeriodPerformance {
	rows := make([]types.PeriodPerformance, 0, len(groups))

	for period, g := range groups {
		rows = append(rows, types.PeriodPerformance{
			Period:  period,
			Start:   g.start,
			Trades:  g.trades,
			Wins:    g.wins,
			Losses:  g.losses,
			WinRate: round2(ratio(float64(g.wins), float64(g.trades)) * 100),
			PnL:     round2(g.pnl),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Start.Before(rows[j].Start)
	})

	return rows
}
