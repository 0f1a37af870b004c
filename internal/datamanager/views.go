package datamanager

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/cache"
	"github.com/LurkingFox/Tradeworth-sub000/internal/instrument"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/moznion/go-optional"
)

type SortField string

const (
	SortByDate    SortField = "date"
	SortByPnL     SortField = "pnl"
	SortByPair    SortField = "pair"
	SortByLotSize SortField = "lot_size"
)

// TradeFilter selects and orders trades. Zero values do not filter. Without a sort
// field trades are ordered by date, newest first.
type TradeFilter struct {
	Pairs     []string
	Direction optional.Option[types.Direction]
	Status    optional.Option[types.TradeStatus]
	Outcome   optional.Option[types.Outcome]
	Setup     string
	From      optional.Option[time.Time]
	To        optional.Option[time.Time]
	Search    string
	SortBy    SortField
	Ascending bool
	Offset    int
	Limit     int
}

type TradePage struct {
	Trades  []types.Trade `json:"trades"`
	Total   int           `json:"total"`
	Offset  int           `json:"offset"`
	Limit   int           `json:"limit"`
	HasMore bool          `json:"has_more"`
}

type CalendarDay struct {
	Date   string  `json:"date"`
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	PnL    float64 `json:"pnl"`
}

type CalendarMonth struct {
	Year        int           `json:"year"`
	Month       time.Month    `json:"month"`
	Days        []CalendarDay `json:"days"`
	TotalPnL    float64       `json:"total_pnl"`
	TradingDays int           `json:"trading_days"`
	WinningDays int           `json:"winning_days"`
	LosingDays  int           `json:"losing_days"`
}

type PortfolioMetrics struct {
	StartingBalance float64 `json:"starting_balance"`
	CurrentBalance  float64 `json:"current_balance"`
	TotalPnL        float64 `json:"total_pnl"`
	ReturnPercent   float64 `json:"return_percent"`
	OpenPositions   int     `json:"open_positions"`
	// OpenRisk is the loss if every open position hits its stop.
	OpenRisk        float64 `json:"open_risk"`
	OpenRiskPercent float64 `json:"open_risk_percent"`
	// Unprotected counts open positions without a stop loss.
	Unprotected  int     `json:"unprotected"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
}

// viewKey scopes a derived view to the current state version, so every commit starts
// with fresh view entries.
//
//nolint:funcorder
func (m *DataManager) viewKey(parts ...string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return cache.Key(m.cfg.Scope, append([]string{strconv.FormatUint(m.version, 10)}, parts...)...)
}

// GetTrades returns a copy of the current trade list.
func (m *DataManager) GetTrades() []types.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.trades)
}

// GetStatistics returns the current snapshot. The pointer is shared; do not modify it.
func (m *DataManager) GetStatistics() *types.StatisticsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.statistics
}

func (m *DataManager) GetFilteredTrades(filter TradeFilter) TradePage {
	trades := m.GetTrades()

	pairs := make(map[string]struct{}, len(filter.Pairs))
	for _, p := range filter.Pairs {
		pairs[instrument.Normalize(p)] = struct{}{}
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	matched := slices.DeleteFunc(trades, func(t types.Trade) bool {
		return !matches(t, filter, pairs, search)
	})

	sortTrades(matched, filter.SortBy, filter.Ascending)

	page := TradePage{
		Trades:  []types.Trade{},
		Total:   len(matched),
		Offset:  max(filter.Offset, 0),
		Limit:   filter.Limit,
		HasMore: false,
	}

	if page.Offset >= len(matched) {
		return page
	}

	end := len(matched)
	if filter.Limit > 0 {
		end = min(page.Offset+filter.Limit, len(matched))
	}

	page.Trades = matched[page.Offset:end]
	page.HasMore = end < len(matched)

	return page
}

func matches(t types.Trade, f TradeFilter, pairs map[string]struct{}, search string) bool {
	if len(pairs) > 0 {
		if _, ok := pairs[t.Pair]; !ok {
			return false
		}
	}

	if f.Direction.IsSome() && t.Direction != f.Direction.Unwrap() {
		return false
	}

	if f.Status.IsSome() && t.Status != f.Status.Unwrap() {
		return false
	}

	if f.Outcome.IsSome() && (!t.IsClosed() || t.Outcome() != f.Outcome.Unwrap()) {
		return false
	}

	if f.Setup != "" && !strings.EqualFold(t.Setup, f.Setup) {
		return false
	}

	if f.From.IsSome() && t.Date.Before(f.From.Unwrap()) {
		return false
	}

	if f.To.IsSome() && t.Date.After(f.To.Unwrap()) {
		return false
	}

	if search != "" {
		haystack := strings.ToLower(t.Pair + " " + t.Setup + " " + t.Notes)
		if !strings.Contains(haystack, search) {
			return false
		}
	}

	return true
}

func sortTrades(trades []types.Trade, field SortField, ascending bool) {
	less := func(a, b types.Trade) int {
		switch field {
		case SortByPnL:
			return compareFloat(a.PnL, b.PnL)
		case SortByPair:
			return strings.Compare(a.Pair, b.Pair)
		case SortByLotSize:
			return compareFloat(a.LotSize, b.LotSize)
		default:
			return a.Date.Compare(b.Date)
		}
	}

	slices.SortStableFunc(trades, func(a, b types.Trade) int {
		if ascending {
			return less(a, b)
		}

		return less(b, a)
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// GetTradesForDate returns the trades on the calendar day of date, in store order.
func (m *DataManager) GetTradesForDate(date time.Time) []types.Trade {
	dayKey := date.UTC().Format(types.DateLayout)

	key := m.viewKey("date", dayKey)

	if cached := cache.GetAs[[]types.Trade](m.cache, cache.NamespaceTradesByDate, key); cached.IsSome() {
		return slices.Clone(cached.Unwrap())
	}

	trades := m.GetTrades()
	result := slices.DeleteFunc(trades, func(t types.Trade) bool {
		return t.DateKey() != dayKey
	})

	m.cache.Set(cache.NamespaceTradesByDate, key, slices.Clone(result))

	return result
}

// GetCalendarData returns per-day results of closed trades for one month. Days without
// closed trades are omitted.
func (m *DataManager) GetCalendarData(year int, month time.Month) CalendarMonth {
	key := m.viewKey("calendar", fmt.Sprintf("%04d-%02d", year, month))

	if cached := cache.GetAs[CalendarMonth](m.cache, cache.NamespacePnL, key); cached.IsSome() {
		return cached.Unwrap()
	}

	byDay := make(map[string]*CalendarDay)

	for _, t := range m.GetTrades() {
		if !t.IsClosed() || t.Date.Year() != year || t.Date.Month() != month {
			continue
		}

		d, ok := byDay[t.DateKey()]
		if !ok {
			d = &CalendarDay{Date: t.DateKey()}
			byDay[t.DateKey()] = d
		}

		d.Trades++
		d.PnL += t.PnL

		switch t.Outcome() {
		case types.OutcomeWin:
			d.Wins++
		case types.OutcomeLoss:
			d.Losses++
		case types.OutcomeBreakeven:
		}
	}

	result := CalendarMonth{
		Year:  year,
		Month: month,
		Days:  make([]CalendarDay, 0, len(byDay)),
	}

	for _, d := range byDay {
		d.PnL = roundCents(d.PnL)
		result.Days = append(result.Days, *d)
		result.TotalPnL += d.PnL

		switch {
		case d.PnL > 0:
			result.WinningDays++
		case d.PnL < 0:
			result.LosingDays++
		}
	}

	sort.Slice(result.Days, func(i, j int) bool {
		return result.Days[i].Date < result.Days[j].Date
	})

	result.TotalPnL = roundCents(result.TotalPnL)
	result.TradingDays = len(result.Days)

	m.cache.Set(cache.NamespacePnL, key, result)

	return result
}

// GetPortfolioMetrics evaluates the current trades against a starting balance.
func (m *DataManager) GetPortfolioMetrics(balance float64) PortfolioMetrics {
	m.mu.RLock()
	key := cache.Key(m.cfg.Scope, strconv.FormatUint(m.version, 10), "portfolio", strconv.FormatFloat(balance, 'g', -1, 64))
	snapshot := m.statistics
	m.mu.RUnlock()

	if cached := cache.GetAs[PortfolioMetrics](m.cache, cache.NamespacePerformance, key); cached.IsSome() {
		return cached.Unwrap()
	}

	calc := m.normalizer.Calculator()
	metrics := PortfolioMetrics{
		StartingBalance: balance,
		CurrentBalance:  roundCents(balance + snapshot.TotalPnL),
		TotalPnL:        snapshot.TotalPnL,
		WinRate:         snapshot.WinRate,
		ProfitFactor:    snapshot.ProfitFactor,
		MaxDrawdown:     snapshot.MaxDrawdown,
		SharpeRatio:     snapshot.SharpeRatio,
	}

	if balance > 0 {
		metrics.ReturnPercent = roundCents(snapshot.TotalPnL / balance * 100)
	}

	for _, t := range m.GetTrades() {
		if t.IsClosed() {
			continue
		}

		metrics.OpenPositions++

		if !t.HasStop() {
			metrics.Unprotected++

			continue
		}

		if risk, err := calc.CalculateRiskAmount(t.EntryPrice, t.StopLoss.Unwrap(), t.LotSize, t.Pair); err == nil {
			metrics.OpenRisk += risk
		}
	}

	metrics.OpenRisk = roundCents(metrics.OpenRisk)
	if metrics.CurrentBalance > 0 {
		metrics.OpenRiskPercent = roundCents(metrics.OpenRisk / metrics.CurrentBalance * 100)
	}

	m.cache.Set(cache.NamespacePerformance, key, metrics)

	return metrics
}

func (m *DataManager) GetEquityCurve() []types.EquityPoint {
	return m.GetStatistics().EquityCurve
}

func (m *DataManager) GetDrawdownSeries() []types.DrawdownPoint {
	return m.GetStatistics().DrawdownSeries
}

func (m *DataManager) GetPairPerformance() []types.GroupPerformance {
	return m.GetStatistics().PairPerformance
}

func (m *DataManager) GetSetupPerformance() []types.GroupPerformance {
	return m.GetStatistics().SetupPerformance
}

func (m *DataManager) GetMonthlyPerformance() []types.PeriodPerformance {
	return m.GetStatistics().MonthlyPerformance
}

// GetDynamicAccountBalance returns the configured balance, or the default starting
// balance plus the P&L of every closed trade.
func (m *DataManager) GetDynamicAccountBalance() float64 {
	if m.cfg.AccountBalance.IsSome() {
		return m.cfg.AccountBalance.Unwrap()
	}

	total := 0.0

	for _, t := range m.GetTrades() {
		if t.IsClosed() {
			total += t.PnL
		}
	}

	return roundCents(m.cfg.DefaultStartingBalance + total)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
