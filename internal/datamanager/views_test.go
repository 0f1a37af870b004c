package datamanager

import (
	"context"
	"testing"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/cache"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type ViewsTestSuite struct {
	suite.Suite
	manager *DataManager
}

func TestViewsSuite(t *testing.T) {
	suite.Run(t, new(ViewsTestSuite))
}

func (suite *ViewsTestSuite) SetupTest() {
	suite.manager = New(Config{Scope: "user-1"}, cache.New(cache.DefaultOptions(), nil), nil, nil)

	open := trade("o", 2, "EURUSD", types.DirectionBuy, 1.2500, 0, 0)
	open.ExitPrice = optional.None[float64]()
	open.Status = types.TradeStatusOpen
	open.StopLoss = optional.Some(1.2450)
	open.Notes = "waiting for NFP"

	naked := trade("n", 2, "GBPUSD", types.DirectionSell, 1.3000, 0, 0)
	naked.ExitPrice = optional.None[float64]()
	naked.Status = types.TradeStatusOpen

	withSetup := trade("c", 1, "EURUSD", types.DirectionSell, 1.2600, 1.2650, -500)
	withSetup.Setup = "Breakout"

	trades := []types.Trade{
		trade("a", 0, "EURUSD", types.DirectionBuy, 1.2500, 1.2580, 800),
		trade("b", 1, "XAUUSD", types.DirectionBuy, 2000, 2010, 1000),
		withSetup,
		open,
		naked,
		trade("z", 40, "EURUSD", types.DirectionBuy, 1.2500, 1.2500, 0),
	}

	suite.Require().NoError(suite.manager.SetTrades(context.Background(), trades, 10000, SetOptions{}))
}

func ids(trades []types.Trade) []string {
	out := make([]string, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.ID)
	}

	return out
}

func (suite *ViewsTestSuite) TestFilterDefaultsToNewestFirst() {
	page := suite.manager.GetFilteredTrades(TradeFilter{})
	suite.Equal(6, page.Total)
	suite.Equal([]string{"z", "o", "n", "b", "c", "a"}, ids(page.Trades))
	suite.False(page.HasMore)
}

func (suite *ViewsTestSuite) TestFilterCombinations() {
	tests := []struct {
		name     string
		filter   TradeFilter
		expected []string
	}{
		{"pair normalized", TradeFilter{Pairs: []string{"eur/usd"}, SortBy: SortByDate, Ascending: true}, []string{"a", "c", "o", "z"}},
		{"direction", TradeFilter{Direction: optional.Some(types.DirectionSell)}, []string{"n", "c"}},
		{"status", TradeFilter{Status: optional.Some(types.TradeStatusOpen)}, []string{"o", "n"}},
		{"outcome win", TradeFilter{Outcome: optional.Some(types.OutcomeWin), SortBy: SortByPnL}, []string{"b", "a"}},
		{"outcome breakeven excludes open", TradeFilter{Outcome: optional.Some(types.OutcomeBreakeven)}, []string{"z"}},
		{"setup case insensitive", TradeFilter{Setup: "breakout"}, []string{"c"}},
		{"search notes", TradeFilter{Search: "nfp"}, []string{"o"}},
		{"date range", TradeFilter{
			From:      optional.Some(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)),
			To:        optional.Some(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)),
			SortBy:    SortByPair,
			Ascending: true,
		}, []string{"c", "o", "n", "b"}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			page := suite.manager.GetFilteredTrades(tt.filter)
			suite.Equal(tt.expected, ids(page.Trades))
			suite.Equal(len(tt.expected), page.Total)
		})
	}
}

func (suite *ViewsTestSuite) TestPaging() {
	page := suite.manager.GetFilteredTrades(TradeFilter{Offset: 2, Limit: 3})
	suite.Equal([]string{"n", "b", "c"}, ids(page.Trades))
	suite.Equal(6, page.Total)
	suite.True(page.HasMore)

	page = suite.manager.GetFilteredTrades(TradeFilter{Offset: 10, Limit: 3})
	suite.Empty(page.Trades)
	suite.NotNil(page.Trades)
	suite.False(page.HasMore)
}

func (suite *ViewsTestSuite) TestTradesForDate() {
	day := time.Date(2024, 3, 2, 15, 30, 0, 0, time.UTC)

	suite.Equal([]string{"b", "c"}, ids(suite.manager.GetTradesForDate(day)))
	// second call is served from the cache and must be an independent copy
	cached := suite.manager.GetTradesForDate(day)
	cached[0].ID = "mutated"
	suite.Equal([]string{"b", "c"}, ids(suite.manager.GetTradesForDate(day)))

	suite.Require().NoError(suite.manager.RemoveTrade(context.Background(), "b"))
	suite.Equal([]string{"c"}, ids(suite.manager.GetTradesForDate(day)))
}

func (suite *ViewsTestSuite) TestCalendar() {
	march := suite.manager.GetCalendarData(2024, time.March)

	suite.Equal(2, march.TradingDays)
	suite.Equal(2, march.WinningDays)
	suite.Equal(0, march.LosingDays)
	suite.Equal(1300.0, march.TotalPnL)
	suite.Require().Len(march.Days, 2)
	suite.Equal("2024-03-01", march.Days[0].Date)
	suite.Equal(CalendarDay{Date: "2024-03-02", Trades: 2, Wins: 1, Losses: 1, PnL: 500}, march.Days[1])

	april := suite.manager.GetCalendarData(2024, time.April)
	suite.Equal(1, april.TradingDays)
	suite.Equal(0.0, april.TotalPnL)

	suite.Empty(suite.manager.GetCalendarData(2023, time.March).Days)
}

func (suite *ViewsTestSuite) TestPortfolioMetrics() {
	metrics := suite.manager.GetPortfolioMetrics(20000)

	suite.Equal(20000.0, metrics.StartingBalance)
	suite.Equal(21300.0, metrics.CurrentBalance)
	suite.Equal(6.5, metrics.ReturnPercent)
	suite.Equal(2, metrics.OpenPositions)
	suite.Equal(1, metrics.Unprotected)
	suite.Equal(500.0, metrics.OpenRisk)
	suite.Equal(2.35, metrics.OpenRiskPercent)
}

func (suite *ViewsTestSuite) TestChartViewsComeFromSnapshot() {
	snapshot := suite.manager.GetStatistics()

	suite.Equal(snapshot.EquityCurve, suite.manager.GetEquityCurve())
	suite.Len(suite.manager.GetEquityCurve(), 4)
	suite.Len(suite.manager.GetDrawdownSeries(), 5)
	suite.Equal("XAUUSD", suite.manager.GetPairPerformance()[0].Name)
	suite.Len(suite.manager.GetSetupPerformance(), 2)
	suite.Len(suite.manager.GetMonthlyPerformance(), 2)
}

func (suite *ViewsTestSuite) TestDynamicAccountBalance() {
	suite.Equal(11300.0, suite.manager.GetDynamicAccountBalance())

	configured := New(Config{AccountBalance: optional.Some(5000.0)}, nil, nil, nil)
	suite.Equal(5000.0, configured.GetDynamicAccountBalance())

	empty := New(Config{}, nil, nil, nil)
	suite.Equal(DefaultStartingBalance, empty.GetDynamicAccountBalance())
}
