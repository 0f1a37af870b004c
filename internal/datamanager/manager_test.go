package datamanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/cache"
	"github.com/LurkingFox/Tradeworth-sub000/internal/stats"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type DataManagerTestSuite struct {
	suite.Suite
	cache   *cache.Cache
	manager *DataManager
	ctx     context.Context
}

func TestDataManagerSuite(t *testing.T) {
	suite.Run(t, new(DataManagerTestSuite))
}

func (suite *DataManagerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.cache = cache.New(cache.DefaultOptions(), nil)
	suite.manager = New(Config{Scope: "user-1"}, suite.cache, stats.NewAggregator(nil, 0, 0, nil), nil)
}

func (suite *DataManagerTestSuite) TearDownTest() {
	suite.manager.Dispose()
}

func trade(id string, d int, pair string, direction types.Direction, entry, exit, pnl float64) types.Trade {
	return types.Trade{
		ID:         id,
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d),
		Pair:       pair,
		Direction:  direction,
		EntryPrice: entry,
		ExitPrice:  optional.Some(exit),
		StopLoss:   optional.None[float64](),
		TakeProfit: optional.None[float64](),
		LotSize:    1,
		PnL:        pnl,
		Status:     types.TradeStatusClosed,
		RiskReward: optional.None[float64](),
		Provenance: types.ProvenanceManual,
		DedupHash:  id,
	}
}

func fixture() []types.Trade {
	return []types.Trade{
		trade("a", 0, "EURUSD", types.DirectionBuy, 1.2500, 1.2580, 800),
		trade("b", 1, "XAUUSD", types.DirectionBuy, 2000, 2010, 1000),
		trade("c", 1, "EURUSD", types.DirectionSell, 1.2600, 1.2650, -500),
	}
}

func (suite *DataManagerTestSuite) TestSetTradesReusesCachedSnapshot() {
	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))
	first := suite.manager.GetStatistics()
	suite.Equal(1300.0, first.TotalPnL)

	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))
	suite.Same(first, suite.manager.GetStatistics())
	suite.Equal(int64(1), suite.cache.Stats().Hits)
}

func (suite *DataManagerTestSuite) TestPnLChangeForcesRecompute() {
	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))
	first := suite.manager.GetStatistics()

	changed := fixture()
	changed[2].PnL = -500.01

	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, changed, 10000, SetOptions{}))
	suite.NotSame(first, suite.manager.GetStatistics())
	suite.Equal(1299.99, suite.manager.GetStatistics().TotalPnL)

	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, changed, 20000, SetOptions{}))
	suite.InDelta(6.5, suite.manager.GetStatistics().ReturnPercent, 0.011)
}

func (suite *DataManagerTestSuite) TestSkipCache() {
	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))
	first := suite.manager.GetStatistics()

	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{SkipCache: true}))
	suite.NotSame(first, suite.manager.GetStatistics())
	suite.Equal(first, suite.manager.GetStatistics())
}

func (suite *DataManagerTestSuite) TestSubscribersNotifiedInOrder() {
	var order []string

	var last Event

	unsubscribeA := suite.manager.Subscribe(func(e Event) {
		order = append(order, "a")
		last = e
	})
	suite.manager.Subscribe(func(Event) { order = append(order, "b") })

	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))
	suite.Equal([]string{"a", "b"}, order)
	suite.Len(last.Trades, 3)
	suite.Same(suite.manager.GetStatistics(), last.Statistics)
	suite.False(last.Timestamp.IsZero())

	unsubscribeA()
	unsubscribeA()

	suite.Require().NoError(suite.manager.AddTrade(suite.ctx, trade("d", 2, "GBPUSD", types.DirectionBuy, 1.3, 1.31, 1000)))
	suite.Equal([]string{"a", "b", "b"}, order)
}

func (suite *DataManagerTestSuite) TestPanickingSubscriberDoesNotBlockOthers() {
	called := false

	suite.manager.Subscribe(func(Event) { panic("boom") })
	suite.manager.Subscribe(func(Event) { called = true })

	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))
	suite.True(called)
}

func (suite *DataManagerTestSuite) TestAddTrade() {
	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))

	err := suite.manager.AddTrade(suite.ctx, trade("d", 3, "GBPUSD", types.DirectionBuy, 1.3, 1.31, 1000))
	suite.Require().NoError(err)
	suite.Equal(4, suite.manager.GetStatistics().TotalTrades)
	suite.Equal(2300.0, suite.manager.GetStatistics().TotalPnL)

	err = suite.manager.AddTrade(suite.ctx, trade("d", 3, "GBPUSD", types.DirectionBuy, 1.3, 1.31, 1000))
	suite.True(errors.HasCode(err, errors.ErrCodeDuplicateTrade))

	invalid := trade("e", 3, "", types.DirectionBuy, 1.3, 1.31, 1000)
	err = suite.manager.AddTrade(suite.ctx, invalid)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTrade))
	suite.Len(suite.manager.GetTrades(), 4)
}

func (suite *DataManagerTestSuite) TestUpdateTrade() {
	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))

	updated, err := suite.manager.UpdateTrade(suite.ctx, "a", types.TradePatch{ExitPrice: optional.Some(1.2600)})
	suite.Require().NoError(err)
	suite.Equal(1000.0, updated.PnL)
	suite.Equal(1500.0, suite.manager.GetStatistics().TotalPnL)

	updated, err = suite.manager.UpdateTrade(suite.ctx, "a", types.TradePatch{
		ExitPrice: optional.Some(1.2700),
		PnL:       optional.Some(1950.0),
	})
	suite.Require().NoError(err)
	suite.Equal(1950.0, updated.PnL)

	updated, err = suite.manager.UpdateTrade(suite.ctx, "a", types.TradePatch{Notes: optional.Some("held over news")})
	suite.Require().NoError(err)
	suite.Equal(1950.0, updated.PnL)
	suite.Equal("held over news", updated.Notes)

	updated, err = suite.manager.UpdateTrade(suite.ctx, "b", types.TradePatch{ClearExit: true})
	suite.Require().NoError(err)
	suite.Equal(types.TradeStatusOpen, updated.Status)
	suite.Equal(1, suite.manager.GetStatistics().OpenTrades)

	_, err = suite.manager.UpdateTrade(suite.ctx, "missing", types.TradePatch{})
	suite.True(errors.HasCode(err, errors.ErrCodeTradeNotFound))
}

func (suite *DataManagerTestSuite) TestRemoveTrades() {
	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))

	suite.Require().NoError(suite.manager.RemoveTrade(suite.ctx, "a"))
	suite.Equal(2, suite.manager.GetStatistics().TotalTrades)

	err := suite.manager.RemoveTrade(suite.ctx, "a")
	suite.True(errors.HasCode(err, errors.ErrCodeTradeNotFound))

	removed, err := suite.manager.RemoveTrades(suite.ctx, []string{"b", "c", "zzz"})
	suite.Require().NoError(err)
	suite.Equal(2, removed)
	suite.Equal(types.EmptySnapshot(), suite.manager.GetStatistics())
	suite.NotNil(suite.manager.GetTrades())
}

func (suite *DataManagerTestSuite) TestCancelledRecomputeKeepsState() {
	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))
	before := suite.manager.GetStatistics()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := suite.manager.AddTrade(ctx, trade("d", 3, "GBPUSD", types.DirectionBuy, 1.3, 1.31, 1000))
	suite.True(errors.HasCode(err, errors.ErrCodeCanceled))
	suite.Same(before, suite.manager.GetStatistics())
	suite.Len(suite.manager.GetTrades(), 3)
}

func (suite *DataManagerTestSuite) TestDispose() {
	suite.manager.Dispose()

	err := suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{})
	suite.True(errors.HasCode(err, errors.ErrCodeDisposed))
	suite.Empty(suite.manager.GetTrades())
}

func (suite *DataManagerTestSuite) TestConcurrentReadersDuringMutations() {
	suite.Require().NoError(suite.manager.SetTrades(suite.ctx, fixture(), 10000, SetOptions{}))

	var wg sync.WaitGroup

	stop := make(chan struct{})

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
					s := suite.manager.GetStatistics()
					trades := suite.manager.GetTrades()
					_ = s.TotalTrades + len(trades)
				}
			}
		}()
	}

	for i := range 20 {
		id := string(rune('f' + i))
		suite.Require().NoError(suite.manager.AddTrade(suite.ctx, trade(id, i, "EURUSD", types.DirectionBuy, 1.1, 1.101, 100)))
	}

	close(stop)
	wg.Wait()

	suite.Equal(23, suite.manager.GetStatistics().TotalTrades)
}
