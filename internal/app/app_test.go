package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/LurkingFox/Tradeworth-sub000/internal/config"
	"github.com/LurkingFox/Tradeworth-sub000/internal/datamanager"
	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/mocks"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type AppTestSuite struct {
	suite.Suite
	app *App
	ctx context.Context
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func (suite *AppTestSuite) SetupTest() {
	suite.ctx = context.Background()

	cfg := config.Default()
	cfg.UserID = "u1"

	a, err := New(suite.ctx, cfg, logger.NewNopLogger())
	suite.Require().NoError(err)

	suite.app = a
}

func (suite *AppTestSuite) TearDownTest() {
	suite.NoError(suite.app.Close())
}

func (suite *AppTestSuite) TestStartsEmpty() {
	stats := suite.app.Store().GetStatistics()
	suite.Zero(stats.TotalTrades)
	suite.Equal(types.GradeNone, stats.WorthScore.Grade)
	suite.Equal(10000.0, suite.app.StartingBalance())
}

func (suite *AppTestSuite) TestAddAndDeleteTrade() {
	var events []datamanager.Event

	unsubscribe := suite.app.Store().Subscribe(func(e datamanager.Event) {
		events = append(events, e)
	})
	defer unsubscribe()

	trade, err := suite.app.AddTrade(suite.ctx, types.RawTrade{
		Date: "2024-03-01", Pair: "eur/usd", Type: "long", Entry: "1.1000", Exit: "1.1050", LotSize: "1",
	})
	suite.Require().NoError(err)
	suite.Equal("EURUSD", trade.Pair)
	suite.Equal(types.ProvenanceManual, trade.Provenance)
	suite.InDelta(500, trade.PnL, 0.01)

	stats := suite.app.Store().GetStatistics()
	suite.Equal(1, stats.TotalTrades)
	suite.InDelta(500, stats.TotalPnL, 0.01)
	suite.Len(events, 1)

	_, err = suite.app.AddTrade(suite.ctx, types.RawTrade{
		Date: "2024-03-01", Pair: "EURUSD", Type: "buy", Entry: "1.1", Exit: "1.105", LotSize: "1",
	})
	suite.True(errors.HasCode(err, errors.ErrCodeDuplicateTrade))

	_, err = suite.app.AddTrade(suite.ctx, types.RawTrade{Pair: "EURUSD"})
	suite.True(errors.HasCode(err, errors.ErrCodeMissingRequiredFields))

	suite.NoError(suite.app.DeleteTrade(suite.ctx, trade.ID))
	suite.Zero(suite.app.Store().GetStatistics().TotalTrades)

	err = suite.app.DeleteTrade(suite.ctx, trade.ID)
	suite.True(errors.HasCode(err, errors.ErrCodeTradeNotFound))
}

func (suite *AppTestSuite) TestImportRefreshesStore() {
	opts := suite.app.ImportOptions()
	opts.ChunkSize = 100

	job, err := suite.app.Imports().Run(suite.ctx, mocks.GenerateUnique(250), opts)
	suite.Require().NoError(err)
	suite.Equal(types.ImportStatusCompleted, job.Status)
	suite.Equal(250, job.Totals.Succeeded)

	trades := suite.app.Store().GetTrades()
	suite.Len(trades, 250)
	suite.Equal(250, suite.app.Store().GetStatistics().TotalTrades)

	for _, t := range trades {
		suite.Equal(types.ProvenanceImported, t.Provenance)
	}

	// a second import of the same file adds nothing
	job, err = suite.app.Imports().Run(suite.ctx, mocks.GenerateUnique(250), opts)
	suite.Require().NoError(err)
	suite.Equal(250, job.Totals.Duplicate)
	suite.Len(suite.app.Store().GetTrades(), 250)

	removed, err := suite.app.DeleteTrades(suite.ctx, []string{trades[0].ID, trades[1].ID, "missing"})
	suite.NoError(err)
	suite.Equal(2, removed)
	suite.Len(suite.app.Store().GetTrades(), 248)
}

func (suite *AppTestSuite) TestExportStatistics() {
	_, err := suite.app.AddTrade(suite.ctx, types.RawTrade{
		Date: "2024-03-01", Pair: "XAUUSD", Type: "sell", Entry: "2000", Exit: "1990", LotSize: "0.5",
	})
	suite.Require().NoError(err)

	path := filepath.Join(suite.T().TempDir(), "stats.yaml")
	suite.Require().NoError(suite.app.ExportStatistics(path))

	export, err := types.ReadStatistics(path)
	suite.Require().NoError(err)
	suite.Equal("u1", export.UserID)
	suite.Equal(1, export.Statistics.TotalTrades)
	suite.InDelta(suite.app.Store().GetStatistics().TotalPnL, export.Statistics.TotalPnL, 1e-9)
}

func (suite *AppTestSuite) TestCloseIsIdempotent() {
	suite.NoError(suite.app.Close())
	suite.NoError(suite.app.Close())

	err := suite.app.Store().SetTrades(suite.ctx, nil, 1000, datamanager.SetOptions{})
	suite.True(errors.HasCode(err, errors.ErrCodeDisposed))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.UserID = ""

	_, err := New(context.Background(), cfg, nil)
	if !errors.HasCode(err, errors.ErrCodeInvalidConfiguration) {
		t.Fatalf("expected invalid configuration, got %v", err)
	}
}

func TestAddTradeAfterConcurrentRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	ctx := context.Background()

	cfg := config.Default()
	cfg.UserID = "u1"

	var (
		a         *App
		persisted []types.TradeRecord
	)

	repo.EXPECT().ListTrades(gomock.Any(), "u1").DoAndReturn(func(context.Context, string) ([]types.TradeRecord, error) {
		return persisted, nil
	}).Times(2)
	repo.EXPECT().InsertTrades(gomock.Any(), gomock.Len(1)).DoAndReturn(func(ctx context.Context, records []types.TradeRecord) (int, error) {
		persisted = records

		// The row is committed and another caller reloads the journal before AddTrade
		// reaches the store.
		return len(records), a.Refresh(ctx, "u1")
	})
	repo.EXPECT().Close().Return(nil)

	a, err := NewWithRepository(ctx, cfg, repo, logger.NewNopLogger())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	trade, err := a.AddTrade(ctx, types.RawTrade{
		Date: "2024-03-01", Pair: "EURUSD", Type: "buy", Entry: "1.1000", Exit: "1.1050", LotSize: "1",
	})
	require.NoError(t, err)
	require.Equal(t, "EURUSD", trade.Pair)

	trades := a.Store().GetTrades()
	require.Len(t, trades, 1)
	require.Equal(t, trade.ID, trades[0].ID)
}
