// Package app wires the engine: persistence, cache, store, and import pipeline.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/cache"
	"github.com/LurkingFox/Tradeworth-sub000/internal/calculator"
	"github.com/LurkingFox/Tradeworth-sub000/internal/config"
	"github.com/LurkingFox/Tradeworth-sub000/internal/datamanager"
	"github.com/LurkingFox/Tradeworth-sub000/internal/importer"
	"github.com/LurkingFox/Tradeworth-sub000/internal/instrument"
	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/normalize"
	"github.com/LurkingFox/Tradeworth-sub000/internal/persistence"
	"github.com/LurkingFox/Tradeworth-sub000/internal/stats"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

type App struct {
	cfg        config.Config
	logger     *logger.Logger
	repo       persistence.Repository
	cache      *cache.Cache
	store      *datamanager.DataManager
	normalizer *normalize.Normalizer
	pipeline   *importer.Pipeline
	registry   *importer.Registry

	stopSweep context.CancelFunc
	sweepDone chan struct{}
	closeOnce sync.Once
}

// New opens the configured DuckDB database and loads the user's journal.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	repo, err := persistence.NewDuckDBRepository(cfg.DatabasePath, log)
	if err != nil {
		return nil, err
	}

	a, err := NewWithRepository(ctx, cfg, repo, log)
	if err != nil {
		repo.Close()

		return nil, err
	}

	return a, nil
}

// NewWithRepository wires the engine around repo, which the app owns from now on.
func NewWithRepository(ctx context.Context, cfg config.Config, repo persistence.Repository, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	calc := calculator.New(instrument.NewResolver(cfg.InstrumentSpecs()))
	normalizer := normalize.New(calc)
	aggregator := stats.NewAggregator(calc, cfg.Stats.ChunkSize, cfg.Stats.Workers, log.Named("stats"))

	c := cache.New(cache.Options{
		Enabled:  cfg.Cache.Enabled,
		TTL:      cfg.Cache.TTL,
		Capacity: cfg.Cache.Capacity,
		Now:      time.Now,
	}, log)

	store := datamanager.New(datamanager.Config{
		Scope:                  cfg.UserID,
		AccountBalance:         cfg.AccountBalance,
		DefaultStartingBalance: cfg.DefaultStartingBalance,
	}, c, aggregator, log.Named("datamanager"))

	a := &App{
		cfg:        cfg,
		logger:     log.Named("app"),
		repo:       repo,
		cache:      c,
		store:      store,
		normalizer: normalizer,
		pipeline:   nil,
		registry:   nil,
		stopSweep:  nil,
		sweepDone:  nil,
		closeOnce:  sync.Once{},
	}

	a.pipeline = importer.NewPipeline(repo, c, a, normalizer, importer.Config{
		TargetChunkBytes: cfg.Import.TargetChunkBytes,
		Workers:          cfg.Import.Workers,
	}, log)
	a.registry = importer.NewRegistry(a.pipeline, cfg.Import.Retention, log)

	if err := a.Refresh(ctx, cfg.UserID); err != nil {
		return nil, err
	}

	sweepCtx, stop := context.WithCancel(context.Background())
	a.stopSweep = stop
	a.sweepDone = make(chan struct{})

	go a.sweepLoop(sweepCtx, cfg.Import.SweepInterval)

	return a, nil
}

func (a *App) Config() config.Config {
	return a.cfg
}

func (a *App) Store() *datamanager.DataManager {
	return a.store
}

func (a *App) Imports() *importer.Registry {
	return a.registry
}

func (a *App) Cache() *cache.Cache {
	return a.cache
}

// StartingBalance is the balance statistics are computed against.
func (a *App) StartingBalance() float64 {
	return a.cfg.AccountBalance.TakeOr(a.cfg.DefaultStartingBalance)
}

// ImportOptions returns the import options of the configured user.
func (a *App) ImportOptions() importer.Options {
	return importer.Options{
		UserID:      a.cfg.UserID,
		Provenance:  types.ProvenanceImported,
		ChunkSize:   0,
		Deduplicate: a.cfg.Import.Deduplicate,
		OnProgress:  optional.None[importer.ProgressCallback](),
	}
}

// Refresh reloads the user's persisted trades into the store. Rows that no longer
// convert are skipped and logged.
func (a *App) Refresh(ctx context.Context, userID string) error {
	records, err := a.repo.ListTrades(ctx, userID)
	if err != nil {
		return err
	}

	trades := make([]types.Trade, 0, len(records))

	for _, rec := range records {
		trade, err := normalize.FromRecord(rec)
		if err != nil {
			a.logger.Warn("Skipping unreadable persisted trade", zap.String("id", rec.ID), zap.Error(err))

			continue
		}

		trades = append(trades, trade)
	}

	if err := a.store.SetTrades(ctx, trades, a.StartingBalance(), datamanager.SetOptions{Scope: userID, SkipCache: false}); err != nil {
		return err
	}

	a.logger.Debug("Journal refreshed", zap.String("user_id", userID), zap.Int("trades", len(trades)))

	return nil
}

// AddTrade normalizes a manually entered trade, persists it, and adds it to the store.
func (a *App) AddTrade(ctx context.Context, raw types.RawTrade) (types.Trade, error) {
	trade, err := a.normalizer.Normalize(raw, types.ProvenanceManual)
	if err != nil {
		return types.Trade{}, err
	}

	if _, err := a.repo.InsertTrades(ctx, []types.TradeRecord{normalize.ToRecord(trade, a.cfg.UserID)}); err != nil {
		if errors.HasCode(err, errors.ErrCodeUniqueViolation) {
			return types.Trade{}, errors.Wrap(errors.ErrCodeDuplicateTrade, "trade is already in the journal", err)
		}

		return types.Trade{}, err
	}

	// A refresh between the insert and here may already have loaded the trade.
	if err := a.store.AddTrade(ctx, trade); err != nil && !errors.HasCode(err, errors.ErrCodeDuplicateTrade) {
		return types.Trade{}, err
	}

	return trade, nil
}

// DeleteTrades removes trades from the backend and the store and returns how many
// were persisted.
func (a *App) DeleteTrades(ctx context.Context, ids []string) (int, error) {
	removed, err := a.repo.DeleteTrades(ctx, a.cfg.UserID, ids)
	if err != nil {
		return 0, err
	}

	if _, err := a.store.RemoveTrades(ctx, ids); err != nil {
		return removed, err
	}

	return removed, nil
}

// DeleteTrade removes a single trade.
func (a *App) DeleteTrade(ctx context.Context, id string) error {
	removed, err := a.DeleteTrades(ctx, []string{id})
	if err != nil {
		return err
	}

	if removed == 0 {
		return errors.Newf(errors.ErrCodeTradeNotFound, "trade %s not found", id)
	}

	return nil
}

// ExportStatistics writes the current snapshot to path as YAML.
func (a *App) ExportStatistics(path string) error {
	return types.WriteStatistics(path, types.StatisticsExport{
		SchemaVersion:  "",
		EngineVersion:  "",
		ExportedAt:     time.Now().UTC(),
		UserID:         a.cfg.UserID,
		AccountBalance: a.StartingBalance(),
		Statistics:     a.store.GetStatistics(),
	})
}

// Close stops background work, waits for running imports, and releases the backend.
func (a *App) Close() error {
	var err error

	a.closeOnce.Do(func() {
		if a.stopSweep != nil {
			a.stopSweep()
			<-a.sweepDone
		}

		a.registry.Wait()
		a.store.Dispose()
		a.cache.Dispose()

		err = a.repo.Close()
	})

	return err
}

//nolint:funcorder // helper method used by NewWithRepository
func (a *App) sweepLoop(ctx context.Context, interval time.Duration) {
	defer close(a.sweepDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged := a.cache.PurgeExpired()
			swept := a.registry.Sweep()

			if purged > 0 || swept > 0 {
				a.logger.Debug("Background sweep", zap.Int("cache_entries", purged), zap.Int("imports", swept))
			}
		}
	}
}
