// Package datamanager is the observable store every consumer reads trade data and
// statistics from. It owns the current trade list and snapshot, recomputes the snapshot
// on every mutation and notifies subscribers afterwards.
package datamanager

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/cache"
	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/normalize"
	"github.com/LurkingFox/Tradeworth-sub000/internal/stats"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// DefaultStartingBalance is used by GetDynamicAccountBalance when no balance is configured.
const DefaultStartingBalance = 10000.0

// DefaultScope is the cache scope used when neither the config nor SetOptions name one.
const DefaultScope = "local"

type Config struct {
	// Scope namespaces cache keys, usually the user id.
	Scope string
	// AccountBalance overrides the dynamic balance when set.
	AccountBalance         optional.Option[float64]
	DefaultStartingBalance float64
}

// Event is delivered to subscribers after a mutation has been applied.
type Event struct {
	Trades     []types.Trade
	Statistics *types.StatisticsSnapshot
	Timestamp  time.Time
}

// Unsubscribe removes a subscription. Calling it more than once is harmless.
type Unsubscribe func()

type SetOptions struct {
	// Scope overrides the configured cache scope for this and later recomputes.
	Scope string
	// SkipCache forces a recompute even when a cached snapshot matches.
	SkipCache bool
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// DataManager serializes writers with writeMu, held for the whole
// recompute, cache and notify sequence. Readers take mu and never wait on a recompute.
// Subscribers are called synchronously in registration order and must not call a
// mutating method from the callback.
type DataManager struct {
	cfg        Config
	cache      *cache.Cache
	aggregator *stats.Aggregator
	normalizer *normalize.Normalizer
	logger     *logger.Logger
	now        func() time.Time

	writeMu sync.Mutex

	mu          sync.RWMutex
	trades      []types.Trade
	statistics  *types.StatisticsSnapshot
	balance     float64
	version     uint64
	subscribers []subscriber
	nextSubID   uint64
	disposed    bool
}

// New creates a store. A nil cache disables caching; a nil aggregator uses the defaults.
func New(cfg Config, c *cache.Cache, aggregator *stats.Aggregator, log *logger.Logger) *DataManager {
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}

	if cfg.DefaultStartingBalance <= 0 {
		cfg.DefaultStartingBalance = DefaultStartingBalance
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	if aggregator == nil {
		aggregator = stats.NewAggregator(nil, stats.DefaultChunkSize, stats.DefaultWorkers, log)
	}

	if c == nil {
		opts := cache.DefaultOptions()
		opts.Enabled = false
		c = cache.New(opts, log)
	}

	return &DataManager{
		cfg:         cfg,
		cache:       c,
		aggregator:  aggregator,
		normalizer:  normalize.New(aggregator.Calculator()),
		logger:      log,
		now:         time.Now,
		writeMu:     sync.Mutex{},
		mu:          sync.RWMutex{},
		trades:      []types.Trade{},
		statistics:  types.EmptySnapshot(),
		balance:     cfg.AccountBalance.TakeOr(cfg.DefaultStartingBalance),
		version:     0,
		subscribers: nil,
		nextSubID:   0,
		disposed:    false,
	}
}

// Dispose drops all state and subscribers. Mutations on a disposed store fail with
// ErrCodeDisposed; reads return empty values.
func (m *DataManager) Dispose() {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.trades = []types.Trade{}
	m.statistics = types.EmptySnapshot()
	m.subscribers = nil
	m.disposed = true

	m.logger.Debug("Data manager disposed", zap.String("scope", m.cfg.Scope))
}

// Subscribe registers fn for mutation events.
func (m *DataManager) Subscribe(fn func(Event)) Unsubscribe {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubID++
	id := m.nextSubID
	m.subscribers = append(m.subscribers, subscriber{id: id, fn: fn})

	var once sync.Once

	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()

			m.subscribers = slices.DeleteFunc(m.subscribers, func(s subscriber) bool {
				return s.id == id
			})
		})
	}
}

// SetTrades replaces the whole trade list. When the fingerprint of the new list matches
// a cached snapshot, the cached snapshot pointer is reused.
func (m *DataManager) SetTrades(ctx context.Context, trades []types.Trade, balance float64, opts SetOptions) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.checkDisposed(); err != nil {
		return err
	}

	if opts.Scope != "" {
		m.mu.Lock()
		m.cfg.Scope = opts.Scope
		m.mu.Unlock()
	}

	return m.commit(ctx, slices.Clone(trades), balance, !opts.SkipCache)
}

// AddTrade appends a trade. The id must be unique within the store.
func (m *DataManager) AddTrade(ctx context.Context, trade types.Trade) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.checkDisposed(); err != nil {
		return err
	}

	if err := m.normalizer.Calculator().CheckStructure(trade); err != nil {
		return err
	}

	current := m.snapshotTrades()
	if indexOf(current, trade.ID) >= 0 {
		return errors.Newf(errors.ErrCodeDuplicateTrade, "trade %s already exists", trade.ID)
	}

	return m.commit(ctx, append(current, trade), m.currentBalance(), false)
}

// UpdateTrade applies patch to the trade with the given id and returns the updated
// trade. Derived fields are recomputed; P&L is recalculated from prices when the patch
// touches a price, unless the patch sets P&L itself.
func (m *DataManager) UpdateTrade(ctx context.Context, id string, patch types.TradePatch) (types.Trade, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.checkDisposed(); err != nil {
		return types.Trade{}, err
	}

	current := m.snapshotTrades()

	idx := indexOf(current, id)
	if idx < 0 {
		return types.Trade{}, errors.Newf(errors.ErrCodeTradeNotFound, "trade %s not found", id)
	}

	updated, err := m.normalizer.Recalculate(patch.Apply(current[idx]), patch.PricesChanged() && patch.PnL.IsNone())
	if err != nil {
		return types.Trade{}, err
	}

	if err := m.normalizer.Calculator().CheckStructure(updated); err != nil {
		return types.Trade{}, err
	}

	current[idx] = updated

	if err := m.commit(ctx, current, m.currentBalance(), false); err != nil {
		return types.Trade{}, err
	}

	return updated, nil
}

// RemoveTrade deletes one trade.
func (m *DataManager) RemoveTrade(ctx context.Context, id string) error {
	removed, err := m.RemoveTrades(ctx, []string{id})
	if err != nil {
		return err
	}

	if removed == 0 {
		return errors.Newf(errors.ErrCodeTradeNotFound, "trade %s not found", id)
	}

	return nil
}

// RemoveTrades deletes every trade whose id is listed and returns how many were found.
// Nothing is recomputed when no id matched.
func (m *DataManager) RemoveTrades(ctx context.Context, ids []string) (int, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.checkDisposed(); err != nil {
		return 0, err
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	current := m.snapshotTrades()
	before := len(current)
	kept := slices.DeleteFunc(current, func(t types.Trade) bool {
		_, ok := drop[t.ID]

		return ok
	})

	removed := before - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := m.commit(ctx, kept, m.currentBalance(), false); err != nil {
		return 0, err
	}

	return removed, nil
}

// commit computes the snapshot for trades, publishes the new state and notifies
// subscribers. writeMu must be held. On error the previous state is kept.
//
//nolint:funcorder // helper method used by every mutation
func (m *DataManager) commit(ctx context.Context, trades []types.Trade, balance float64, useCache bool) error {
	start := m.now()

	if trades == nil {
		trades = []types.Trade{}
	}

	m.mu.RLock()
	scope := m.cfg.Scope
	m.mu.RUnlock()

	key := cache.Fingerprint(scope, trades, balance)

	var snapshot *types.StatisticsSnapshot

	if useCache {
		if cached := cache.GetAs[*types.StatisticsSnapshot](m.cache, cache.NamespaceStatistics, key); cached.IsSome() {
			snapshot = cached.Unwrap()

			m.logger.Debug("Statistics served from cache", zap.String("scope", scope), zap.Int("trades", len(trades)))
		}
	}

	if snapshot == nil {
		computed, err := m.aggregator.Aggregate(ctx, trades, balance)
		if err != nil {
			return errors.Wrap(errors.ErrCodeCanceled, "statistics recompute aborted", err)
		}

		snapshot = computed
		m.cache.Set(cache.NamespaceStatistics, key, snapshot)
	}

	m.mu.Lock()
	m.trades = trades
	m.statistics = snapshot
	m.balance = balance
	m.version++
	subscribers := slices.Clone(m.subscribers)
	m.mu.Unlock()

	event := Event{
		Trades:     slices.Clone(trades),
		Statistics: snapshot,
		Timestamp:  m.now(),
	}

	for _, s := range subscribers {
		m.deliver(s, event)
	}

	m.logger.Debug("Trade state committed",
		zap.String("scope", scope),
		zap.Int("trades", len(trades)),
		zap.Int("subscribers", len(subscribers)),
		zap.Duration("elapsed", m.now().Sub(start)),
	)

	return nil
}

//nolint:funcorder // helper method used by commit
func (m *DataManager) deliver(s subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Subscriber panicked", zap.Uint64("subscriber", s.id), zap.Any("panic", r))
		}
	}()

	s.fn(event)
}

//nolint:funcorder
func (m *DataManager) checkDisposed() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.disposed {
		return errors.New(errors.ErrCodeDisposed, "data manager is disposed")
	}

	return nil
}

//nolint:funcorder
func (m *DataManager) snapshotTrades() []types.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.trades)
}

//nolint:funcorder
func (m *DataManager) currentBalance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.balance
}

func indexOf(trades []types.Trade, id string) int {
	return slices.IndexFunc(trades, func(t types.Trade) bool {
		return t.ID == id
	})
}
