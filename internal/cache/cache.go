// Package cache is an in-memory, namespaced TTL cache for derived analytics. Keys are
// fingerprints of the trade set they were computed from, so a changed trade set simply
// misses.
package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/moznion/go-optional"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

type Namespace string

const (
	NamespaceStatistics   Namespace = "statistics"
	NamespaceChart        Namespace = "chart"
	NamespacePerformance  Namespace = "performance"
	NamespacePnL          Namespace = "pnl"
	NamespaceTradesByDate Namespace = "trades-by-date"
)

// Namespaces lists every namespace in a stable order.
var Namespaces = []Namespace{
	NamespaceStatistics,
	NamespaceChart,
	NamespacePerformance,
	NamespacePnL,
	NamespaceTradesByDate,
}

const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 100
	// evictPercent of a full namespace is dropped at once, oldest first.
	evictPercent = 20
	keySeparator = "|"
)

type Options struct {
	Enabled  bool
	TTL      time.Duration
	Capacity int
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// DefaultOptions returns an enabled cache with a 5 minute TTL and 100 entries per namespace.
func DefaultOptions() Options {
	return Options{
		Enabled:  true,
		TTL:      DefaultTTL,
		Capacity: DefaultCapacity,
		Now:      time.Now,
	}
}

// Stats are cumulative counters plus the current size.
type Stats struct {
	Hits      int64             `json:"hits" yaml:"hits"`
	Misses    int64             `json:"misses" yaml:"misses"`
	Evictions int64             `json:"evictions" yaml:"evictions"`
	Expired   int64             `json:"expired" yaml:"expired"`
	Size      int               `json:"size" yaml:"size"`
	Entries   map[Namespace]int `json:"entries" yaml:"entries"`
}

type entry struct {
	value     any
	timestamp time.Time
	seq       uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	opts     Options
	entries  map[Namespace]map[string]*entry
	seq      uint64
	stats    Stats
	disposed bool
	logger   *logger.Logger
}

func New(opts Options, log *logger.Logger) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	entries := make(map[Namespace]map[string]*entry, len(Namespaces))
	for _, ns := range Namespaces {
		entries[ns] = make(map[string]*entry)
	}

	return &Cache{
		mu:       sync.Mutex{},
		opts:     opts,
		entries:  entries,
		seq:      0,
		stats:    Stats{},
		disposed: false,
		logger:   log,
	}
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c.opts.Enabled
}

// Get returns the value stored under key unless it is missing or older than the TTL.
func (c *Cache) Get(ns Namespace, key string) optional.Option[any] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opts.Enabled || c.disposed {
		c.stats.Misses++

		return optional.None[any]()
	}

	e, ok := c.entries[ns][key]
	if !ok {
		c.stats.Misses++

		return optional.None[any]()
	}

	if c.opts.Now().Sub(e.timestamp) > c.opts.TTL {
		delete(c.entries[ns], key)
		c.stats.Misses++
		c.stats.Expired++

		return optional.None[any]()
	}

	c.stats.Hits++

	return optional.Some(e.value)
}

// GetAs is Get with a type assertion; a value of another type counts as absent.
func GetAs[T any](c *Cache, ns Namespace, key string) optional.Option[T] {
	v := c.Get(ns, key)
	if v.IsNone() {
		return optional.None[T]()
	}

	typed, ok := v.Unwrap().(T)
	if !ok {
		return optional.None[T]()
	}

	return optional.Some(typed)
}

// Set stores value under key. When the namespace grows past capacity the oldest fifth
// of its entries (at least one) is evicted.
func (c *Cache) Set(ns Namespace, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opts.Enabled || c.disposed {
		return
	}

	bucket, ok := c.entries[ns]
	if !ok {
		bucket = make(map[string]*entry)
		c.entries[ns] = bucket
	}

	c.seq++
	bucket[key] = &entry{value: value, timestamp: c.opts.Now(), seq: c.seq}

	if len(bucket) > c.opts.Capacity {
		c.evict(ns, bucket)
	}
}

//nolint:funcorder // helper method used by Set
func (c *Cache) evict(ns Namespace, bucket map[string]*entry) {
	n := max(len(bucket)*evictPercent/100, 1)

	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := bucket[keys[i]], bucket[keys[j]]
		if !a.timestamp.Equal(b.timestamp) {
			return a.timestamp.Before(b.timestamp)
		}

		return a.seq < b.seq
	})

	for _, k := range keys[:n] {
		delete(bucket, k)
	}

	c.stats.Evictions += int64(n)

	c.logger.Debug("Cache namespace over capacity, evicted oldest entries",
		zap.String("namespace", string(ns)),
		zap.Int("evicted", n),
		zap.Int("remaining", len(bucket)),
	)
}

// Invalidate removes every entry, in every namespace, whose key belongs to scope. It
// returns the number of entries removed.
func (c *Cache) Invalidate(scope string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	prefix := scope + keySeparator

	for _, bucket := range c.entries {
		for k := range bucket {
			if k == scope || strings.HasPrefix(k, prefix) {
				delete(bucket, k)
				removed++
			}
		}
	}

	if removed > 0 {
		c.logger.Debug("Cache scope invalidated", zap.String("scope", scope), zap.Int("removed", removed))
	}

	return removed
}

// InvalidateAll empties every namespace. Counters are kept.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ns := range c.entries {
		c.entries[ns] = make(map[string]*entry)
	}
}

// PurgeExpired drops entries older than the TTL and returns how many were removed.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	removed := 0

	for _, bucket := range c.entries {
		for k, e := range bucket {
			if now.Sub(e.timestamp) > c.opts.TTL {
				delete(bucket, k)
				removed++
			}
		}
	}

	c.stats.Expired += int64(removed)

	return removed
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = make(map[Namespace]int, len(c.entries))

	for ns, bucket := range c.entries {
		s.Entries[ns] = len(bucket)
		s.Size += len(bucket)
	}

	return s
}

// Dispose drops all entries. A disposed cache misses on every Get and ignores Set.
func (c *Cache) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ns := range c.entries {
		c.entries[ns] = make(map[string]*entry)
	}

	c.disposed = true
}

// Key joins scope and parts into a cache key that Invalidate(scope) matches.
func Key(scope string, parts ...string) string {
	return strings.Join(append([]string{scope}, parts...), keySeparator)
}

// Fingerprint identifies a trade set for caching: trade count, first and last trade
// date, exact total P&L, the account balance and a digest of the trades themselves.
// Any P&L change produces a different fingerprint.
func Fingerprint(scope string, trades []types.Trade, balance float64) string {
	var (
		first, last time.Time
		total       float64
	)

	h := xxh3.New()

	for i, t := range trades {
		if i == 0 || t.Date.Before(first) {
			first = t.Date
		}

		if i == 0 || t.Date.After(last) {
			last = t.Date
		}

		total += t.PnL

		_, _ = h.WriteString(t.ID)
		_, _ = h.WriteString(keySeparator)
		_, _ = h.WriteString(strconv.FormatFloat(t.PnL, 'g', -1, 64))
		_, _ = h.WriteString(keySeparator)
		_, _ = h.WriteString(string(t.Status))
		_, _ = h.WriteString(keySeparator)
		_, _ = h.WriteString(t.DedupHash)
		_, _ = h.WriteString(keySeparator)
	}

	return Key(scope,
		strconv.Itoa(len(trades)),
		dateOrNone(first, len(trades)),
		dateOrNone(last, len(trades)),
		strconv.FormatFloat(total, 'g', -1, 64),
		strconv.FormatFloat(balance, 'g', -1, 64),
		fmt.Sprintf("%016x", h.Sum64()),
	)
}

func dateOrNone(t time.Time, n int) string {
	if n == 0 {
		return "none"
	}

	return t.Format(types.DateLayout)
}
