package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/stretchr/testify/suite"
)

type CacheTestSuite struct {
	suite.Suite
	now   time.Time
	cache *Cache
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (suite *CacheTestSuite) SetupTest() {
	suite.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	opts := DefaultOptions()
	opts.Capacity = 10
	opts.Now = func() time.Time { return suite.now }

	suite.cache = New(opts, nil)
}

func (suite *CacheTestSuite) advance(d time.Duration) {
	suite.now = suite.now.Add(d)
}

func (suite *CacheTestSuite) TestSetGet() {
	suite.cache.Set(NamespaceStatistics, "user-1|a", 42)

	v := suite.cache.Get(NamespaceStatistics, "user-1|a")
	suite.True(v.IsSome())
	suite.Equal(42, v.Unwrap())

	suite.True(suite.cache.Get(NamespaceChart, "user-1|a").IsNone())

	typed := GetAs[int](suite.cache, NamespaceStatistics, "user-1|a")
	suite.Equal(42, typed.Unwrap())
	suite.True(GetAs[string](suite.cache, NamespaceStatistics, "user-1|a").IsNone())

	stats := suite.cache.Stats()
	suite.Equal(int64(3), stats.Hits)
	suite.Equal(int64(1), stats.Misses)
	suite.Equal(1, stats.Size)
	suite.Equal(1, stats.Entries[NamespaceStatistics])
}

func (suite *CacheTestSuite) TestTTL() {
	suite.cache.Set(NamespacePnL, "k", "v")

	suite.advance(DefaultTTL)
	suite.True(suite.cache.Get(NamespacePnL, "k").IsSome())

	suite.advance(time.Second)
	suite.True(suite.cache.Get(NamespacePnL, "k").IsNone())
	suite.Equal(int64(1), suite.cache.Stats().Expired)
	suite.Equal(0, suite.cache.Stats().Size)
}

func (suite *CacheTestSuite) TestPurgeExpired() {
	suite.cache.Set(NamespacePnL, "old", 1)
	suite.advance(4 * time.Minute)
	suite.cache.Set(NamespacePnL, "new", 2)
	suite.advance(2 * time.Minute)

	suite.Equal(1, suite.cache.PurgeExpired())
	suite.True(suite.cache.Get(NamespacePnL, "new").IsSome())
}

func (suite *CacheTestSuite) TestEvictsOldestFifth() {
	for i := range 10 {
		suite.cache.Set(NamespaceChart, fmt.Sprintf("k%d", i), i)
		suite.advance(time.Second)
	}

	// The eleventh entry pushes the namespace over capacity: 11*20/100 = 2 evicted.
	suite.cache.Set(NamespaceChart, "k10", 10)

	suite.True(suite.cache.Get(NamespaceChart, "k0").IsNone())
	suite.True(suite.cache.Get(NamespaceChart, "k1").IsNone())
	suite.True(suite.cache.Get(NamespaceChart, "k2").IsSome())
	suite.True(suite.cache.Get(NamespaceChart, "k10").IsSome())
	suite.Equal(int64(2), suite.cache.Stats().Evictions)
	suite.Equal(9, suite.cache.Stats().Entries[NamespaceChart])
}

func (suite *CacheTestSuite) TestEvictsAtLeastOne() {
	opts := DefaultOptions()
	opts.Capacity = 1
	c := New(opts, nil)

	c.Set(NamespaceChart, "a", 1)
	c.Set(NamespaceChart, "b", 2)

	suite.True(c.Get(NamespaceChart, "a").IsNone())
	suite.True(c.Get(NamespaceChart, "b").IsSome())
}

func (suite *CacheTestSuite) TestInvalidateScope() {
	suite.cache.Set(NamespaceStatistics, Key("user-1", "x"), 1)
	suite.cache.Set(NamespaceChart, Key("user-1", "y"), 2)
	suite.cache.Set(NamespaceChart, Key("user-10", "y"), 3)
	suite.cache.Set(NamespaceTradesByDate, "user-1", 4)

	suite.Equal(3, suite.cache.Invalidate("user-1"))
	suite.True(suite.cache.Get(NamespaceChart, Key("user-10", "y")).IsSome())

	suite.cache.InvalidateAll()
	suite.Equal(0, suite.cache.Stats().Size)
}

func (suite *CacheTestSuite) TestDisabledAndDisposed() {
	opts := DefaultOptions()
	opts.Enabled = false
	disabled := New(opts, nil)

	disabled.Set(NamespaceStatistics, "k", 1)
	suite.True(disabled.Get(NamespaceStatistics, "k").IsNone())
	suite.False(disabled.Enabled())

	suite.cache.Set(NamespaceStatistics, "k", 1)
	suite.cache.Dispose()
	suite.True(suite.cache.Get(NamespaceStatistics, "k").IsNone())

	suite.cache.Set(NamespaceStatistics, "k", 1)
	suite.Equal(0, suite.cache.Stats().Size)
}

func (suite *CacheTestSuite) TestFingerprint() {
	trades := []types.Trade{
		{ID: "a", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), PnL: 10, Status: types.TradeStatusClosed},
		{ID: "b", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), PnL: -5, Status: types.TradeStatusClosed},
	}

	base := Fingerprint("user-1", trades, 10000)
	suite.Contains(base, "user-1|2|2024-01-01|2024-01-02|5|10000|")
	suite.Equal(base, Fingerprint("user-1", trades, 10000))

	changed := append([]types.Trade(nil), trades...)
	changed[1].PnL = -5.000001
	suite.NotEqual(base, Fingerprint("user-1", changed, 10000))

	suite.NotEqual(base, Fingerprint("user-1", trades, 20000))
	suite.Contains(Fingerprint("user-1", nil, 10000), "user-1|0|none|none|0|10000|")
}
