package summary

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bankledger/internal/cache"
	"bankledger/internal/core"
)

// Cached memoizes monthly overviews per account and month. Concurrent misses
// for the same key share one replay. Invalidate drops an account's entries;
// a replay that started before the invalidation is never stored.
type Cached struct {
	inner Reporter
	cache *cache.LRUCache[core.MonthOverview]
	group singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64
}

var _ Reporter = (*Cached)(nil)

func NewCached(inner Reporter, size int, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: cache.NewLRUCache[core.MonthOverview](size, ttl),
		gen:   make(map[string]uint64),
	}
}

func cacheKey(number string, ym core.YearMonth) string {
	return number + "|" + ym.String()
}

func (c *Cached) generation(number string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[number]
}

func (c *Cached) Monthly(ctx context.Context, number string, ym core.YearMonth) (core.MonthOverview, error) {
	key := cacheKey(number, ym)
	if ov, ok := c.cache.Get(key); ok {
		return clone(ov), nil
	}

	gen := c.generation(number)
	v, err, _ := c.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		return c.inner.Monthly(ctx, number, ym)
	})
	if err != nil {
		return core.MonthOverview{}, err
	}
	ov := v.(core.MonthOverview)

	c.mu.Lock()
	if c.gen[number] == gen {
		c.cache.Set(key, ov)
	}
	c.mu.Unlock()
	return clone(ov), nil
}

// Invalidate forgets every cached month of the account.
func (c *Cached) Invalidate(number string) {
	c.mu.Lock()
	c.gen[number]++
	c.mu.Unlock()
	c.cache.DeletePrefix(number + "|")
}

// Committed invalidates the accounts touched by newly logged records.
func (c *Cached) Committed(_ context.Context, recs []core.TransactionRecord) {
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if !seen[r.AccountNumber] {
			seen[r.AccountNumber] = true
			c.Invalidate(r.AccountNumber)
		}
	}
}

// CleanExpired lets a cache.Manager expire entries.
func (c *Cached) CleanExpired() int {
	return c.cache.CleanExpired()
}

func clone(ov core.MonthOverview) core.MonthOverview {
	ov.ByCategory = slices.Clone(ov.ByCategory)
	return ov
}
