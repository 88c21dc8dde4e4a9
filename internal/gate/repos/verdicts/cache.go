// Package verdicts caches blocking verdicts. Verdicts are time-dependent
// (schedules and timers flip at minute granularity), so entries are keyed
// by origin plus the evaluation minute and the whole cache is purged when
// rules change.
package verdicts

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/sitegate/internal/gate/domain"
)

// Cache is the surface the engine consumes.
type Cache interface {
	Get(key string) (domain.Verdict, bool)
	Put(key string, v domain.Verdict)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// Key builds a cache key scoped to the evaluation minute.
func Key(origin string, now time.Time) string {
	return origin + "|" + now.UTC().Format("2006-01-02T15:04")
}

// verdictCache is an LRU-backed Cache tracking hit/miss/eviction counters.
type verdictCache struct {
	lru       *lru.Cache[string, domain.Verdict]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op Cache used when size <= 0.
type disabledCache struct{}

// New creates a Cache with the given capacity. If size <= 0, a disabled
// no-op cache is returned that always misses and tracks no metrics.
func New(size int) (Cache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var vc verdictCache
	cache, err := lru.NewWithEvict(size, func(_ string, _ domain.Verdict) {
		atomic.AddUint64(&vc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	vc.lru = cache
	return &vc, nil
}

func (c *verdictCache) Get(key string) (domain.Verdict, bool) {
	if v, ok := c.lru.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		return v, true
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.Verdict{}, false
}

func (c *verdictCache) Put(key string, v domain.Verdict) {
	c.lru.Add(key, v)
}

func (c *verdictCache) Len() int { return c.lru.Len() }

// Purge clears all entries. Evictions are counted via the eviction callback.
func (c *verdictCache) Purge() { c.lru.Purge() }

func (c *verdictCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (d *disabledCache) Get(string) (domain.Verdict, bool) { return domain.Verdict{}, false }

func (d *disabledCache) Put(string, domain.Verdict) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ Cache = (*verdictCache)(nil)
var _ Cache = (*disabledCache)(nil)
