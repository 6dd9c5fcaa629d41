package mapbox

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/crisis-dashboard/internal/domain"
	"github.com/couchcryptid/crisis-dashboard/internal/observability"
)

// missTTL is how long an empty or failed lookup is remembered before the
// provider is asked again.
const missTTL = 10 * time.Minute

// CachedGeocoder wraps a Geocoder with in-memory LRU caches keyed by the
// case-folded query. Queries are free text typed by classifiers, so the same
// place recurs across snapshots. Found results are kept until evicted; empty
// results and errors are kept for missTTL.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache[domain.GeocodingResult]
	misses  *lruCache[miss]
	metrics *observability.Metrics
}

type miss struct {
	err     error
	expires time.Time
}

// NewCachedGeocoder creates a cache decorator around a geocoder. maxEntries
// bounds found results and misses separately.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache[domain.GeocodingResult](maxEntries),
		misses:  newLRUCache[miss](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if result, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	now := domain.Now()
	if m, ok := c.misses.get(key); ok && now.Before(m.expires) {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return domain.GeocodingResult{}, m.err
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ForwardGeocode(ctx, query)
	switch {
	case err != nil && ctx.Err() != nil:
		// The caller gave up; the provider said nothing about this place.
	case err != nil || !result.Found():
		c.misses.put(key, miss{err: err, expires: now.Add(missTTL)})
	default:
		c.cache.put(key, result)
	}
	return result, err
}

// lruCache holds the most recently used results up to a fixed size. The list
// front is the newest entry.
type lruCache[V any] struct {
	mu    sync.Mutex
	limit int
	order *list.List
	items map[string]*list.Element
}

type cacheItem[V any] struct {
	key   string
	value V
}

func newLRUCache[V any](limit int) *lruCache[V] {
	limit = max(limit, 1)
	return &lruCache[V]{
		limit: limit,
		order: list.New(),
		items: make(map[string]*list.Element, limit),
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem[V]).value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheItem[V]).value = value
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheItem[V]{key: key, value: value})
	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheItem[V]).key)
	}
}
