package pipeline

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/crisis-dashboard/internal/domain"
)

// MemoryCache is an in-process SnapshotCache used when no Redis is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	records []domain.RawRecord
	stored  time.Time
	ttl     time.Duration
}

// NewMemoryCache creates a cache whose snapshot expires after ttl.
// A non-positive ttl keeps the snapshot until it is replaced.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl}
}

func (c *MemoryCache) Load(_ context.Context) ([]domain.RawRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.records == nil {
		return nil, ErrNoSnapshot
	}
	if c.ttl > 0 && domain.Now().Sub(c.stored) >= c.ttl {
		return nil, ErrNoSnapshot
	}
	return slices.Clone(c.records), nil
}

func (c *MemoryCache) Store(_ context.Context, records []domain.RawRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append(make([]domain.RawRecord, 0, len(records)), records...)
	c.stored = domain.Now()
	return nil
}
