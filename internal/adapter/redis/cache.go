// Package redis keeps the last-fetched record snapshot in Redis so that
// several dashboard instances share one fetch.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/couchcryptid/crisis-dashboard/internal/domain"
	"github.com/couchcryptid/crisis-dashboard/internal/pipeline"
)

// DefaultKey is the Redis key holding the snapshot.
const DefaultKey = "crisis-dashboard:snapshot"

// SnapshotCache implements pipeline.SnapshotCache as one JSON value with a TTL.
type SnapshotCache struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

// NewSnapshotCache creates a cache on client. A non-positive ttl stores the
// snapshot without expiry.
func NewSnapshotCache(client *goredis.Client, key string, ttl time.Duration) *SnapshotCache {
	if key == "" {
		key = DefaultKey
	}
	return &SnapshotCache{client: client, key: key, ttl: ttl}
}

// Connect parses url, creates a client and verifies it with a ping.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (c *SnapshotCache) Load(ctx context.Context) ([]domain.RawRecord, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, pipeline.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", c.key, err)
	}

	var records []domain.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if records == nil {
		records = []domain.RawRecord{}
	}
	return records, nil
}

func (c *SnapshotCache) Store(ctx context.Context, records []domain.RawRecord) error {
	if records == nil {
		records = []domain.RawRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}
