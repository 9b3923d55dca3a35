package views

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DedupCache answers "has this visitor viewed this listing inside the
// window?" without a database round trip. It is an accelerator only: a miss
// or an error falls through to the authoritative SQL check, and entries are
// written after a successful insert or a confirmed SQL duplicate.
type DedupCache struct {
	client *redis.Client
}

// NewDedupCache creates a Redis-backed dedup cache
func NewDedupCache(client *redis.Client) *DedupCache {
	return &DedupCache{client: client}
}

func dedupKey(propertyID, visitorKey string) string {
	return fmt.Sprintf("viewtrack:dedup:%s:%s", propertyID, visitorKey)
}

// Seen reports whether a view by the visitor is already cached for the
// listing. An error means the cache could not answer, not "no".
func (c *DedupCache) Seen(ctx context.Context, propertyID, visitorKey string) (bool, error) {
	n, err := c.client.Exists(ctx, dedupKey(propertyID, visitorKey)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup cache lookup failed: %w", err)
	}
	return n > 0, nil
}

// Mark records that the visitor viewed the listing, expiring with the dedup
// window so the cache can never outlive the SQL truth.
func (c *DedupCache) Mark(ctx context.Context, propertyID, visitorKey string, window time.Duration) error {
	if err := c.client.Set(ctx, dedupKey(propertyID, visitorKey), "1", window).Err(); err != nil {
		return fmt.Errorf("dedup cache mark failed: %w", err)
	}
	return nil
}
