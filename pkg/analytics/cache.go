package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// defaultReportTTL keeps cached reports fresh enough for dashboards while
// absorbing repeated loads of the same page.
const defaultReportTTL = time.Minute

// ReportCache stores computed analytics reports in Redis for a short TTL.
// Best effort: any cache failure falls back to recomputation.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache creates a report cache. A non-positive ttl uses the default.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	return &ReportCache{client: client, ttl: ttl}
}

func reportKey(propertyID string, w Range) string {
	return fmt.Sprintf("viewtrack:report:%s:%d:%d", propertyID, w.Start.Unix(), w.End.Unix())
}

// Get returns the cached report for the property and window, if present
func (c *ReportCache) Get(ctx context.Context, propertyID string, w Range) (*Report, bool) {
	data, err := c.client.Get(ctx, reportKey(propertyID, w)).Bytes()
	if err != nil {
		return nil, false
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false
	}
	return &report, true
}

// Set caches the report. Failures are ignored; the next reader recomputes.
func (c *ReportCache) Set(ctx context.Context, propertyID string, w Range, report *Report) {
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	c.client.Set(ctx, reportKey(propertyID, w), data, c.ttl)
}
