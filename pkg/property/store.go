package property

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/homegrid/viewtrack/pkg/observability"
)

// Lookup resolves listing summaries. Implementations return (nil, nil) when
// the listing does not exist; a non-nil error means the lookup itself failed.
type Lookup interface {
	GetSummary(ctx context.Context, propertyID string) (*Summary, error)
}

// Store reads listing summaries from Postgres with an in-process LRU cache
// in front. Every recorded view starts with a summary lookup, so the cache
// keeps the hot path off the database; the short TTL bounds how long a
// status change (e.g. pending -> available) can go unnoticed.
type Store struct {
	db      *sql.DB
	cache   *lru.LRU[string, *Summary]
	metrics *observability.Metrics
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithCache enables the in-process summary cache
func WithCache(size int, ttl time.Duration) StoreOption {
	return func(s *Store) {
		if size < 16 {
			size = 16
		}
		s.cache = lru.NewLRU[string, *Summary](size, nil, ttl)
	}
}

// WithMetrics attaches cache hit/miss counters
func WithMetrics(m *observability.Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates a listing summary store
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const cacheName = "property_summary"

// GetSummary returns the listing summary, or (nil, nil) if no listing with
// the given ID exists.
func (s *Store) GetSummary(ctx context.Context, propertyID string) (*Summary, error) {
	if s.cache != nil {
		if summary, ok := s.cache.Get(propertyID); ok {
			if s.metrics != nil {
				s.metrics.CacheHitsTotal.WithLabelValues(cacheName).Inc()
			}
			return summary, nil
		}
		if s.metrics != nil {
			s.metrics.CacheMissesTotal.WithLabelValues(cacheName).Inc()
		}
	}

	query := `
		SELECT id, owner_id, status, country, property_type, listing_type, title, created_at
		FROM properties
		WHERE id = $1
	`

	var (
		summary      Summary
		country      sql.NullString
		propertyType sql.NullString
		listingType  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, propertyID).Scan(
		&summary.ID, &summary.OwnerID, &summary.Status,
		&country, &propertyType, &listingType,
		&summary.Title, &summary.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load property %s: %w", propertyID, err)
	}

	summary.Country = country.String
	summary.PropertyType = propertyType.String
	summary.ListingType = listingType.String

	if s.cache != nil {
		s.cache.Add(propertyID, &summary)
	}

	return &summary, nil
}

// Invalidate drops a listing from the cache. Called when the service learns
// of a status change ahead of the TTL.
func (s *Store) Invalidate(propertyID string) {
	if s.cache != nil {
		s.cache.Remove(propertyID)
	}
}
