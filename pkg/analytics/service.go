package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/homegrid/viewtrack/pkg/observability"
)

// Report is a per-property analytics summary over one window
type Report struct {
	PropertyID string    `json:"propertyId"`
	Period     string    `json:"period,omitempty"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`

	TotalViews     int64   `json:"totalViews"`
	UniqueUsers    int64   `json:"uniqueUsers"`
	UniqueSessions int64   `json:"uniqueSessions"`
	ViewsGrowth    float64 `json:"viewsGrowth"`

	DailyViews         []DailyCount    `json:"dailyViews"`
	TopReferrers       []ReferrerCount `json:"topReferrers"`
	HourlyDistribution []HourlyCount   `json:"hourlyDistribution,omitempty"`
}

// DailyCount is one calendar day's traffic
type DailyCount struct {
	Date        string `json:"date"`
	Views       int64  `json:"views"`
	UniqueViews int64  `json:"uniqueViews"`
}

// ReferrerCount is one referrer's view total
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Views    int64  `json:"views"`
}

// HourlyCount is one hour-of-day bucket aggregated across the window
type HourlyCount struct {
	Hour  int   `json:"hour"`
	Views int64 `json:"views"`
}

// maxReferrers caps the referrer breakdown
const maxReferrers = 50

// Service computes analytics reports from the event log. Reads go against
// the replica pool when one is configured; slightly stale recent events are
// acceptable for reporting.
type Service struct {
	db      *sql.DB
	cache   *ReportCache
	metrics *observability.Metrics
	now     func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithReportCache enables short-lived Redis caching of computed reports
func WithReportCache(cache *ReportCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithMetrics attaches cache counters
func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates an analytics service
func NewService(db *sql.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze computes the report for one property over the queried window.
// Authorization is the caller's concern; the service only aggregates.
func (s *Service) Analyze(ctx context.Context, propertyID string, q Query) (*Report, error) {
	window, hourly, err := q.resolve(s.now())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, propertyID, window); ok {
			if s.metrics != nil {
				s.metrics.CacheHitsTotal.WithLabelValues("analytics_report").Inc()
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.CacheMissesTotal.WithLabelValues("analytics_report").Inc()
		}
	}

	report := &Report{
		PropertyID: propertyID,
		Period:     q.Period,
		StartDate:  window.Start,
		EndDate:    window.End,
	}

	if err := s.loadTotals(ctx, propertyID, window, report); err != nil {
		return nil, err
	}

	previousViews, err := s.countViews(ctx, propertyID, window.Previous())
	if err != nil {
		return nil, err
	}
	report.ViewsGrowth = growthRate(report.TotalViews, previousViews)

	if report.DailyViews, err = s.loadDailyViews(ctx, propertyID, window); err != nil {
		return nil, err
	}
	if report.TopReferrers, err = s.loadTopReferrers(ctx, propertyID, window); err != nil {
		return nil, err
	}
	if hourly {
		if report.HourlyDistribution, err = s.loadHourlyDistribution(ctx, propertyID, window); err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, propertyID, window, report)
	}

	return report, nil
}

func (s *Service) loadTotals(ctx context.Context, propertyID string, w Range, report *Report) error {
	query := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT user_id),
			COUNT(DISTINCT COALESCE(user_id, session_id))
		FROM property_view_events
		WHERE property_id = $1 AND viewed_at >= $2 AND viewed_at < $3
	`
	err := s.db.QueryRowContext(ctx, query, propertyID, w.Start, w.End).
		Scan(&report.TotalViews, &report.UniqueUsers, &report.UniqueSessions)
	if err != nil {
		return fmt.Errorf("failed to load view totals: %w", err)
	}
	return nil
}

func (s *Service) countViews(ctx context.Context, propertyID string, w Range) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM property_view_events
		WHERE property_id = $1 AND viewed_at >= $2 AND viewed_at < $3
	`
	var count int64
	if err := s.db.QueryRowContext(ctx, query, propertyID, w.Start, w.End).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count previous period views: %w", err)
	}
	return count, nil
}

func (s *Service) loadDailyViews(ctx context.Context, propertyID string, w Range) ([]DailyCount, error) {
	query := `
		SELECT
			DATE(viewed_at),
			COUNT(*),
			COUNT(DISTINCT COALESCE(user_id, session_id))
		FROM property_view_events
		WHERE property_id = $1 AND viewed_at >= $2 AND viewed_at < $3
		GROUP BY DATE(viewed_at)
		ORDER BY DATE(viewed_at) ASC
	`
	rows, err := s.db.QueryContext(ctx, query, propertyID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily views: %w", err)
	}
	defer rows.Close()

	daily := make([]DailyCount, 0)
	for rows.Next() {
		var (
			day time.Time
			d   DailyCount
		)
		if err := rows.Scan(&day, &d.Views, &d.UniqueViews); err != nil {
			return nil, fmt.Errorf("failed to scan daily views: %w", err)
		}
		d.Date = day.Format("2006-01-02")
		daily = append(daily, d)
	}
	return daily, rows.Err()
}

func (s *Service) loadTopReferrers(ctx context.Context, propertyID string, w Range) ([]ReferrerCount, error) {
	query := `
		SELECT referrer, COUNT(*)
		FROM property_view_events
		WHERE property_id = $1 AND viewed_at >= $2 AND viewed_at < $3
			AND referrer IS NOT NULL
		GROUP BY referrer
		ORDER BY COUNT(*) DESC
		LIMIT $4
	`
	rows, err := s.db.QueryContext(ctx, query, propertyID, w.Start, w.End, maxReferrers)
	if err != nil {
		return nil, fmt.Errorf("failed to load top referrers: %w", err)
	}
	defer rows.Close()

	referrers := make([]ReferrerCount, 0)
	for rows.Next() {
		var r ReferrerCount
		if err := rows.Scan(&r.Referrer, &r.Views); err != nil {
			return nil, fmt.Errorf("failed to scan referrers: %w", err)
		}
		referrers = append(referrers, r)
	}
	return referrers, rows.Err()
}

func (s *Service) loadHourlyDistribution(ctx context.Context, propertyID string, w Range) ([]HourlyCount, error) {
	query := `
		SELECT EXTRACT(HOUR FROM viewed_at)::int, COUNT(*)
		FROM property_view_events
		WHERE property_id = $1 AND viewed_at >= $2 AND viewed_at < $3
		GROUP BY EXTRACT(HOUR FROM viewed_at)
		ORDER BY EXTRACT(HOUR FROM viewed_at) ASC
	`
	rows, err := s.db.QueryContext(ctx, query, propertyID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load hourly distribution: %w", err)
	}
	defer rows.Close()

	hourly := make([]HourlyCount, 0)
	for rows.Next() {
		var h HourlyCount
		if err := rows.Scan(&h.Hour, &h.Views); err != nil {
			return nil, fmt.Errorf("failed to scan hourly distribution: %w", err)
		}
		hourly = append(hourly, h)
	}
	return hourly, rows.Err()
}

// growthRate returns the percentage change against the previous period,
// rounded to two decimals. A previous period with no traffic reads as 100%
// growth when the current one has any, and 0% when both are empty.
func growthRate(current, previous int64) float64 {
	switch {
	case previous > 0:
		return math.Round(float64(current-previous)/float64(previous)*100*100) / 100
	case current > 0:
		return 100
	default:
		return 0
	}
}
