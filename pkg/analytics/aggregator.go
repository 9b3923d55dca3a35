package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Aggregator maintains the daily per-property rollup table. The rollups
// back the portfolio overview; the per-property reports always read the raw
// event log.
type Aggregator struct {
	db *sql.DB
}

// NewAggregator creates an aggregator
func NewAggregator(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// AggregateDaily recomputes the rollup for every property active on the
// given calendar day. Idempotent; re-running a day overwrites its rows.
func (a *Aggregator) AggregateDaily(ctx context.Context, date time.Time) error {
	query := `
		INSERT INTO property_view_stats_daily (property_id, date, views, unique_views)
		SELECT
			property_id,
			$1::date AS date,
			COUNT(*) AS views,
			COUNT(DISTINCT COALESCE(user_id, session_id)) AS unique_views
		FROM property_view_events
		WHERE viewed_at >= $1::date
			AND viewed_at < $1::date + INTERVAL '1 day'
		GROUP BY property_id
		ON CONFLICT (property_id, date) DO UPDATE SET
			views = EXCLUDED.views,
			unique_views = EXCLUDED.unique_views
	`
	if _, err := a.db.ExecContext(ctx, query, date); err != nil {
		return fmt.Errorf("daily rollup for %s failed: %w", date.Format("2006-01-02"), err)
	}
	return nil
}

// AggregateYesterday rolls up the previous UTC day, the normal nightly run
func (a *Aggregator) AggregateYesterday(ctx context.Context) error {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	return a.AggregateDaily(ctx, yesterday)
}

// Overview is a portfolio-level traffic summary for one owner
type Overview struct {
	OwnerID        string             `json:"ownerId"`
	TotalViews     int64              `json:"totalViews"`
	ViewsLast7Days int64              `json:"viewsLast7Days"`
	Properties     []PropertyOverview `json:"properties"`
}

// PropertyOverview is one listing's line in the portfolio overview
type PropertyOverview struct {
	PropertyID     string `json:"propertyId"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	TotalViews     int64  `json:"totalViews"`
	ViewsLast7Days int64  `json:"viewsLast7Days"`
}

// Overview summarizes traffic across all of an owner's listings from the
// rollup table. Today's still-unrolled events are not included; the nightly
// aggregation closes the gap.
func (a *Aggregator) Overview(ctx context.Context, ownerID string) (*Overview, error) {
	query := `
		SELECT
			p.id, p.title, p.status,
			COALESCE(SUM(s.views), 0) AS total_views,
			COALESCE(SUM(s.views) FILTER (WHERE s.date >= CURRENT_DATE - 7), 0) AS views_last_7
		FROM properties p
		LEFT JOIN property_view_stats_daily s ON s.property_id = p.id
		WHERE p.owner_id = $1
		GROUP BY p.id, p.title, p.status
		ORDER BY total_views DESC, p.created_at DESC
	`
	rows, err := a.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner overview: %w", err)
	}
	defer rows.Close()

	overview := &Overview{OwnerID: ownerID, Properties: make([]PropertyOverview, 0)}
	for rows.Next() {
		var p PropertyOverview
		if err := rows.Scan(&p.PropertyID, &p.Title, &p.Status, &p.TotalViews, &p.ViewsLast7Days); err != nil {
			return nil, fmt.Errorf("failed to scan overview row: %w", err)
		}
		overview.TotalViews += p.TotalViews
		overview.ViewsLast7Days += p.ViewsLast7Days
		overview.Properties = append(overview.Properties, p)
	}
	return overview, rows.Err()
}
