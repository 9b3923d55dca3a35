package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/homegrid/viewtrack/pkg/property"
)

// RankQuery selects and pages the trending ranking
type RankQuery struct {
	Period string

	// Optional equality filters on listing attributes
	Country      string
	PropertyType string
	ListingType  string

	Page     int
	PageSize int
}

// PropertyRanking is one trending entry: the listing summary plus its
// traffic for the period.
type PropertyRanking struct {
	Property        property.Summary `json:"property"`
	ViewCount       int64            `json:"viewCount"`
	UniqueViewCount int64            `json:"uniqueViewCount"`
}

// RankedPage is one page of the trending ranking
type RankedPage struct {
	Rankings []PropertyRanking `json:"rankings"`
	Period   string            `json:"period"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Total    int64             `json:"total"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Ranker computes trending listings ordered by unique visitors
type Ranker struct {
	db  *sql.DB
	now func() time.Time
}

// NewRanker creates a trending ranker
func NewRanker(db *sql.DB, opts ...RankerOption) *Ranker {
	r := &Ranker{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RankerOption configures a Ranker
type RankerOption func(*Ranker)

// WithRankerClock overrides the time source, for tests
func WithRankerClock(now func() time.Time) RankerOption {
	return func(r *Ranker) { r.now = now }
}

// Rank returns one page of listings ordered by unique visitors in the
// period, most viewed first. Hidden listings never appear, whatever the
// filters say. Listings with no traffic still rank (at the bottom): the
// event log is outer-joined so the eligible set is every visible listing,
// not just the active ones. Ties break on listing creation time, newest
// first, so paging stays stable across requests.
func (r *Ranker) Rank(ctx context.Context, q RankQuery) (*RankedPage, error) {
	period := q.Period
	if period == "" {
		period = PeriodWeek
	}
	window, err := NamedRange(period, r.now())
	if err != nil {
		return nil, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}

	// $1/$2 are the window bounds, filters follow
	where, filterArgs := rankFilters(q, 3)
	args := append([]interface{}{window.Start, window.End}, filterArgs...)

	query := fmt.Sprintf(`
		SELECT
			p.id, p.owner_id, p.status, p.country, p.property_type, p.listing_type,
			p.title, p.created_at,
			COUNT(e.id) AS view_count,
			COUNT(DISTINCT COALESCE(e.user_id, e.session_id)) AS unique_view_count
		FROM properties p
		LEFT JOIN property_view_events e
			ON e.property_id = p.id AND e.viewed_at >= $1 AND e.viewed_at < $2
		WHERE %s
		GROUP BY p.id, p.owner_id, p.status, p.country, p.property_type, p.listing_type,
			p.title, p.created_at
		ORDER BY unique_view_count DESC, p.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	offset := (q.Page - 1) * q.PageSize
	rows, err := r.db.QueryContext(ctx, query, append(args, q.PageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to rank properties: %w", err)
	}
	defer rows.Close()

	rankings := make([]PropertyRanking, 0, q.PageSize)
	for rows.Next() {
		var (
			pr           PropertyRanking
			country      sql.NullString
			propertyType sql.NullString
			listingType  sql.NullString
		)
		err := rows.Scan(
			&pr.Property.ID, &pr.Property.OwnerID, &pr.Property.Status,
			&country, &propertyType, &listingType,
			&pr.Property.Title, &pr.Property.CreatedAt,
			&pr.ViewCount, &pr.UniqueViewCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		pr.Property.Country = country.String
		pr.Property.PropertyType = propertyType.String
		pr.Property.ListingType = listingType.String
		rankings = append(rankings, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	total, err := r.countEligible(ctx, q)
	if err != nil {
		return nil, err
	}

	return &RankedPage{
		Rankings: rankings,
		Period:   period,
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    total,
	}, nil
}

func (r *Ranker) countEligible(ctx context.Context, q RankQuery) (int64, error) {
	where, args := rankFilters(q, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM properties p WHERE %s`, where)

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count eligible properties: %w", err)
	}
	return total, nil
}

// rankFilters builds the eligibility WHERE clause, numbering filter
// placeholders from firstArg up.
func rankFilters(q RankQuery, firstArg int) (string, []interface{}) {
	conditions := []string{fmt.Sprintf("p.status != '%s'", property.StatusPending)}
	args := make([]interface{}, 0, 3)

	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("p.%s = $%d", column, firstArg+len(args)-1))
	}
	addFilter("country", q.Country)
	addFilter("property_type", q.PropertyType)
	addFilter("listing_type", q.ListingType)

	return strings.Join(conditions, " AND "), args
}
