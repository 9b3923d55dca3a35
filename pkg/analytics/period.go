// Package analytics computes per-property view reports, trending rankings,
// and portfolio overviews from the view event log.
package analytics

import (
	"fmt"
	"time"
)

// Named reporting periods. Each maps to a fixed look-back window ending now.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

var periodDurations = map[string]time.Duration{
	PeriodDay:   24 * time.Hour,
	PeriodWeek:  7 * 24 * time.Hour,
	PeriodMonth: 30 * 24 * time.Hour,
	PeriodYear:  365 * 24 * time.Hour,
}

// Range is a half-open [Start, End) reporting window
type Range struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Previous returns the immediately preceding window of identical length,
// used for growth comparison.
func (r Range) Previous() Range {
	d := r.Duration()
	return Range{Start: r.Start.Add(-d), End: r.Start}
}

// Query selects the reporting window for Analyze. An explicit range takes
// precedence over the named period.
type Query struct {
	Period string
	Start  *time.Time
	End    *time.Time
}

// resolve produces the concrete window. It also reports whether the hourly
// distribution applies: only the named day and week buckets carry it, never
// an explicit range.
func (q Query) resolve(now time.Time) (Range, bool, error) {
	if q.Start != nil && q.End != nil {
		if !q.End.After(*q.Start) {
			return Range{}, false, fmt.Errorf("range end must be after start")
		}
		return Range{Start: q.Start.UTC(), End: q.End.UTC()}, false, nil
	}

	period := q.Period
	if period == "" {
		period = PeriodMonth
	}
	d, ok := periodDurations[period]
	if !ok {
		return Range{}, false, fmt.Errorf("unknown period %q", period)
	}

	now = now.UTC()
	hourly := period == PeriodDay || period == PeriodWeek
	return Range{Start: now.Add(-d), End: now}, hourly, nil
}

// ResolveWindow resolves the query to its concrete window without touching
// the store. Handlers use it to reject bad periods or ranges up front.
func ResolveWindow(q Query, now time.Time) (Range, error) {
	w, _, err := q.resolve(now)
	return w, err
}

// NamedRange resolves a named period to its window ending now. Used by the
// trending ranker, which has no explicit-range form.
func NamedRange(period string, now time.Time) (Range, error) {
	d, ok := periodDurations[period]
	if !ok {
		return Range{}, fmt.Errorf("unknown period %q", period)
	}
	now = now.UTC()
	return Range{Start: now.Add(-d), End: now}, nil
}
