package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

const testPropertyID = "7b8a1c9e-3f2d-4e5a-9b6c-1d2e3f4a5b6c"

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		previous int64
		want     float64
	}{
		{"growth", 15, 10, 50.00},
		{"decline", 5, 10, -50.00},
		{"flat", 10, 10, 0},
		{"from zero", 7, 0, 100},
		{"both zero", 0, 0, 0},
		{"to zero", 0, 10, -100},
		{"rounded", 1, 3, -66.67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := growthRate(tt.current, tt.previous); got != tt.want {
				t.Errorf("growthRate(%d, %d) = %v, want %v", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func expectReportQueries(mock sqlmock.Sqlmock, w Range, hourly bool) {
	mock.ExpectQuery(`SELECT\s+COUNT\(\*\),\s+COUNT\(DISTINCT user_id\)`).
		WithArgs(testPropertyID, w.Start, w.End).
		WillReturnRows(sqlmock.NewRows([]string{"total", "users", "sessions"}).AddRow(15, 4, 9))

	prev := w.Previous()
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs(testPropertyID, prev.Start, prev.End).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))

	mock.ExpectQuery(`GROUP BY DATE\(viewed_at\)`).
		WithArgs(testPropertyID, w.Start, w.End).
		WillReturnRows(sqlmock.NewRows([]string{"date", "views", "unique_views"}).
			AddRow(time.Date(2026, 5, 18, 0, 0, 0, 0, time.UTC), 6, 4).
			AddRow(time.Date(2026, 5, 19, 0, 0, 0, 0, time.UTC), 9, 5))

	mock.ExpectQuery(`referrer IS NOT NULL`).
		WithArgs(testPropertyID, w.Start, w.End, maxReferrers).
		WillReturnRows(sqlmock.NewRows([]string{"referrer", "views"}).
			AddRow("https://example.com/search", 8).
			AddRow("https://maps.example.com", 3))

	if hourly {
		mock.ExpectQuery(`EXTRACT\(HOUR FROM viewed_at\)`).
			WithArgs(testPropertyID, w.Start, w.End).
			WillReturnRows(sqlmock.NewRows([]string{"hour", "views"}).
				AddRow(9, 5).
				AddRow(18, 10))
	}
}

func TestAnalyzeWeek(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	window := Range{Start: now.AddDate(0, 0, -7), End: now}
	expectReportQueries(mock, window, true)

	svc := NewService(db, WithClock(func() time.Time { return now }))

	report, err := svc.Analyze(context.Background(), testPropertyID, Query{Period: PeriodWeek})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if report.TotalViews != 15 {
		t.Errorf("TotalViews = %d, want 15", report.TotalViews)
	}
	if report.UniqueUsers != 4 {
		t.Errorf("UniqueUsers = %d, want 4", report.UniqueUsers)
	}
	if report.UniqueSessions != 9 {
		t.Errorf("UniqueSessions = %d, want 9", report.UniqueSessions)
	}
	if report.ViewsGrowth != 50.00 {
		t.Errorf("ViewsGrowth = %v, want 50.00", report.ViewsGrowth)
	}
	if len(report.DailyViews) != 2 {
		t.Fatalf("DailyViews has %d rows, want 2", len(report.DailyViews))
	}
	if report.DailyViews[0].Date != "2026-05-18" {
		t.Errorf("DailyViews[0].Date = %q, want ascending order", report.DailyViews[0].Date)
	}
	if len(report.TopReferrers) != 2 || report.TopReferrers[0].Views != 8 {
		t.Errorf("TopReferrers = %+v, want count-descending rows", report.TopReferrers)
	}
	if len(report.HourlyDistribution) != 2 {
		t.Errorf("HourlyDistribution has %d rows, want 2 for a week period", len(report.HourlyDistribution))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAnalyzeMonthOmitsHourly(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	window := Range{Start: now.AddDate(0, 0, -30), End: now}
	expectReportQueries(mock, window, false)

	svc := NewService(db, WithClock(func() time.Time { return now }))

	report, err := svc.Analyze(context.Background(), testPropertyID, Query{Period: PeriodMonth})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.HourlyDistribution != nil {
		t.Errorf("HourlyDistribution = %+v, want omitted for month period", report.HourlyDistribution)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAnalyzeExplicitRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC)
	expectReportQueries(mock, Range{Start: start, End: end}, false)

	svc := NewService(db)

	report, err := svc.Analyze(context.Background(), testPropertyID,
		Query{Period: PeriodDay, Start: &start, End: &end})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !report.StartDate.Equal(start) || !report.EndDate.Equal(end) {
		t.Errorf("report window = [%v, %v), want the explicit range", report.StartDate, report.EndDate)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAnalyzeCachesReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	window := Range{Start: now.AddDate(0, 0, -7), End: now}
	// Queries expected exactly once; the second Analyze must hit the cache.
	expectReportQueries(mock, window, true)

	svc := NewService(db,
		WithClock(func() time.Time { return now }),
		WithReportCache(NewReportCache(client, time.Minute)))

	for i := 0; i < 2; i++ {
		report, err := svc.Analyze(context.Background(), testPropertyID, Query{Period: PeriodWeek})
		if err != nil {
			t.Fatalf("Analyze() call %d error = %v", i+1, err)
		}
		if report.TotalViews != 15 {
			t.Errorf("call %d TotalViews = %d, want 15", i+1, report.TotalViews)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
