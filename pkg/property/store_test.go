package property

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func summaryRows(id, ownerID string, status Status, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "status", "country", "property_type", "listing_type", "title", "created_at",
	}).AddRow(id, ownerID, string(status), "PT", "apartment", "sale", "T2 in Lisbon", createdAt)
}

func TestGetSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, owner_id, status").
		WithArgs("prop-1").
		WillReturnRows(summaryRows("prop-1", "owner-1", StatusAvailable, createdAt))

	store := NewStore(db)
	summary, err := store.GetSummary(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if summary == nil {
		t.Fatal("GetSummary() returned nil summary")
	}
	if summary.OwnerID != "owner-1" {
		t.Errorf("OwnerID = %q, want %q", summary.OwnerID, "owner-1")
	}
	if summary.Status != StatusAvailable {
		t.Errorf("Status = %q, want %q", summary.Status, StatusAvailable)
	}
	if summary.Country != "PT" {
		t.Errorf("Country = %q, want %q", summary.Country, "PT")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetSummaryNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, owner_id, status").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "status", "country", "property_type", "listing_type", "title", "created_at",
		}))

	store := NewStore(db)
	summary, err := store.GetSummary(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if summary != nil {
		t.Errorf("GetSummary() = %+v, want nil for missing listing", summary)
	}
}

func TestGetSummaryCached(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	// Single DB round trip expected; the second read must come from cache.
	mock.ExpectQuery("SELECT id, owner_id, status").
		WithArgs("prop-1").
		WillReturnRows(summaryRows("prop-1", "owner-1", StatusAvailable, createdAt))

	store := NewStore(db, WithCache(64, time.Minute))

	for i := 0; i < 2; i++ {
		summary, err := store.GetSummary(context.Background(), "prop-1")
		if err != nil {
			t.Fatalf("GetSummary() call %d error = %v", i+1, err)
		}
		if summary == nil || summary.ID != "prop-1" {
			t.Fatalf("GetSummary() call %d = %+v", i+1, summary)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, owner_id, status").
		WithArgs("prop-1").
		WillReturnRows(summaryRows("prop-1", "owner-1", StatusPending, createdAt))
	mock.ExpectQuery("SELECT id, owner_id, status").
		WithArgs("prop-1").
		WillReturnRows(summaryRows("prop-1", "owner-1", StatusAvailable, createdAt))

	store := NewStore(db, WithCache(64, time.Minute))

	first, err := store.GetSummary(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if first.Status != StatusPending {
		t.Errorf("Status = %q, want pending", first.Status)
	}

	store.Invalidate("prop-1")

	second, err := store.GetSummary(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("GetSummary() after invalidate error = %v", err)
	}
	if second.Status != StatusAvailable {
		t.Errorf("Status after invalidate = %q, want available", second.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
