package views

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/homegrid/viewtrack/pkg/async"
	"github.com/homegrid/viewtrack/pkg/identity"
	"github.com/homegrid/viewtrack/pkg/property"
)

func passiveRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/properties/"+testPropertyID, nil)
	r.Header.Set(identity.SessionHeader, "sess-7")
	r.Header.Set("User-Agent", "agent/1.0")
	return r
}

func drainPool(t *testing.T, pool *async.WorkerPool) {
	t.Helper()
	if err := pool.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("pool shutdown: %v", err)
	}
}

func TestTrackPassivelyRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT viewed_at FROM property_view_events`).
		WithArgs(testPropertyID, "sess-7", sqlmock.AnyArg()).
		WillReturnRows(noPriorView())
	mock.ExpectExec("INSERT INTO property_view_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	pool := async.NewWorkerPool(context.Background(), 1, "passive views", time.Second)
	rec := NewRecorder(db, availableListing(), testLogger(), WithPassivePool(pool))

	rec.TrackPassively(passiveRequest(), testPropertyID)
	drainPool(t, pool)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTrackPassivelySkipsNonAvailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	for _, status := range []property.Status{property.StatusPending, property.StatusSold, property.StatusRented} {
		lookup := &stubLookup{summaries: map[string]*property.Summary{
			testPropertyID: {ID: testPropertyID, OwnerID: testOwnerID, Status: status},
		}}
		pool := async.NewWorkerPool(context.Background(), 1, "passive views", time.Second)
		rec := NewRecorder(db, lookup, testLogger(), WithPassivePool(pool))

		rec.TrackPassively(passiveRequest(), testPropertyID)
		drainPool(t, pool)
	}

	// No SQL expectations were registered: nothing may touch the store.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected SQL traffic: %v", err)
	}
}

func TestTrackPassivelySkipsMalformedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	pool := async.NewWorkerPool(context.Background(), 1, "passive views", time.Second)
	rec := NewRecorder(db, availableListing(), testLogger(), WithPassivePool(pool))

	rec.TrackPassively(passiveRequest(), "not-a-uuid")
	drainPool(t, pool)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected SQL traffic: %v", err)
	}
}

func TestTrackPassivelySkipsAnonymousWithoutSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	pool := async.NewWorkerPool(context.Background(), 1, "passive views", time.Second)
	rec := NewRecorder(db, availableListing(), testLogger(), WithPassivePool(pool))

	// No actor in context, no session header or cookie: untrackable.
	r := httptest.NewRequest(http.MethodGet, "/api/v1/properties/"+testPropertyID, nil)
	rec.TrackPassively(r, testPropertyID)
	drainPool(t, pool)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected SQL traffic: %v", err)
	}
}

func TestTrackPassivelySwallowsStoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT viewed_at FROM property_view_events`).
		WillReturnRows(noPriorView())
	mock.ExpectExec("INSERT INTO property_view_events").
		WillReturnError(context.DeadlineExceeded)

	pool := async.NewWorkerPool(context.Background(), 1, "passive views", time.Second)
	rec := NewRecorder(db, availableListing(), testLogger(), WithPassivePool(pool))

	// Must not panic or propagate; the failure lands in the log only.
	rec.TrackPassively(passiveRequest(), testPropertyID)
	drainPool(t, pool)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
