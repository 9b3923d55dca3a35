package views

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/homegrid/viewtrack/pkg/async"
	"github.com/homegrid/viewtrack/pkg/gating"
	"github.com/homegrid/viewtrack/pkg/identity"
	"github.com/homegrid/viewtrack/pkg/observability"
	"github.com/homegrid/viewtrack/pkg/property"
)

// Recorder writes view events. It owns the dedup check and the gating
// decision for both the explicit and the passive recording paths.
type Recorder struct {
	db         *sql.DB
	properties property.Lookup
	dedup      *DedupCache
	pool       *async.WorkerPool
	logger     *observability.Logger
	metrics    *observability.Metrics

	passiveTimeout time.Duration
	now            func() time.Time
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithDedupCache puts a Redis cache in front of the SQL duplicate check
func WithDedupCache(cache *DedupCache) RecorderOption {
	return func(r *Recorder) { r.dedup = cache }
}

// WithPassivePool routes passive persists through a bounded worker pool
// instead of one goroutine per view
func WithPassivePool(pool *async.WorkerPool) RecorderOption {
	return func(r *Recorder) { r.pool = pool }
}

// WithMetrics attaches recording counters
func WithMetrics(m *observability.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithPassiveTimeout bounds each detached passive persist
func WithPassiveTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.passiveTimeout = d }
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a view recorder
func NewRecorder(db *sql.DB, properties property.Lookup, logger *observability.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		db:             db,
		properties:     properties,
		logger:         logger,
		passiveTimeout: 10 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sources labelling recorded views in metrics
const (
	sourceAPI     = "api"
	sourcePassive = "passive"
)

// RecordView records a view of the listing by the given visitor.
//
// Expected conditions come back as outcomes, not errors: a missing listing
// and a gating rejection both yield OutcomeNotFound, and a repeat view
// inside the dedup window yields OutcomeDuplicate. Only malformed input
// (ValidationError) and infrastructure failures are returned as errors.
func (r *Recorder) RecordView(ctx context.Context, propertyID string, viewer *identity.Identity, meta Metadata) (*Result, error) {
	result, err := r.record(ctx, propertyID, viewer, meta, sourceAPI)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Recorder) record(ctx context.Context, propertyID string, viewer *identity.Identity, meta Metadata, source string) (*Result, error) {
	if _, err := uuid.Parse(propertyID); err != nil {
		r.countRejected("validation")
		return nil, validationErr("propertyId", "must be a valid UUID")
	}
	if viewer == nil || viewer.Key() == "" {
		r.countRejected("validation")
		return nil, validationErr("identity", "an actor or session identity is required")
	}

	prop, err := r.properties.GetSummary(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("property lookup failed: %w", err)
	}
	// A gating rejection is reported exactly like a missing listing so the
	// response never reveals that a hidden listing exists.
	if prop == nil || !gating.CanRecord(prop, viewer) {
		r.countRejected("not_found")
		return &Result{Outcome: OutcomeNotFound}, nil
	}

	now := r.now().UTC()
	dup, err := r.isDuplicate(ctx, propertyID, viewer, now)
	if err != nil {
		return nil, err
	}
	if dup {
		if r.metrics != nil {
			r.metrics.ViewsDuplicateTotal.WithLabelValues(source).Inc()
		}
		return &Result{Outcome: OutcomeDuplicate}, nil
	}

	event := ViewEvent{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		ActorID:    viewer.ActorID,
		SessionID:  viewer.SessionID,
		ViewedAt:   now,
	}
	m := meta.truncated()
	event.IPAddress, event.UserAgent, event.Referrer = m.IPAddress, m.UserAgent, m.Referrer

	if err := r.insert(ctx, event); err != nil {
		return nil, err
	}

	if r.dedup != nil {
		if err := r.dedup.Mark(ctx, propertyID, viewer.Key(), DedupWindow); err != nil {
			r.logger.WithError(err).WithField("property_id", propertyID).
				Warn("failed to mark dedup cache")
		}
	}
	if r.metrics != nil {
		r.metrics.ViewsRecordedTotal.WithLabelValues(source).Inc()
	}

	return &Result{Outcome: OutcomeRecorded, ViewID: event.ID, ViewedAt: event.ViewedAt}, nil
}

// isDuplicate checks for a prior view by the same visitor inside the window.
// The cache is consulted first; the SQL check stays authoritative. The
// check-then-insert pair is not atomic, so two concurrent first views can
// both pass and both insert. Dedup is best effort, not exactly once.
func (r *Recorder) isDuplicate(ctx context.Context, propertyID string, viewer *identity.Identity, now time.Time) (bool, error) {
	if r.dedup != nil {
		seen, err := r.dedup.Seen(ctx, propertyID, viewer.Key())
		if err != nil {
			r.logger.WithError(err).Warn("dedup cache unavailable, falling back to store")
		} else if seen {
			return true, nil
		}
	}

	var query string
	if viewer.Authenticated() {
		query = `
			SELECT viewed_at FROM property_view_events
			WHERE property_id = $1 AND user_id = $2 AND viewed_at >= $3
			ORDER BY viewed_at DESC
			LIMIT 1
		`
	} else {
		query = `
			SELECT viewed_at FROM property_view_events
			WHERE property_id = $1 AND session_id = $2 AND viewed_at >= $3
			ORDER BY viewed_at DESC
			LIMIT 1
		`
	}

	start := time.Now()
	var lastViewed time.Time
	err := r.db.QueryRowContext(ctx, query, propertyID, viewer.Key(), now.Add(-DedupWindow)).Scan(&lastViewed)
	if err == sql.ErrNoRows {
		r.observeStore("dedup_check", nil, start)
		return false, nil
	}
	r.observeStore("dedup_check", err, start)
	if err != nil {
		return false, fmt.Errorf("duplicate check failed: %w", err)
	}

	// Backfill with the window remaining from the original event, never a
	// fresh full window: the cache entry must expire exactly when the SQL
	// check starts accepting a new view again.
	if r.dedup != nil {
		if remaining := lastViewed.Add(DedupWindow).Sub(now); remaining > 0 {
			if err := r.dedup.Mark(ctx, propertyID, viewer.Key(), remaining); err != nil {
				r.logger.WithError(err).Warn("failed to backfill dedup cache")
			}
		}
	}
	return true, nil
}

func (r *Recorder) insert(ctx context.Context, event ViewEvent) error {
	query := `
		INSERT INTO property_view_events (
			id, property_id, user_id, session_id,
			ip_address, user_agent, referrer, viewed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.PropertyID,
		nullString(event.ActorID), nullString(event.SessionID),
		nullString(event.IPAddress), nullString(event.UserAgent),
		nullString(event.Referrer), event.ViewedAt,
	)
	r.observeStore("insert_view", err, start)
	if err != nil {
		return fmt.Errorf("failed to persist view event: %w", err)
	}
	return nil
}

// TrackPassively records a view as a side effect of a listing detail read.
//
// It never blocks or fails the triggering request: identity and metadata are
// captured synchronously from the request, everything else runs detached
// with its own timeout, and every failure is logged and swallowed. Only
// strictly available listings accrue passive views.
func (r *Recorder) TrackPassively(req *http.Request, propertyID string) {
	if _, err := uuid.Parse(propertyID); err != nil {
		return
	}
	viewer := identity.Resolve(req)
	if viewer == nil {
		return
	}
	meta := MetadataFromRequest(req)

	task := func(ctx context.Context) error {
		prop, err := r.properties.GetSummary(ctx, propertyID)
		if err != nil {
			return fmt.Errorf("property lookup: %w", err)
		}
		if !gating.PassivelyTrackable(prop) {
			return nil
		}
		if _, err := r.record(ctx, propertyID, viewer, meta, sourcePassive); err != nil {
			return err
		}
		return nil
	}

	logged := func(ctx context.Context) error {
		if err := task(ctx); err != nil {
			if r.metrics != nil {
				r.metrics.PassiveTrackFailures.Inc()
			}
			r.logger.WithError(err).WithField("property_id", propertyID).
				Error("passive view tracking failed")
		}
		return nil
	}

	if r.pool != nil {
		if !r.pool.TrySubmit(logged) {
			if r.metrics != nil {
				r.metrics.PassiveTrackDropped.Inc()
			}
			r.logger.WithField("property_id", propertyID).
				Warn("passive tracking queue full, dropping view")
		}
		return
	}

	// The background context detaches the persist from the request lifecycle:
	// the response has already been written and its cancellation must not
	// abort the write.
	async.SafeGo(context.Background(), r.passiveTimeout, "passive view persist", logged)
}

func (r *Recorder) countRejected(reason string) {
	if r.metrics != nil {
		r.metrics.ViewsRejectedTotal.WithLabelValues(reason).Inc()
	}
}

func (r *Recorder) observeStore(operation string, err error, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveStoreOperation(operation, err, time.Since(start))
	}
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
