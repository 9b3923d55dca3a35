// Package views implements view recording for property listings: explicit
// recording with a 24 hour per-visitor deduplication window, and a passive
// fire-and-forget path triggered by detail-page reads.
package views

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/homegrid/viewtrack/pkg/httputil"
)

// DedupWindow is how far back the recorder looks for a prior view by the
// same visitor before accepting a new one. Measured backward from the call
// time against each candidate event's viewed_at.
const DedupWindow = 24 * time.Hour

// maxMetadataLen bounds each stored metadata string, counted in characters
// to match the VARCHAR(500) columns
const maxMetadataLen = 500

// Metadata is the optional descriptive payload attached to a view event.
// None of it participates in identity or deduplication.
type Metadata struct {
	IPAddress string
	UserAgent string
	Referrer  string
}

// MetadataFromRequest extracts view metadata from an incoming request
func MetadataFromRequest(r *http.Request) Metadata {
	return Metadata{
		IPAddress: httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}

func (m Metadata) truncated() Metadata {
	return Metadata{
		IPAddress: truncate(m.IPAddress, maxMetadataLen),
		UserAgent: truncate(m.UserAgent, maxMetadataLen),
		Referrer:  truncate(m.Referrer, maxMetadataLen),
	}
}

// truncate cuts on rune boundaries so a multi-byte value at the limit never
// becomes invalid UTF-8.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// ViewEvent is a single recorded view. Events are immutable once written;
// the aggregation and ranking layers treat the table as an append-only log.
type ViewEvent struct {
	ID         string
	PropertyID string
	ActorID    string
	SessionID  string
	IPAddress  string
	UserAgent  string
	Referrer   string
	ViewedAt   time.Time
}

// Outcome classifies the result of a record attempt
type Outcome string

const (
	// OutcomeRecorded means a new event was persisted
	OutcomeRecorded Outcome = "recorded"
	// OutcomeDuplicate means the visitor already viewed the listing inside
	// the dedup window; no event was written and the call is idempotent
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeNotFound means the listing does not exist or the visitor may
	// not record against it. The two cases share one signal so that a
	// rejected caller cannot discover hidden listings.
	OutcomeNotFound Outcome = "not_found"
)

// Result is the outcome of RecordView. ViewID and ViewedAt are set only for
// OutcomeRecorded.
type Result struct {
	Outcome  Outcome
	ViewID   string
	ViewedAt time.Time
}
