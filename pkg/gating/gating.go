// Package gating decides which views may be recorded and which listings may
// appear in derived output. The rules deliberately differ per surface: the
// explicit record endpoint tolerates every public status, the passive path
// requires a strictly available listing, and trending only excludes hidden
// listings. Keep them as separate predicates rather than folding them into
// one "visible" check.
package gating

import (
	"github.com/homegrid/viewtrack/pkg/identity"
	"github.com/homegrid/viewtrack/pkg/property"
)

// CanRecord reports whether a view of the listing may be recorded for the
// given viewer. Hidden (pending) listings accept views only from their
// owner; sold and rented listings still record views, since they remain
// publicly visible.
func CanRecord(p *property.Summary, viewer *identity.Identity) bool {
	if p == nil || viewer == nil {
		return false
	}
	if p.Status.Hidden() {
		return viewer.ActorID != "" && viewer.ActorID == p.OwnerID
	}
	return true
}

// PassivelyTrackable reports whether a detail-page render should emit a view
// event. The passive path is stricter than explicit recording: only listings
// actively on the market accrue automatic views.
func PassivelyTrackable(p *property.Summary) bool {
	return p != nil && p.Status == property.StatusAvailable
}

// TrendingEligible reports whether the listing may appear in trending
// rankings. Sold and rented listings stay eligible; only hidden listings are
// excluded.
func TrendingEligible(p *property.Summary) bool {
	return p != nil && !p.Status.Hidden()
}
