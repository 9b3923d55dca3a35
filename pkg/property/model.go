// Package property provides read access to listing summaries and the
// visibility rules that depend on them. The view tracking service does not
// own the listings table; it reads the columns it needs for gating,
// analytics authorization, and trending output.
package property

import "time"

// Status represents a listing's lifecycle state
type Status string

const (
	StatusPending   Status = "pending"
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
	StatusRented    Status = "rented"
)

// Hidden reports whether the listing is invisible to the general public.
// Pending listings are only visible to their owner.
func (s Status) Hidden() bool {
	return s == StatusPending
}

// Summary is the slice of a listing the tracking service needs: enough to
// gate view recording, authorize analytics, and render trending entries.
type Summary struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Status       Status    `json:"status"`
	Country      string    `json:"country,omitempty"`
	PropertyType string    `json:"propertyType,omitempty"`
	ListingType  string    `json:"listingType,omitempty"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
}
