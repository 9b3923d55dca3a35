// Package identity resolves who (or which browser) is looking at a listing.
// Authenticated actors are identified by the gateway-verified user ID;
// anonymous visitors by a session ID carried in a header or cookie. The
// resolved identity drives view deduplication and the unique-viewer counts.
package identity

import (
	"net/http"

	"github.com/homegrid/viewtrack/pkg/contextkeys"
)

// SessionHeader carries the anonymous session ID set by the web client
const SessionHeader = "X-Session-ID"

// SessionCookie is the fallback session cookie name
const SessionCookie = "viewtrack_session"

// Identity is a resolved viewer. Exactly one field may be empty: an
// authenticated actor may also carry a session, but the actor ID always wins
// for deduplication.
type Identity struct {
	ActorID   string
	SessionID string
}

// Key returns the deduplication key: the actor ID when authenticated,
// otherwise the session ID. Two views collapse into one only when their keys
// match, so an anonymous session and the account it later signs into count
// separately.
func (id *Identity) Key() string {
	if id.ActorID != "" {
		return id.ActorID
	}
	return id.SessionID
}

// Authenticated reports whether the viewer is a signed-in actor
func (id *Identity) Authenticated() bool {
	return id.ActorID != ""
}

// Resolve extracts the viewer identity from a request. The actor ID comes
// from the request context (set by gateway auth). Session precedence:
//  1. session ID from the request context (set by gateway auth)
//  2. X-Session-ID header
//  3. session cookie
//
// Returns nil when no identity can be established; such requests are not
// trackable and callers must reject or skip them.
func Resolve(r *http.Request) *Identity {
	id := &Identity{
		ActorID:   contextkeys.GetActorID(r.Context()),
		SessionID: contextkeys.GetSessionID(r.Context()),
	}

	if id.SessionID == "" {
		id.SessionID = r.Header.Get(SessionHeader)
	}
	if id.SessionID == "" {
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			id.SessionID = cookie.Value
		}
	}

	if id.ActorID == "" && id.SessionID == "" {
		return nil
	}
	return id
}
