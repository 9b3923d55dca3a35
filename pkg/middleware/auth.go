// Package middleware provides the HTTP middleware chain: gateway identity
// propagation, request logging and metrics, and passive view tracking.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/homegrid/viewtrack/pkg/contextkeys"
	"github.com/homegrid/viewtrack/pkg/identity"
)

// Headers set by the API gateway after it verifies the caller's session.
// The service trusts them because only the gateway can reach it.
const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
)

// RequestIDHeader carries the gateway's request correlation ID
const RequestIDHeader = "X-Request-ID"

// GatewayAuth lifts the gateway-verified identity headers into the request
// context, along with the anonymous session identifier from the session
// header or cookie. Requests without any of them stay anonymous; endpoints
// that need an authenticated actor enforce that themselves.
func GatewayAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if userID := r.Header.Get(UserIDHeader); userID != "" {
			ctx = contextkeys.WithActorID(ctx, userID)
			if role := r.Header.Get(UserRoleHeader); role != "" {
				ctx = contextkeys.WithActorRole(ctx, role)
			}
		}

		sessionID := r.Header.Get(identity.SessionHeader)
		if sessionID == "" {
			if cookie, err := r.Cookie(identity.SessionCookie); err == nil {
				sessionID = cookie.Value
			}
		}
		if sessionID != "" {
			ctx = contextkeys.WithSessionID(ctx, sessionID)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = contextkeys.WithRequestID(ctx, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActor rejects requests that carry no authenticated actor. Used by
// the analytics endpoints, which are never anonymous.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contextkeys.GetActorID(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
