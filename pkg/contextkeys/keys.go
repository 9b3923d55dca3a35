// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorIDKey contains the authenticated user's ID string (UUID)
	// Set by: middleware.GatewayAuth after the platform gateway has resolved the session
	// Used by: identity.Resolve, analytics access checks, audit fields in logs
	// Type: string
	ActorIDKey Key = "actor_id"

	// ActorRoleKey contains the authenticated user's role ("admin" or "user")
	// Set by: middleware.GatewayAuth
	// Used by: analytics authorization (owner-or-admin check)
	// Type: string
	ActorRoleKey Key = "actor_role"

	// SessionIDKey contains the anonymous browsing session identifier
	// Set by: middleware.GatewayAuth from the session header or cookie
	// Used by: identity.Resolve as the fallback visitor identity
	// Type: string
	SessionIDKey Key = "session_id"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: HTTP middleware
	// Used by: Logger, operational log correlation
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// Helper functions for type-safe context operations

// WithActorID adds the authenticated actor ID to the context
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

// WithActorRole adds the actor role to the context
func WithActorRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ActorRoleKey, role)
}

// WithSessionID adds the anonymous session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// WithRequestID adds the request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetActorID retrieves the authenticated actor ID from context
func GetActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(ActorIDKey).(string); ok {
		return actorID
	}
	return ""
}

// GetActorRole retrieves the actor role from context
func GetActorRole(ctx context.Context) string {
	if role, ok := ctx.Value(ActorRoleKey).(string); ok {
		return role
	}
	return ""
}

// GetSessionID retrieves the anonymous session ID from context
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
