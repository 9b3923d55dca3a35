package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/homegrid/viewtrack/pkg/contextkeys"
)

func TestResolveAuthenticated(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(contextkeys.WithActorID(r.Context(), "user-1"))
	r.Header.Set(SessionHeader, "sess-1")

	id := Resolve(r)
	if id == nil {
		t.Fatal("Resolve() returned nil")
	}
	if id.ActorID != "user-1" {
		t.Errorf("ActorID = %q, want %q", id.ActorID, "user-1")
	}
	if id.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", id.SessionID, "sess-1")
	}
	if !id.Authenticated() {
		t.Error("Authenticated() = false, want true")
	}
	if id.Key() != "user-1" {
		t.Errorf("Key() = %q, want actor ID to win over session", id.Key())
	}
}

func TestResolveSessionHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(SessionHeader, "sess-2")

	id := Resolve(r)
	if id == nil {
		t.Fatal("Resolve() returned nil")
	}
	if id.Authenticated() {
		t.Error("Authenticated() = true for anonymous session")
	}
	if id.Key() != "sess-2" {
		t.Errorf("Key() = %q, want %q", id.Key(), "sess-2")
	}
}

func TestResolveSessionCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-sess"})

	id := Resolve(r)
	if id == nil {
		t.Fatal("Resolve() returned nil")
	}
	if id.SessionID != "cookie-sess" {
		t.Errorf("SessionID = %q, want %q", id.SessionID, "cookie-sess")
	}
}

func TestResolveContextSessionWins(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(contextkeys.WithSessionID(r.Context(), "ctx-sess"))
	r.Header.Set(SessionHeader, "header-sess")
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-sess"})

	id := Resolve(r)
	if id == nil || id.SessionID != "ctx-sess" {
		t.Errorf("Resolve() = %+v, want context session to win", id)
	}
}

func TestResolveHeaderBeatsCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(SessionHeader, "header-sess")
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-sess"})

	id := Resolve(r)
	if id == nil || id.SessionID != "header-sess" {
		t.Errorf("Resolve() = %+v, want header session to win", id)
	}
}

func TestResolveNoIdentity(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := Resolve(r); id != nil {
		t.Errorf("Resolve() = %+v, want nil for untrackable request", id)
	}
}
