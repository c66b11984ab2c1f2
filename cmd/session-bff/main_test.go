package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	goSession "github.com/finchett/goSession"
	"github.com/finchett/goSession/middleware"
)

func TestHandlersTolerateIdentityWithoutUser(t *testing.T) {
	// A backend may answer {"authenticated":true} with no user object; the
	// handlers must render a fallback instead of panicking.
	identity := goSession.Identity{Authenticated: true}

	handlers := map[string]http.Handler{
		"app":   appHandler(),
		"admin": adminHandler(),
	}

	for name, handler := range handlers {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(middleware.ContextWithIdentity(req.Context(), identity))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s handler answered %d for a userless identity, want 200", name, rec.Code)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName(goSession.Identity{Authenticated: true}); got != "session" {
		t.Fatalf("displayName without user = %q, want session", got)
	}

	named := goSession.Identity{
		Authenticated: true,
		User:          &goSession.IdentityUser{ID: 7, Username: "alice", Role: "user"},
	}
	if got := displayName(named); got != "alice" {
		t.Fatalf("displayName = %q, want alice", got)
	}
}
