package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/finchett/goSession/claims"
)

func signToken(t *testing.T, tokenType string, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims.Hint{
		UserID:    7,
		Username:  "alice",
		Role:      claims.RoleUser,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return token
}

// fakeBackend is an httptest auth backend with per-endpoint call counters.
type fakeBackend struct {
	srv *httptest.Server

	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
	statusCalls  atomic.Int64
	logoutCalls  atomic.Int64

	mu            sync.Mutex
	loginOK       bool
	loginPair     TokenPair
	refreshStatus int
	refreshDelay  time.Duration
	newAccess     string
	statusCode    int
	identity      Identity
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{
		refreshStatus: http.StatusOK,
		statusCode:    http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		fb.loginCalls.Add(1)
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if !fb.loginOK {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"tokens": map[string]string{
				"accessToken":  fb.loginPair.Access,
				"refreshToken": fb.loginPair.Refresh,
			},
			"user": map[string]any{"id": 7, "username": "alice", "role": "user"},
		})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		fb.refreshCalls.Add(1)
		fb.mu.Lock()
		status, delay, access := fb.refreshStatus, fb.refreshDelay, fb.newAccess
		fb.mu.Unlock()
		time.Sleep(delay)
		if status != http.StatusOK {
			http.Error(w, "refresh rejected", status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": access})
	})
	mux.HandleFunc("GET /auth/status", func(w http.ResponseWriter, r *http.Request) {
		fb.statusCalls.Add(1)
		fb.mu.Lock()
		status, identity := fb.statusCode, fb.identity
		fb.mu.Unlock()
		if status != http.StatusOK {
			http.Error(w, "status error", status)
			return
		}
		_ = json.NewEncoder(w).Encode(identity)
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		fb.logoutCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func newTestSession(t *testing.T, fb *fakeBackend, opts ...func(*Builder)) *Session {
	t.Helper()

	builder := New().
		WithBaseURL(fb.srv.URL).
		WithHTTPClient(fb.srv.Client()).
		WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(builder)
	}

	session, err := builder.Build()
	if err != nil {
		t.Fatalf("build session: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}

func seedTokens(t *testing.T, s *Session, pair TokenPair) {
	t.Helper()
	s.tokens.Store(context.Background(), pair)
}

func TestValidAccessTokenFastPath(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)

	access := signToken(t, claims.TypeAccess, time.Now().Add(time.Hour))
	seedTokens(t, s, TokenPair{Access: access, Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour))})

	got, ok := s.ValidAccessToken(context.Background())
	if !ok || got != access {
		t.Fatalf("ValidAccessToken = (%q, %v), want stored token", got, ok)
	}
	if calls := fb.refreshCalls.Load(); calls != 0 {
		t.Fatalf("fast path made %d refresh calls, want 0", calls)
	}
}

func TestRefreshSingleFlight(t *testing.T) {
	fb := newFakeBackend(t)
	newAccess := signToken(t, claims.TypeAccess, time.Now().Add(time.Hour))
	fb.mu.Lock()
	fb.newAccess = newAccess
	fb.refreshDelay = 50 * time.Millisecond
	fb.mu.Unlock()

	s := newTestSession(t, fb)
	seedTokens(t, s, TokenPair{
		// Inside the 5-minute buffer: expired-by-buffer, not literally expired.
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(time.Minute)),
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour)),
	})

	const n = 16
	results := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			token, _ := s.ValidAccessToken(context.Background())
			results[i] = token
		}(i)
	}
	wg.Wait()

	if calls := fb.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", calls)
	}
	for i, token := range results {
		if token != newAccess {
			t.Fatalf("caller %d observed %q, want the refreshed token", i, token)
		}
	}
	if got := s.tokens.AccessToken(context.Background()); got != newAccess {
		t.Fatalf("stored access token = %q, want refreshed token", got)
	}
}

func TestRefreshSurvivesCallerCancellation(t *testing.T) {
	fb := newFakeBackend(t)
	newAccess := signToken(t, claims.TypeAccess, time.Now().Add(time.Hour))
	fb.mu.Lock()
	fb.newAccess = newAccess
	fb.mu.Unlock()

	s := newTestSession(t, fb)
	liveRefresh := signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour))
	seedTokens(t, s, TokenPair{
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(time.Minute)),
		Refresh: liveRefresh,
	})

	// The triggering caller's request is already gone. The shared refresh
	// must still complete instead of failing closed for every waiter.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	token, ok := s.RefreshAccessToken(ctx)
	if !ok || token != newAccess {
		t.Fatalf("RefreshAccessToken under canceled caller = (%q, %v), want refreshed token", token, ok)
	}
	if got := s.tokens.RefreshToken(context.Background()); got != liveRefresh {
		t.Fatalf("refresh token = %q, want retained", got)
	}
	if calls := fb.refreshCalls.Load(); calls != 1 {
		t.Fatalf("refresh calls = %d, want 1", calls)
	}
}

func TestRefreshShortCircuitsExpiredRefreshToken(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)
	seedTokens(t, s, TokenPair{
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(-time.Hour)),
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(-time.Minute)),
	})

	token, ok := s.RefreshAccessToken(context.Background())
	if ok || token != "" {
		t.Fatalf("RefreshAccessToken = (%q, %v), want empty", token, ok)
	}
	if calls := fb.refreshCalls.Load(); calls != 0 {
		t.Fatalf("expired refresh token caused %d network calls, want 0", calls)
	}

	ctx := context.Background()
	if s.tokens.AccessToken(ctx) != "" || s.tokens.RefreshToken(ctx) != "" {
		t.Fatal("both stored tokens must be cleared after an expired refresh token")
	}
}

func TestRefreshRejectionClearsTokensAndReturnsToIdle(t *testing.T) {
	fb := newFakeBackend(t)
	fb.mu.Lock()
	fb.refreshStatus = http.StatusUnauthorized
	fb.mu.Unlock()

	s := newTestSession(t, fb)
	ctx := context.Background()
	expiredAccess := signToken(t, claims.TypeAccess, time.Now().Add(-time.Hour))
	liveRefresh := signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour))
	seedTokens(t, s, TokenPair{Access: expiredAccess, Refresh: liveRefresh})

	if token, ok := s.RefreshAccessToken(ctx); ok || token != "" {
		t.Fatalf("rejected refresh resolved (%q, %v), want empty", token, ok)
	}
	if s.tokens.AccessToken(ctx) != "" || s.tokens.RefreshToken(ctx) != "" {
		t.Fatal("both stored tokens must be cleared after a rejected refresh")
	}

	// The coordinator must be back in Idle: a re-seeded pair triggers a new
	// network attempt instead of reusing the settled result.
	seedTokens(t, s, TokenPair{Access: expiredAccess, Refresh: liveRefresh})
	if _, ok := s.RefreshAccessToken(ctx); ok {
		t.Fatal("second rejected refresh must also fail")
	}
	if calls := fb.refreshCalls.Load(); calls != 2 {
		t.Fatalf("expected a second refresh attempt, got %d total calls", calls)
	}
}

func TestIdentityWithoutTokensSkipsStatusEndpoint(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)

	identity, err := s.Identity(context.Background())
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if identity.Authenticated {
		t.Fatal("empty session must resolve unauthenticated")
	}
	if calls := fb.statusCalls.Load(); calls != 0 {
		t.Fatalf("status endpoint hit %d times with no token, want 0", calls)
	}
}

func TestIdentityFreshnessWindow(t *testing.T) {
	fb := newFakeBackend(t)
	fb.mu.Lock()
	fb.identity = Identity{Authenticated: true, User: &IdentityUser{ID: 7, Username: "alice", Role: "user"}}
	fb.mu.Unlock()

	s := newTestSession(t, fb, func(b *Builder) {
		cfg := DefaultConfig()
		cfg.API.BaseURL = fb.srv.URL
		cfg.Identity.FreshnessWindow = time.Hour
		b.WithConfig(cfg)
	})
	seedTokens(t, s, TokenPair{
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(time.Hour)),
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour)),
	})

	for i := 0; i < 3; i++ {
		identity, err := s.Identity(context.Background())
		if err != nil {
			t.Fatalf("Identity call %d: %v", i, err)
		}
		if !identity.Authenticated || identity.User == nil || identity.User.Username != "alice" {
			t.Fatalf("Identity call %d = %+v", i, identity)
		}
	}
	if calls := fb.statusCalls.Load(); calls != 1 {
		t.Fatalf("three queries inside the window made %d status calls, want 1", calls)
	}

	s.InvalidateIdentity()
	if _, err := s.Identity(context.Background()); err != nil {
		t.Fatalf("Identity after invalidation: %v", err)
	}
	if calls := fb.statusCalls.Load(); calls != 2 {
		t.Fatalf("invalidation did not force a fresh fetch: %d status calls", calls)
	}
}

func TestIdentityUnauthorizedIsDataNotError(t *testing.T) {
	fb := newFakeBackend(t)
	fb.mu.Lock()
	fb.statusCode = http.StatusUnauthorized
	fb.mu.Unlock()

	s := newTestSession(t, fb)
	seedTokens(t, s, TokenPair{
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(time.Hour)),
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour)),
	})

	identity, err := s.Identity(context.Background())
	if err != nil {
		t.Fatalf("a 401 must not surface as an error, got %v", err)
	}
	if identity.Authenticated {
		t.Fatal("a 401 must resolve unauthenticated")
	}
}

func TestIdentityServerErrorSurfaces(t *testing.T) {
	fb := newFakeBackend(t)
	fb.mu.Lock()
	fb.statusCode = http.StatusInternalServerError
	fb.mu.Unlock()

	s := newTestSession(t, fb)
	seedTokens(t, s, TokenPair{
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(time.Hour)),
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour)),
	})

	if _, err := s.Identity(context.Background()); !errors.Is(err, ErrStatusUnavailable) {
		t.Fatalf("got %v, want ErrStatusUnavailable", err)
	}
}

func TestLoginStoresPairAndRefreshesIdentity(t *testing.T) {
	fb := newFakeBackend(t)
	pair := TokenPair{
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(time.Hour)),
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour)),
	}
	fb.mu.Lock()
	fb.loginOK = true
	fb.loginPair = pair
	fb.identity = Identity{Authenticated: true, User: &IdentityUser{ID: 7, Username: "alice", Role: "user"}}
	fb.mu.Unlock()

	sink := NewChannelSink(8)
	s := newTestSession(t, fb, func(b *Builder) { b.WithAuditSink(sink) })

	user, err := s.Login(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("Login user = %+v", user)
	}

	ctx := context.Background()
	if s.tokens.AccessToken(ctx) != pair.Access || s.tokens.RefreshToken(ctx) != pair.Refresh {
		t.Fatal("login must store the returned pair atomically")
	}

	identity, err := s.Identity(ctx)
	if err != nil || !identity.Authenticated {
		t.Fatalf("Identity after login = (%+v, %v)", identity, err)
	}

	select {
	case event := <-sink.Events():
		if event.EventType != AuditLogin || !event.Success || event.Username != "alice" {
			t.Fatalf("unexpected audit event: %+v", event)
		}
		if event.EventID == "" || event.SessionID != s.ID() {
			t.Fatalf("audit event missing correlation fields: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no audit event dispatched for login")
	}
}

func TestLoginRejectedLeavesNoTokens(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)

	if _, err := s.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}

	ctx := context.Background()
	if s.tokens.AccessToken(ctx) != "" || s.tokens.RefreshToken(ctx) != "" {
		t.Fatal("a rejected login must not store tokens")
	}
}

func TestLogoutClearsLocallyDespiteServerError(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)
	fb.srv.Close() // backend gone: logout call will fail in transport

	seedTokens(t, s, TokenPair{
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(time.Hour)),
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour)),
	})

	if err := s.Logout(context.Background()); err == nil {
		t.Fatal("expected the best-effort server call to report its failure")
	}

	ctx := context.Background()
	if s.tokens.AccessToken(ctx) != "" || s.tokens.RefreshToken(ctx) != "" {
		t.Fatal("local tokens must be cleared regardless of the server call")
	}

	identity, err := s.Identity(ctx)
	if err != nil || identity.Authenticated {
		t.Fatalf("Identity after logout = (%+v, %v), want unauthenticated", identity, err)
	}
}

func TestCurrentUserHintIsUnverifiedOnly(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)
	ctx := context.Background()

	if hint := s.CurrentUserHint(ctx); hint != nil {
		t.Fatalf("empty session produced a hint: %+v", hint)
	}

	seedTokens(t, s, TokenPair{
		Access:  signToken(t, claims.TypeRefresh, time.Now().Add(time.Hour)), // wrong slot
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(time.Hour)),
	})
	if hint := s.CurrentUserHint(ctx); hint != nil {
		t.Fatalf("slot mismatch produced a hint: %+v", hint)
	}

	seedTokens(t, s, TokenPair{
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(time.Hour)),
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(time.Hour)),
	})
	hint := s.CurrentUserHint(ctx)
	if hint == nil || hint.Username != "alice" {
		t.Fatalf("valid access token produced no hint: %+v", hint)
	}
}

func TestBuilderValidation(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("Build without a base URL must fail")
	}

	builder := New().WithBaseURL("http://localhost:9")
	if _, err := builder.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := builder.Build(); err == nil {
		t.Fatal("a Builder must be single-use")
	}

	if _, err := New().WithBaseURL("not a url").Build(); err == nil {
		t.Fatal("Build with a relative base URL must fail")
	}
}

func TestMetricsSnapshotCountsLifecycle(t *testing.T) {
	fb := newFakeBackend(t)
	s := newTestSession(t, fb)
	seedTokens(t, s, TokenPair{
		Access:  signToken(t, claims.TypeAccess, time.Now().Add(time.Hour)),
		Refresh: signToken(t, claims.TypeRefresh, time.Now().Add(24*time.Hour)),
	})

	if _, ok := s.ValidAccessToken(context.Background()); !ok {
		t.Fatal("expected fast-path token")
	}

	snap := s.MetricsSnapshot()
	if snap.Counters[MetricAccessFastPath] != 1 {
		t.Fatalf("fast path counter = %d, want 1", snap.Counters[MetricAccessFastPath])
	}
}
