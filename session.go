package goSession

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/finchett/goSession/claims"
	"github.com/finchett/goSession/store"
)

// Session coordinates one logical user session: it is the only writer of
// the token pair, the only initiator of refresh calls, and the shared cache
// for the identity query. Safe for concurrent use after Build.
type Session struct {
	config  Config
	id      string
	tokens  *store.TokenStore
	api     *apiClient
	log     *slog.Logger
	metrics *Metrics
	audit   *auditDispatcher

	// flight serializes the refresh protocol and dedups concurrent status
	// queries: all callers that arrive during one in-flight call share its
	// outcome.
	flight singleflight.Group

	mu         sync.Mutex
	identity   Identity
	identityAt time.Time
	now        func() time.Time
}

// ID is the unique identifier of this session instance, used to correlate
// audit events.
func (s *Session) ID() string {
	return s.id
}

// Metrics exposes the session's counters for exporters and guards.
func (s *Session) Metrics() *Metrics {
	return s.metrics
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (s *Session) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (s *Session) AuditDropped() uint64 {
	return s.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. The session must not be
// used afterwards.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.audit.Close()
}

/*
====================================
TOKEN LIFECYCLE
====================================
*/

// ValidAccessToken returns an access token that is not within the expiry
// buffer of its deadline. The common path is a storage read with zero
// network calls; only an expired-by-buffer token triggers a refresh. The
// second return is false when no valid token could be produced — the caller
// must treat that as "not authenticated", never as a retryable error.
func (s *Session) ValidAccessToken(ctx context.Context) (string, bool) {
	access := s.tokens.AccessToken(ctx)
	if access != "" && !claims.AccessExpired(access, s.now(), s.config.Tokens.AccessExpiryBuffer) {
		s.metrics.Inc(MetricAccessFastPath)
		return access, true
	}
	return s.RefreshAccessToken(ctx)
}

// RefreshAccessToken performs the refresh protocol with at most one
// in-flight network call system-wide. Callers that arrive while a refresh
// is running receive that refresh's outcome; after it settles, the next
// caller starts a fresh attempt (no stale shared result).
func (s *Session) RefreshAccessToken(ctx context.Context) (string, bool) {
	// The refresh outcome is shared by every waiter, so it must not ride on
	// the triggering caller's cancelation: a dropped request mid-refresh
	// would otherwise clear the tokens for everyone. The HTTP client's
	// timeout still bounds the detached call.
	refreshCtx := context.WithoutCancel(ctx)

	token, _, _ := s.flight.Do("refresh", func() (any, error) {
		return s.doRefresh(refreshCtx), nil
	})

	access := token.(string)
	return access, access != ""
}

// doRefresh runs exactly once per in-flight refresh. Every failure path
// clears both stored tokens before resolving — the session fails closed and
// never leaves a half-valid pair standing.
func (s *Session) doRefresh(ctx context.Context) string {
	refresh := s.tokens.RefreshToken(ctx)
	if refresh == "" || claims.RefreshExpired(refresh, s.now()) {
		// Nothing the backend could do with a token it would itself
		// reject; skip the network call entirely.
		s.metrics.Inc(MetricRefreshShortCircuit)
		s.clearTokens(ctx, "refresh token absent or expired")
		return ""
	}

	access, err := s.api.refresh(ctx, refresh)
	if err != nil {
		s.metrics.Inc(MetricRefreshFailure)
		s.log.Warn("token refresh failed", "err", err)
		s.audit.Emit(ctx, AuditEvent{
			EventType: AuditRefreshFailed,
			SessionID: s.id,
			Error:     err.Error(),
		})
		s.clearTokens(ctx, "refresh rejected")
		return ""
	}

	s.tokens.Store(ctx, TokenPair{Access: access, Refresh: refresh})
	s.metrics.Inc(MetricRefreshSuccess)
	return access
}

func (s *Session) clearTokens(ctx context.Context, reason string) {
	s.tokens.Clear(ctx)
	s.audit.Emit(ctx, AuditEvent{
		EventType: AuditTokensCleared,
		SessionID: s.id,
		Success:   true,
		Metadata:  map[string]string{"reason": reason},
	})
}

// CurrentUserHint decodes the stored access token into an unverified
// identity hint, or nil when absent, undecodable, or not an access token.
// Hints are never authoritative; use Identity for access decisions.
func (s *Session) CurrentUserHint(ctx context.Context) *claims.Hint {
	return claims.CurrentUser(s.tokens.AccessToken(ctx))
}

/*
====================================
IDENTITY QUERY
====================================
*/

// Identity answers "who is this session" from a short-lived cache shared by
// all consumers. Without a valid access token it resolves unauthenticated
// with zero status calls. A 401 from the backend is expected data, not an
// error; any other failure returns an error wrapping ErrStatusUnavailable.
func (s *Session) Identity(ctx context.Context) (Identity, error) {
	s.mu.Lock()
	if !s.identityAt.IsZero() && s.now().Sub(s.identityAt) < s.config.Identity.FreshnessWindow {
		identity := s.identity
		s.mu.Unlock()
		s.metrics.Inc(MetricIdentityCacheHit)
		return identity, nil
	}
	s.mu.Unlock()

	s.metrics.Inc(MetricIdentityCacheMiss)

	result, err, _ := s.flight.Do("identity", func() (any, error) {
		return s.fetchIdentity(ctx)
	})
	if err != nil {
		return Identity{}, err
	}
	return result.(Identity), nil
}

func (s *Session) fetchIdentity(ctx context.Context) (Identity, error) {
	access, ok := s.ValidAccessToken(ctx)
	if !ok {
		identity := Identity{Authenticated: false}
		s.cacheIdentity(identity)
		return identity, nil
	}

	identity, err := s.api.status(ctx, access)
	if err != nil {
		s.log.Warn("identity query failed", "err", err)
		return Identity{}, err
	}

	s.cacheIdentity(identity)
	return identity, nil
}

func (s *Session) cacheIdentity(identity Identity) {
	s.mu.Lock()
	s.identity = identity
	s.identityAt = s.now()
	s.mu.Unlock()
}

// InvalidateIdentity drops the cached identity so the next query hits the
// backend. Login and Logout call it internally; call it directly after any
// out-of-band change to the session.
func (s *Session) InvalidateIdentity() {
	s.mu.Lock()
	s.identity = Identity{}
	s.identityAt = time.Time{}
	s.mu.Unlock()
}

/*
====================================
LOGIN / LOGOUT
====================================
*/

// Login authenticates with the backend, stores the returned token pair
// atomically, and invalidates the identity cache so the new identity is
// visible immediately. A credential rejection is ErrInvalidCredentials.
func (s *Session) Login(ctx context.Context, username, password string) (*IdentityUser, error) {
	result, err := s.api.login(ctx, username, password)
	if err != nil {
		s.metrics.Inc(MetricLoginFailure)
		s.audit.Emit(ctx, AuditEvent{
			EventType: AuditLoginFailed,
			SessionID: s.id,
			Username:  username,
			Error:     err.Error(),
		})
		return nil, err
	}

	s.tokens.Store(ctx, TokenPair{
		Access:  result.Tokens.AccessToken,
		Refresh: result.Tokens.RefreshToken,
	})
	s.InvalidateIdentity()

	s.metrics.Inc(MetricLoginSuccess)
	s.audit.Emit(ctx, AuditEvent{
		EventType: AuditLogin,
		SessionID: s.id,
		Username:  username,
		Success:   true,
	})

	return result.User, nil
}

// Logout clears the local token pair and identity cache unconditionally,
// then tells the backend best-effort. The returned error reports only the
// server-side call; the local session is logged out either way.
func (s *Session) Logout(ctx context.Context) error {
	access := s.tokens.AccessToken(ctx)

	s.tokens.Clear(ctx)
	s.InvalidateIdentity()
	s.metrics.Inc(MetricLogout)

	var err error
	if access != "" {
		err = s.api.logout(ctx, access)
		if err != nil {
			s.log.Warn("server-side logout failed", "err", err)
		}
	}

	s.audit.Emit(ctx, AuditEvent{
		EventType: AuditLogout,
		SessionID: s.id,
		Success:   err == nil,
	})
	return err
}
