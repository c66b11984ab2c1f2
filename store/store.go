package store

import (
	"context"
	"log/slog"
)

// Pair is the access/refresh token pair owned by the token store. It is
// written atomically as a pair: login replaces both halves, refresh replaces
// the access half while retaining the still-valid refresh half.
type Pair struct {
	Access  string
	Refresh string
}

// Backend is the raw durable key-value substrate under a [TokenStore].
// Get returns "" for an absent key.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	accessKeySuffix  = ":access_token"
	refreshKeySuffix = ":refresh_token"
)

// TokenStore reads and writes the token pair under two fixed keys derived
// from a namespace prefix. All backend failures are swallowed and logged;
// an unavailable backend behaves exactly like a logged-out session.
type TokenStore struct {
	backend    Backend
	accessKey  string
	refreshKey string
	log        *slog.Logger
}

// NewTokenStore creates a store over backend with keys namespaced by prefix.
func NewTokenStore(backend Backend, prefix string, log *slog.Logger) *TokenStore {
	if prefix == "" {
		prefix = "goSession"
	}
	if log == nil {
		log = slog.Default()
	}

	return &TokenStore{
		backend:    backend,
		accessKey:  prefix + accessKeySuffix,
		refreshKey: prefix + refreshKeySuffix,
		log:        log,
	}
}

// Store overwrites both slots with pair. Token well-formedness is not
// validated here; decoding failures are the caller's concern.
func (t *TokenStore) Store(ctx context.Context, pair Pair) {
	if err := t.backend.Set(ctx, t.accessKey, pair.Access); err != nil {
		t.log.Warn("token store write failed", "slot", "access", "err", err)
	}
	if err := t.backend.Set(ctx, t.refreshKey, pair.Refresh); err != nil {
		t.log.Warn("token store write failed", "slot", "refresh", "err", err)
	}
}

// AccessToken returns the access-slot token, or "" when absent or the
// backend fails.
func (t *TokenStore) AccessToken(ctx context.Context) string {
	return t.read(ctx, t.accessKey, "access")
}

// RefreshToken returns the refresh-slot token, or "" when absent or the
// backend fails.
func (t *TokenStore) RefreshToken(ctx context.Context) string {
	return t.read(ctx, t.refreshKey, "refresh")
}

// Clear removes both slots unconditionally. Safe to call when already empty.
func (t *TokenStore) Clear(ctx context.Context) {
	if err := t.backend.Delete(ctx, t.accessKey, t.refreshKey); err != nil {
		t.log.Warn("token store clear failed", "err", err)
	}
}

func (t *TokenStore) read(ctx context.Context, key, slot string) string {
	value, err := t.backend.Get(ctx, key)
	if err != nil {
		t.log.Warn("token store read failed", "slot", slot, "err", err)
		return ""
	}
	return value
}
