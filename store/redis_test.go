package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisTokenStore(t *testing.T) *TokenStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewTokenStore(NewRedis(rdb), "gs", nil)
}

func TestRedisTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := newRedisTokenStore(t)

	ts.Store(ctx, Pair{Access: "access-1", Refresh: "refresh-1"})

	if got := ts.AccessToken(ctx); got != "access-1" {
		t.Fatalf("AccessToken = %q, want access-1", got)
	}
	if got := ts.RefreshToken(ctx); got != "refresh-1" {
		t.Fatalf("RefreshToken = %q, want refresh-1", got)
	}
}

func TestRedisTokenStoreMissingKeysReadEmpty(t *testing.T) {
	ctx := context.Background()
	ts := newRedisTokenStore(t)

	if got := ts.AccessToken(ctx); got != "" {
		t.Fatalf("AccessToken on empty db = %q, want empty", got)
	}

	ts.Store(ctx, Pair{Access: "a", Refresh: "r"})
	ts.Clear(ctx)
	ts.Clear(ctx)

	if got := ts.RefreshToken(ctx); got != "" {
		t.Fatalf("RefreshToken after clear = %q, want empty", got)
	}
}
