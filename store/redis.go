package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis is a [Backend] over a go-redis client, for sessions that must
// survive process restarts or be shared by replicas of one logical client.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client. The store does not own the client's
// lifecycle; the caller closes it.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}
