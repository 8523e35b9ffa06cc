package persist

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vango-dev/stackkit/internal/errors"
	"github.com/vango-dev/stackkit/pkg/overlay"
)

// RedisClient is the part of redis.Cmdable RedisStore uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps one JSON value per session. Values expire ttl after the
// last save; a zero ttl keeps them forever.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client RedisClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(session string) string {
	return r.prefix + session
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, session string) ([]overlay.Entry, error) {
	data, err := r.client.Get(ctx, r.key(session)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("P001").WithDetailf("redis key %s", r.key(session)).Wrap(err)
	}
	return decode(data)
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, session string, entries []overlay.Entry) error {
	data, err := encode(entries)
	if err != nil {
		return errors.New("P002").Wrap(err)
	}
	if err := r.client.Set(ctx, r.key(session), data, r.ttl).Err(); err != nil {
		return errors.New("P002").WithDetailf("redis key %s", r.key(session)).Wrap(err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, session string) error {
	if err := r.client.Del(ctx, r.key(session)).Err(); err != nil {
		return errors.New("P002").WithDetailf("delete redis key %s", r.key(session)).Wrap(err)
	}
	return nil
}
