package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL bounds how stale any cached value may get before callers fall
// back to the source of truth.
const DefaultTTL = time.Hour

// Store is a plain TTL key-value accessor. Any entry may vanish at any time;
// every read path must have a correct non-cached fallback.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Flush(ctx context.Context)
}

type memoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore returns a process-local store with per-entry TTL.
func NewMemoryStore() Store {
	return &memoryStore{
		cache: gocache.New(DefaultTTL, 10*time.Minute),
	}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

func (s *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) {
	s.cache.Set(key, value, ttl)
}

func (s *memoryStore) Delete(_ context.Context, key string) {
	s.cache.Delete(key)
}

func (s *memoryStore) Flush(_ context.Context) {
	s.cache.Flush()
}

type redisStore struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisStore wraps a redis client in the Store contract. Redis errors are
// logged and treated as cache misses.
func NewRedisStore(client *redis.Client, log zerolog.Logger) Store {
	return &redisStore{client: client, log: log}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return "", false
	}
	return val, true
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (s *redisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

func (s *redisStore) Flush(ctx context.Context) {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		s.log.Warn().Err(err).Msg("cache flush failed")
	}
}
