package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore caches Data API session tokens between requests.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

type memoryToken struct {
	token   string
	expires time.Time
}

type MemoryTokenStore struct {
	mu    sync.Mutex
	items map[string]memoryToken
	now   func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{items: map[string]memoryToken{}, now: time.Now}
}

func (s *MemoryTokenStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[key]
	if !ok {
		return "", nil
	}
	if !s.now().Before(t.expires) {
		delete(s.items, key)
		return "", nil
	}
	return t.token, nil
}

func (s *MemoryTokenStore) Set(_ context.Context, key, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryToken{token: token, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// RedisTokenStore shares session tokens between processes.
type RedisTokenStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, prefix: "fmsession:"}
}

func (s *RedisTokenStore) Get(ctx context.Context, key string) (string, error) {
	tok, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return tok, err
}

func (s *RedisTokenStore) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.prefix+key, token, ttl).Err()
}

func (s *RedisTokenStore) Clear(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}
