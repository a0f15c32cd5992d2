package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound means no value is stored under the key.
var ErrNotFound = errors.New("not found")

// Storage is the persistence hook: a string value under a fixed key.
// Best-effort semantics; a corrupt value is the caller's problem to discard.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// RedisStorage persists under plain Redis string keys with no expiry, the
// service-side analogue of browser local storage.
type RedisStorage struct {
	RDB *redis.Client
}

func (s *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.RDB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStorage) Save(ctx context.Context, key string, data []byte) error {
	return s.RDB.Set(ctx, key, data, 0).Err()
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, key).Err()
}

// MemoryStorage is the in-memory Storage for tests.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (s *MemoryStorage) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStorage) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(data))
	copy(out, data)
	s.values[key] = out
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
