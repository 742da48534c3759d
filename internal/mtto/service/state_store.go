package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStateNotFound la llave no existe o ya expiró
var ErrStateNotFound = errors.New("state not found")

// StateStore valores efímeros: state de OAuth y JTI de refresh tokens
type StateStore interface {
	Save(ctx context.Context, key, value string, ttl time.Duration) error
	// Take devuelve el valor y lo borra; un state sólo se usa una vez
	Take(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// RedisStateStore StateStore sobre go-redis
type RedisStateStore struct {
	rdb *redis.Client
}

func NewRedisStateStore(rdb *redis.Client) *RedisStateStore {
	return &RedisStateStore{rdb: rdb}
}

func (s *RedisStateStore) Save(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStateStore) Take(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	return v, err
}

func (s *RedisStateStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *RedisStateStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

type memoryEntry struct {
	value   string
	expires time.Time
}

// MemoryStateStore StateStore en proceso, para desarrollo sin Redis y pruebas
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStateStore) Save(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expires: s.now().Add(ttl)}
	return nil
}

// get asume el lock tomado
func (s *MemoryStateStore) get(key string) (string, bool) {
	e, ok := s.entries[key]
	if !ok {
		return "", false
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return "", false
	}
	return e.value, true
}

func (s *MemoryStateStore) Take(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.get(key)
	if !ok {
		return "", ErrStateNotFound
	}
	delete(s.entries, key)
	return v, nil
}

func (s *MemoryStateStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.get(key)
	return ok, nil
}

func (s *MemoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
