package session

import (
	"context"
	"errors"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no data is stored for a session id.
var ErrNotFound = errors.New("session not found")

// Store persists encoded session payloads by id.
type Store interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type redisCommands interface {
	LoadSession(ctx context.Context, id string) ([]byte, error)
	StoreSession(ctx context.Context, id string, data []byte, ttl time.Duration) error
	DropSession(ctx context.Context, id string) error
}

// RedisStore keeps sessions in redis with a TTL.
type RedisStore struct {
	client redisCommands
}

func NewRedisStore(client redisCommands) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	raw, err := s.client.LoadSession(ctx, id)
	if errors.Is(err, redislib.Nil) {
		return nil, ErrNotFound
	}
	return raw, err
}

func (s *RedisStore) Put(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	return s.client.StoreSession(ctx, id, data, ttl)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.DropSession(ctx, id)
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a process-local store for tests and single-node dev runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.data...), nil
}

func (s *MemoryStore) Put(_ context.Context, id string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[id] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}
