// Package storage persists booking snapshots across the off-site payment
// redirect. The store is a single slot per session: only one booking can
// be in flight at a time, and a second attempt overwrites the first.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/busline/booking-backend/internal/models"
)

// SnapshotStore is the durable single-slot snapshot cell. Take removes
// the snapshot as it reads it, so a snapshot restores exactly once; a
// missing snapshot is (nil, nil), not an error.
type SnapshotStore interface {
	Put(ctx context.Context, sessionID string, snapshot *models.BookingSnapshot, ttl time.Duration) error
	Take(ctx context.Context, sessionID string) (*models.BookingSnapshot, error)
}

func snapshotKey(sessionID string) string {
	return "booking:snapshot:" + sessionID
}

// RedisSnapshotStore keeps snapshots in Redis under a well-known key per
// session. GETDEL makes the read-then-clear step atomic.
type RedisSnapshotStore struct {
	client *redis.Client
}

// NewRedisSnapshotStore creates a Redis-backed snapshot store.
func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

// Put serializes and stores the snapshot, overwriting any previous slot
// content for the session.
func (s *RedisSnapshotStore) Put(ctx context.Context, sessionID string, snapshot *models.BookingSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}
	return nil
}

// Take reads and deletes the snapshot in one round trip.
func (s *RedisSnapshotStore) Take(ctx context.Context, sessionID string) (*models.BookingSnapshot, error) {
	data, err := s.client.GetDel(ctx, snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snapshot models.BookingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snapshot, nil
}

// MemorySnapshotStore is an in-process SnapshotStore for tests and for
// running without Redis in development.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemorySnapshotStore creates an empty in-memory store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{slots: make(map[string][]byte)}
}

// Put stores the snapshot. The TTL is ignored; in-memory slots live until
// taken.
func (s *MemorySnapshotStore) Put(_ context.Context, sessionID string, snapshot *models.BookingSnapshot, _ time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[sessionID] = data
	return nil
}

// Take reads and clears the slot.
func (s *MemorySnapshotStore) Take(_ context.Context, sessionID string) (*models.BookingSnapshot, error) {
	s.mu.Lock()
	data, ok := s.slots[sessionID]
	delete(s.slots, sessionID)
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var snapshot models.BookingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snapshot, nil
}
