// Package repository provides the Redis-backed wizard session store.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when no session exists for the given id.
var ErrSessionNotFound = errors.New("wizard session not found")

const keyPrefix = "wizard:sess:"

// Store persists JSON-encoded wizard sessions in Redis with a TTL.
// The service layer owns the session model; this layer only moves bytes.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a session store. Every save refreshes the TTL, so active
// conversations stay alive and abandoned ones expire on their own.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

// Save writes the session payload and resets its TTL.
func (s *Store) Save(ctx context.Context, id uuid.UUID, data []byte) error {
	return s.rdb.Set(ctx, key(id), data, s.ttl).Err()
}

// Get reads the session payload, or ErrSessionNotFound when the key is
// missing or has expired.
func (s *Store) Get(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	return s.rdb.Del(ctx, key(id)).Err()
}

// SweepExpired scans for wizard session keys with no TTL set (which should
// never happen in normal operation) and deletes them. Returns the number of
// keys removed. Used by the scheduler as a safety net.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	var removed int
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		ttl, err := s.rdb.TTL(ctx, k).Result()
		if err != nil {
			return removed, err
		}
		if ttl < 0 {
			if err := s.rdb.Del(ctx, k).Err(); err != nil {
				return removed, err
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}
