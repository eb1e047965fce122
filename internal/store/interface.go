// Package store provides the distributed shared state for QuoteCall:
// call, overseer, and commander persistence with TTL expiry, per-call
// locks, nudge slots, and directive inboxes.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("store: key not found")

// KV is the raw key-value contract the typed layer is built on. It is
// satisfied by the Redis client and by the in-process fallback; callers
// select an implementation at construction time, never inline.
type KV interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes key with a TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX writes key only if it does not exist. Returns true if the
	// write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// GetDel atomically reads and removes key, or returns ErrNotFound.
	GetDel(ctx context.Context, key string) (string, error)
	// MGet returns values for keys; missing entries are "".
	MGet(ctx context.Context, keys ...string) ([]string, error)
	// SAdd adds members to the set at key.
	SAdd(ctx context.Context, key string, members ...string) error
	// SMembers returns all members of the set at key.
	SMembers(ctx context.Context, key string) ([]string, error)
	// SRem removes members from the set at key.
	SRem(ctx context.Context, key string, members ...string) error
	// RPush appends values to the list at key.
	RPush(ctx context.Context, key string, values ...string) error
	// LRange returns list entries in [start, stop], inclusive; -1 means
	// the last element.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// Expire refreshes the TTL on key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// Compile-time verification that both backends satisfy KV.
var (
	_ KV = (*RedisKV)(nil)
	_ KV = (*MemoryKV)(nil)
)
