// Package store provides the keyed storage layer for the arena.
//
// One small contract (KV) covers everything the core persists: strings,
// hashes, sets, sorted sets, counters, and TTLs. Two backends implement it:
// an external Redis-backed store and an in-memory store used for tests and
// as the permissive-mode fallback. Fallback wraps the two and implements the
// failure policy: in permissive mode an unavailable external store degrades
// to the in-memory backend, in strict mode operations fail with a
// store-unavailable error.
package store

import (
	"context"
	"time"
)

// ZEntry is one member of a sorted set with its score.
type ZEntry struct {
	Member string
	Score  float64
}

// KV is the unified storage contract. TTL of zero means no expiry.
// Implementations serialize writes per key; cross-key transactions are not
// part of the contract.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRevRange returns members ordered by score descending, sliced by rank.
	// stop = -1 means "to the end".
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]ZEntry, error)

	Incr(ctx context.Context, key string) (int64, error)

	// Keys returns all keys matching a glob pattern. Backed by cursor SCAN
	// on the external store; never by the blocking KEYS command.
	Keys(ctx context.Context, pattern string) ([]string, error)

	Close() error
}
