package store

import (
	"context"
	"log/slog"
	"time"

	"trade-arena/pkg/types"
)

// Fallback implements the store failure policy on top of a primary (external)
// backend and an in-memory fallback.
//
// Permissive mode: when the primary errors, the operation is transparently
// served by the in-memory store and a log line records the downgrade. Keys
// written while the primary is down live only in memory; once the primary
// recovers, new writes go there again with no migration (documented
// limitation).
//
// Strict mode: primary errors surface as StoreUnavailable.
type Fallback struct {
	primary    KV
	memory     *Memory
	permissive bool
	logger     *slog.Logger
}

// NewFallback wraps a primary backend with the failure policy.
func NewFallback(primary KV, permissive bool, logger *slog.Logger) *Fallback {
	return &Fallback{
		primary:    primary,
		memory:     NewMemory(),
		permissive: permissive,
		logger:     logger.With("component", "store"),
	}
}

// degrade decides what a failed primary op returns: the in-memory result in
// permissive mode, StoreUnavailable in strict mode.
func (f *Fallback) degrade(op string, err error) error {
	if f.permissive {
		f.logger.Warn("store degraded to memory", "op", op, "error", err)
		return nil
	}
	return types.StoreUnavailable(err)
}

func (f *Fallback) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := f.primary.Get(ctx, key)
	if err != nil {
		if derr := f.degrade("get", err); derr != nil {
			return "", false, derr
		}
		return f.memory.Get(ctx, key)
	}
	return v, ok, nil
}

func (f *Fallback) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := f.primary.Set(ctx, key, value, ttl); err != nil {
		if derr := f.degrade("set", err); derr != nil {
			return derr
		}
		return f.memory.Set(ctx, key, value, ttl)
	}
	return nil
}

func (f *Fallback) Del(ctx context.Context, keys ...string) error {
	if err := f.primary.Del(ctx, keys...); err != nil {
		if derr := f.degrade("del", err); derr != nil {
			return derr
		}
		return f.memory.Del(ctx, keys...)
	}
	return nil
}

func (f *Fallback) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := f.primary.Exists(ctx, key)
	if err != nil {
		if derr := f.degrade("exists", err); derr != nil {
			return false, derr
		}
		return f.memory.Exists(ctx, key)
	}
	return ok, nil
}

func (f *Fallback) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := f.primary.Expire(ctx, key, ttl); err != nil {
		if derr := f.degrade("expire", err); derr != nil {
			return derr
		}
		return f.memory.Expire(ctx, key, ttl)
	}
	return nil
}

func (f *Fallback) HSet(ctx context.Context, key, field, value string) error {
	if err := f.primary.HSet(ctx, key, field, value); err != nil {
		if derr := f.degrade("hset", err); derr != nil {
			return derr
		}
		return f.memory.HSet(ctx, key, field, value)
	}
	return nil
}

func (f *Fallback) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, ok, err := f.primary.HGet(ctx, key, field)
	if err != nil {
		if derr := f.degrade("hget", err); derr != nil {
			return "", false, derr
		}
		return f.memory.HGet(ctx, key, field)
	}
	return v, ok, nil
}

func (f *Fallback) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := f.primary.HGetAll(ctx, key)
	if err != nil {
		if derr := f.degrade("hgetall", err); derr != nil {
			return nil, derr
		}
		return f.memory.HGetAll(ctx, key)
	}
	return m, nil
}

func (f *Fallback) SAdd(ctx context.Context, key string, members ...string) error {
	if err := f.primary.SAdd(ctx, key, members...); err != nil {
		if derr := f.degrade("sadd", err); derr != nil {
			return derr
		}
		return f.memory.SAdd(ctx, key, members...)
	}
	return nil
}

func (f *Fallback) SRem(ctx context.Context, key string, members ...string) error {
	if err := f.primary.SRem(ctx, key, members...); err != nil {
		if derr := f.degrade("srem", err); derr != nil {
			return derr
		}
		return f.memory.SRem(ctx, key, members...)
	}
	return nil
}

func (f *Fallback) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := f.primary.SMembers(ctx, key)
	if err != nil {
		if derr := f.degrade("smembers", err); derr != nil {
			return nil, derr
		}
		return f.memory.SMembers(ctx, key)
	}
	return members, nil
}

func (f *Fallback) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := f.primary.SIsMember(ctx, key, member)
	if err != nil {
		if derr := f.degrade("sismember", err); derr != nil {
			return false, derr
		}
		return f.memory.SIsMember(ctx, key, member)
	}
	return ok, nil
}

func (f *Fallback) SCard(ctx context.Context, key string) (int64, error) {
	n, err := f.primary.SCard(ctx, key)
	if err != nil {
		if derr := f.degrade("scard", err); derr != nil {
			return 0, derr
		}
		return f.memory.SCard(ctx, key)
	}
	return n, nil
}

func (f *Fallback) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := f.primary.ZAdd(ctx, key, score, member); err != nil {
		if derr := f.degrade("zadd", err); derr != nil {
			return derr
		}
		return f.memory.ZAdd(ctx, key, score, member)
	}
	return nil
}

func (f *Fallback) ZRevRange(ctx context.Context, key string, start, stop int64) ([]ZEntry, error) {
	zs, err := f.primary.ZRevRange(ctx, key, start, stop)
	if err != nil {
		if derr := f.degrade("zrevrange", err); derr != nil {
			return nil, derr
		}
		return f.memory.ZRevRange(ctx, key, start, stop)
	}
	return zs, nil
}

func (f *Fallback) Incr(ctx context.Context, key string) (int64, error) {
	n, err := f.primary.Incr(ctx, key)
	if err != nil {
		if derr := f.degrade("incr", err); derr != nil {
			return 0, derr
		}
		return f.memory.Incr(ctx, key)
	}
	return n, nil
}

func (f *Fallback) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := f.primary.Keys(ctx, pattern)
	if err != nil {
		if derr := f.degrade("keys", err); derr != nil {
			return nil, derr
		}
		return f.memory.Keys(ctx, pattern)
	}
	return keys, nil
}

func (f *Fallback) Close() error {
	f.memory.Close()
	return f.primary.Close()
}
