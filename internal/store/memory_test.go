package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStringOps(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Error("Get on missing key reported found")
	}

	if err := m.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, _ := m.Get(ctx, "k")
	if !ok || v != "v" {
		t.Errorf("Get = (%q, %v), want (\"v\", true)", v, ok)
	}

	exists, _ := m.Exists(ctx, "k")
	if !exists {
		t.Error("Exists = false after Set")
	}

	_ = m.Del(ctx, "k")
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("key survived Del")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "fleeting", "x", 30*time.Millisecond)

	if _, ok, _ := m.Get(ctx, "fleeting"); !ok {
		t.Fatal("key missing before TTL elapsed")
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := m.Get(ctx, "fleeting"); ok {
		t.Error("key still present after TTL elapsed")
	}
	if exists, _ := m.Exists(ctx, "fleeting"); exists {
		t.Error("Exists = true after TTL elapsed")
	}
}

func TestMemoryHashOps(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	_ = m.HSet(ctx, "h", "f1", "v1")
	_ = m.HSet(ctx, "h", "f2", "v2")

	v, ok, _ := m.HGet(ctx, "h", "f1")
	if !ok || v != "v1" {
		t.Errorf("HGet(f1) = (%q, %v), want (\"v1\", true)", v, ok)
	}
	if _, ok, _ := m.HGet(ctx, "h", "nope"); ok {
		t.Error("HGet on missing field reported found")
	}

	all, _ := m.HGetAll(ctx, "h")
	if len(all) != 2 || all["f2"] != "v2" {
		t.Errorf("HGetAll = %v, want two fields", all)
	}
}

func TestMemorySetOps(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	_ = m.SAdd(ctx, "s", "a", "b", "a")

	n, _ := m.SCard(ctx, "s")
	if n != 2 {
		t.Errorf("SCard = %d, want 2 (duplicates collapse)", n)
	}
	if ok, _ := m.SIsMember(ctx, "s", "a"); !ok {
		t.Error("SIsMember(a) = false")
	}

	_ = m.SRem(ctx, "s", "a")
	members, _ := m.SMembers(ctx, "s")
	if len(members) != 1 || members[0] != "b" {
		t.Errorf("SMembers = %v, want [b]", members)
	}
}

func TestMemoryZRevRangeOrdersByScoreDescending(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	_ = m.ZAdd(ctx, "lb", 1.5, "w1")
	_ = m.ZAdd(ctx, "lb", 9.2, "w2")
	_ = m.ZAdd(ctx, "lb", -3.0, "w3")
	_ = m.ZAdd(ctx, "lb", 4.4, "w4")

	entries, err := m.ZRevRange(ctx, "lb", 0, -1)
	if err != nil {
		t.Fatalf("ZRevRange: %v", err)
	}
	want := []string{"w2", "w4", "w1", "w3"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Member != w {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].Member, w)
		}
	}

	// Re-adding a member updates its score in place.
	_ = m.ZAdd(ctx, "lb", 10.0, "w3")
	entries, _ = m.ZRevRange(ctx, "lb", 0, 0)
	if len(entries) != 1 || entries[0].Member != "w3" {
		t.Errorf("top entry = %v, want w3 after score update", entries)
	}
}

func TestMemoryZRevRangeRankSlicing(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	for i, member := range []string{"a", "b", "c", "d", "e"} {
		_ = m.ZAdd(ctx, "z", float64(10-i), member)
	}

	entries, _ := m.ZRevRange(ctx, "z", 1, 3)
	want := []string{"b", "c", "d"}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, w := range want {
		if entries[i].Member != w {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].Member, w)
		}
	}

	if entries, _ := m.ZRevRange(ctx, "z", 9, 12); entries != nil {
		t.Errorf("out-of-range slice = %v, want nil", entries)
	}
}

func TestMemoryIncrMonotonic(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := m.Incr(ctx, "ctr")
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if n != want {
			t.Errorf("Incr = %d, want %d", n, want)
		}
	}
}

func TestMemoryKeysPattern(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "strategy:1", "A", 0)
	_ = m.Set(ctx, "strategy:2", "B", 0)
	_ = m.Set(ctx, "round:1", "C", 0)
	_ = m.SAdd(ctx, "strategy:1:licenses", "w")

	keys, err := m.Keys(ctx, "strategy:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{"strategy:1", "strategy:1:licenses", "strategy:2"}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i, w := range want {
		if keys[i] != w {
			t.Errorf("keys[%d] = %s, want %s", i, keys[i], w)
		}
	}
}
