package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	if err := m.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, ok, err := m.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(value) != "v1" {
		t.Errorf("Get = (%q, %v), want (v1, true)", value, ok)
	}
}

func TestMemory_MissingKey(t *testing.T) {
	t.Parallel()

	_, ok, err := NewMemory().Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get on missing key reported a hit")
	}
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	if err := m.Set(ctx, "short", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, ok, _ := m.Get(ctx, "short"); ok {
		t.Error("expired entry still readable")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry not evicted on read, Len = %d", m.Len())
	}
}

func TestMemory_Overwrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	_ = m.Set(ctx, "k", []byte("old"), time.Minute)
	_ = m.Set(ctx, "k", []byte("new"), time.Minute)

	value, ok, _ := m.Get(ctx, "k")
	if !ok || string(value) != "new" {
		t.Errorf("Get = (%q, %v), want last write to win", value, ok)
	}
}

func TestMemory_NonPositiveTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	_ = m.Set(ctx, "k", []byte("v"), 0)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("zero-TTL write should not be stored")
	}
}

func TestKey_SegmentDiscrimination(t *testing.T) {
	t.Parallel()

	a := Key("results", "user-1", "GV", "run-5", "fp")
	b := Key("results", "user-1", "GV", "", "fp")
	if a == b {
		t.Error("scoped and unscoped keys must differ")
	}

	c := Key("results", "user-1", "GV", "run-5", "fp")
	if a != c {
		t.Errorf("identical parts produced different keys: %q vs %q", a, c)
	}
}
