package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestMemory(ttl time.Duration) (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMemory(ttl)
	m.now = clock.now
	return m, clock
}

func TestMemory_GetSet(t *testing.T) {
	m, _ := newTestMemory(time.Minute)
	ctx := context.Background()

	if _, ok, err := m.Get(ctx, "sul|2022"); ok || err != nil {
		t.Fatalf("Get() on empty cache = ok %v, err %v", ok, err)
	}

	if err := m.Set(ctx, "sul|2022", []byte(`[]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := m.Get(ctx, "sul|2022")
	if err != nil || !ok || string(got) != `[]` {
		t.Errorf("Get() = %q, %v, %v", got, ok, err)
	}
}

func TestMemory_Expiry(t *testing.T) {
	m, clock := newTestMemory(time.Minute)
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"))
	clock.t = clock.t.Add(59 * time.Second)
	if _, ok, _ := m.Get(ctx, "a"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	clock.t = clock.t.Add(time.Second)
	if _, ok, _ := m.Get(ctx, "a"); ok {
		t.Fatal("entry still served at its TTL")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry not dropped on read, Len() = %d", m.Len())
	}
}

func TestMemory_Purge(t *testing.T) {
	m, clock := newTestMemory(time.Minute)
	ctx := context.Background()

	m.Set(ctx, "old", []byte("1"))
	clock.t = clock.t.Add(2 * time.Minute)
	m.Set(ctx, "new", []byte("2"))

	if dropped := m.Purge(); dropped != 1 {
		t.Errorf("Purge() = %d, want 1", dropped)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestMemory_Close(t *testing.T) {
	m, _ := newTestMemory(time.Minute)
	m.Set(context.Background(), "a", []byte("1"))

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() after Close = %d", m.Len())
	}
}

func TestNewRedis_InvalidURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not a url", time.Minute); err == nil {
		t.Fatal("NewRedis() with an invalid URL should fail")
	}
}

var _ Cache = (*Memory)(nil)
var _ Cache = (*Redis)(nil)
