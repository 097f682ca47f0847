package cache

import (
	"testing"
	"time"
)

func newTestStore[T any](t *testing.T, capacity int, ttl time.Duration) *Store[T] {
	t.Helper()
	s := New[T](capacity, ttl, time.Minute)
	t.Cleanup(s.Close)
	return s
}

func TestStoreGetSet(t *testing.T) {
	s := newTestStore[int](t, 2, time.Minute)

	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected miss for absent owner")
	}

	s.Set("alice", 1)
	if v, ok := s.Get("alice"); !ok || v != 1 {
		t.Fatalf("Get(alice) = %d,%v, want 1,true", v, ok)
	}

	// Overwrite keeps a single entry.
	s.Set("alice", 2)
	if v, _ := s.Get("alice"); v != 2 {
		t.Errorf("Get(alice) after overwrite = %d, want 2", v)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStoreEvictsColdestOwner(t *testing.T) {
	s := newTestStore[string](t, 2, time.Minute)
	s.Set("alice", "a")
	s.Set("bob", "b")

	// Touch alice so bob becomes the eviction candidate.
	s.Get("alice")
	s.Set("carol", "c")

	if _, ok := s.Get("bob"); ok {
		t.Error("bob should have been evicted")
	}
	if _, ok := s.Get("alice"); !ok {
		t.Error("alice should have survived eviction")
	}
}

func TestStoreExpiry(t *testing.T) {
	s := newTestStore[int](t, 10, 10*time.Millisecond)
	s.Set("alice", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := s.Get("alice"); ok {
		t.Error("expired entry should miss")
	}

	s.Set("bob", 2)
	if n := s.sweep(time.Now().Add(time.Second)); n != 1 {
		t.Errorf("sweep() = %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Errorf("Len() after sweep = %d, want 0", s.Len())
	}
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore[int](t, 10, time.Minute)
	s.Set("alice", 1)
	s.Delete("alice")
	if _, ok := s.Get("alice"); ok {
		t.Error("deleted entry should miss")
	}
	// Deleting an absent owner is a no-op.
	s.Delete("missing")
}

func TestStoreCloseIsIdempotent(t *testing.T) {
	s := New[int](10, time.Minute, time.Minute)
	s.Close()
	s.Close()
}
