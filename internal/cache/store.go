// Package cache holds composed overview responses between mutations.
// Entries are keyed by owner id; the feed hub deletes them whenever the
// owner's data changes, so the TTL and the janitor only bound staleness
// when no event arrives.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Store keeps at most capacity owners, each entry expiring after the
// TTL. When full, the owner touched longest ago is evicted. A janitor
// goroutine sweeps expired entries until Close is called.
type Store[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	byOwner  map[string]*list.Element
	recent   *list.List // front = most recently touched owner

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type entry[T any] struct {
	owner     string
	value     T
	expiresAt time.Time
}

func New[T any](capacity int, ttl, sweepEvery time.Duration) *Store[T] {
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	s := &Store[T]{
		capacity: capacity,
		ttl:      ttl,
		byOwner:  make(map[string]*list.Element),
		recent:   list.New(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.janitor(sweepEvery)
	return s
}

// Get returns the owner's entry if present and not expired. Expired
// entries are dropped on read.
func (s *Store[T]) Get(owner string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	elem, ok := s.byOwner[owner]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(*entry[T])
	if time.Now().After(ent.expiresAt) {
		s.remove(elem)
		return zero, false
	}
	s.recent.MoveToFront(elem)
	return ent.value, true
}

// Set stores the owner's entry with a fresh TTL, evicting the coldest
// owner when the store is full.
func (s *Store[T]) Set(owner string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := &entry[T]{owner: owner, value: value, expiresAt: time.Now().Add(s.ttl)}
	if elem, ok := s.byOwner[owner]; ok {
		elem.Value = ent
		s.recent.MoveToFront(elem)
		return
	}
	s.byOwner[owner] = s.recent.PushFront(ent)
	if s.recent.Len() > s.capacity {
		if coldest := s.recent.Back(); coldest != nil {
			s.remove(coldest)
		}
	}
}

// Delete drops an owner's entry. Deleting an absent owner is a no-op.
func (s *Store[T]) Delete(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.byOwner[owner]; ok {
		s.remove(elem)
	}
}

// Len reports how many owners currently have an entry.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byOwner)
}

func (s *Store[T]) remove(elem *list.Element) {
	delete(s.byOwner, elem.Value.(*entry[T]).owner)
	s.recent.Remove(elem)
}

// sweep drops every entry expired as of now and reports how many went.
func (s *Store[T]) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*list.Element
	for elem := s.recent.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		s.remove(elem)
	}
	return len(expired)
}

func (s *Store[T]) janitor(every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-s.stop:
			return
		}
	}
}

// Close stops the janitor. Safe to call more than once.
func (s *Store[T]) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}
