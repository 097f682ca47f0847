// Package feed implements the push/subscribe model for data refresh
// notifications. Mutating operations publish an owner-scoped event; every
// subscriber recomputes its view from scratch on delivery, so callbacks
// must be idempotent. Subscribe hands back an explicit unsubscribe func
// owned by the subscriber's lifecycle; there is no global registry.
package feed

import "sync"

// Event describes a data change for one owner.
type Event struct {
	OwnerID string
	Reason  string // e.g. "expense:created", "deposit:recorded"
}

// Hub fans events out to the subscribers registered for an owner.
// Callbacks run synchronously on the publisher's goroutine, in
// registration order.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func(Event)
	all  map[int]func(Event)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[int]func(Event)),
		all:  make(map[int]func(Event)),
	}
}

// Subscribe registers fn for events of the given owner and returns an
// unsubscribe func. Unsubscribing stops further deliveries; calling it
// more than once is harmless.
func (h *Hub) Subscribe(ownerID string, fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[int]func(Event))
	}
	h.subs[ownerID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if owner := h.subs[ownerID]; owner != nil {
			delete(owner, id)
			if len(owner) == 0 {
				delete(h.subs, ownerID)
			}
		}
	}
}

// SubscribeAll registers fn for every owner's events. Used by caches that
// key their entries by owner id.
func (h *Hub) SubscribeAll(fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	h.all[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.all, id)
	}
}

// Publish delivers the event to all current subscribers of its owner.
// The subscriber set is snapshotted under the lock; callbacks run outside
// it so a callback may subscribe or unsubscribe without deadlocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	owner := h.subs[ev.OwnerID]
	fns := make([]func(Event), 0, len(owner))
	ids := make([]int, 0, len(owner))
	for id := range owner {
		ids = append(ids, id)
	}
	// map iteration order is random; deliver in registration order
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	for _, id := range ids {
		fns = append(fns, owner[id])
	}
	allIDs := make([]int, 0, len(h.all))
	for id := range h.all {
		allIDs = append(allIDs, id)
	}
	for i := 0; i < len(allIDs); i++ {
		for j := i + 1; j < len(allIDs); j++ {
			if allIDs[j] < allIDs[i] {
				allIDs[i], allIDs[j] = allIDs[j], allIDs[i]
			}
		}
	}
	for _, id := range allIDs {
		fns = append(fns, h.all[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// SubscriberCount reports how many subscribers an owner currently has.
func (h *Hub) SubscriberCount(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[ownerID])
}
