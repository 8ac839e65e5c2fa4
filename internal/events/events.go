// Package events carries the relay's epoch lifecycle notifications
// (C10): client/extension attach and detach transitions, fanned out to
// whichever diagnostics (the reaper, in practice) want to observe them
// as they happen.
package events

import "sync"

// LifecycleHandler receives one lifecycle transition at a time.
type LifecycleHandler func(LifecycleEvent)

// Bus delivers lifecycle events to its subscribers synchronously, in
// the order Publish was called, so a subscriber's log lines always
// reflect the order transitions actually happened in (spec §5's
// ordering note). There is exactly one bus per relay instance, so
// unlike a general-purpose pub/sub there is no topic to route on.
type Bus struct {
	mu     sync.Mutex
	subs   map[int64]LifecycleHandler
	nextID int64
}

// NewBus constructs an empty lifecycle bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int64]LifecycleHandler)}
}

// Publish delivers evt to every current subscriber, one at a time,
// on the calling goroutine. A handler that blocks delays every
// subscriber after it, so handlers are expected to return quickly.
func (b *Bus) Publish(evt LifecycleEvent) {
	b.mu.Lock()
	handlers := make([]LifecycleHandler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
}

// Subscription lets a caller stop receiving lifecycle events.
type Subscription struct {
	bus *Bus
	id  int64
}

// Subscribe registers handler for every future Publish call. The
// returned Subscription's Unsubscribe method removes it again.
func (b *Bus) Subscribe(handler LifecycleHandler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = handler
	return Subscription{bus: b, id: id}
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s.id)
}
