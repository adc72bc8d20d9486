// Package events provides a small synchronous observer registry used by the
// session manager and the realtime client to publish state to UI collaborators.
package events

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Emitter delivers values to subscribers synchronously, in registration
// order. Observers therefore see values in exactly the order they were
// emitted, never coalesced.
type Emitter[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber[T]

	// dispatchMu serializes deliveries without blocking registration, so a
	// callback may subscribe or unsubscribe while an emit is in progress.
	dispatchMu sync.Mutex
}

// NewEmitter creates an empty emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// Subscribe registers fn and returns a function that removes the
// subscription. Unsubscribing twice is a no-op.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs = append(e.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers v to every subscriber in registration order. Deliveries are
// serialized so two concurrent Emit calls cannot interleave notifications.
// Callbacks run on the emitting goroutine against a snapshot of the
// subscriber list: they may Subscribe or unsubscribe, but a subscription made
// during delivery only sees later emits, and a callback must not Emit on the
// same emitter.
func (e *Emitter[T]) Emit(v T) {
	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()

	e.mu.Lock()
	subs := make([]subscriber[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of active subscriptions.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}
