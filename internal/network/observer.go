// Package network tracks connectivity and notifies subscribers on
// transitions. Detection only — acting on a transition (reconciliation)
// belongs to the gateway.
package network

import "sync"

// Observer holds the current online flag and a subscriber list. Callbacks
// fire synchronously, once per transition, never on repeated Set calls
// with the same value.
type Observer struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)
}

// NewObserver seeds the observer from the platform's connectivity signal.
func NewObserver(initiallyOnline bool) *Observer {
	return &Observer{
		online: initiallyOnline,
		subs:   make(map[int]func(bool)),
	}
}

// Online reports the current connectivity flag.
func (o *Observer) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// Set updates the flag and, on a transition, notifies every subscriber.
func (o *Observer) Set(online bool) {
	o.mu.Lock()
	if o.online == online {
		o.mu.Unlock()
		return
	}
	o.online = online
	callbacks := make([]func(bool), 0, len(o.subs))
	for _, fn := range o.subs {
		callbacks = append(callbacks, fn)
	}
	o.mu.Unlock()

	// invoke outside the lock so a callback may call back into the observer
	for _, fn := range callbacks {
		fn(online)
	}
}

// Subscribe registers a callback and returns its unsubscribe function.
// Unsubscribing twice is harmless and removes exactly this registration.
func (o *Observer) Subscribe(fn func(online bool)) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}
