// Package events provides a small typed publish-subscribe mechanism. Events are keyed by their Go
// type, so subscribing to dance.StateChanged only delivers values of that type.
package events

import (
	"reflect"
	"sync"
)

// Event is any comparable value type that can be published.
type Event interface{ comparable }

type handler func(any)

var (
	subscriptions   = make(map[reflect.Type]map[*handler]struct{})
	subscriptionsMu sync.RWMutex
)

// Subscription allows unsubscribing from an event.
type Subscription[T Event] struct {
	h *handler
}

// Subscribe registers callback for every event of type T emitted after the call returns.
func Subscribe[T Event](callback func(evt T)) *Subscription[T] {
	h := handler(func(e any) { callback(e.(T)) })
	key := reflect.TypeFor[T]()

	subscriptionsMu.Lock()
	defer subscriptionsMu.Unlock()
	if subscriptions[key] == nil {
		subscriptions[key] = make(map[*handler]struct{})
	}
	subscriptions[key][&h] = struct{}{}
	return &Subscription[T]{h: &h}
}

// Unsubscribe removes the given subscription. It is safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	key := reflect.TypeFor[T]()
	subscriptionsMu.Lock()
	defer subscriptionsMu.Unlock()
	if subs, ok := subscriptions[key]; ok {
		delete(subs, s.h)
		if len(subs) == 0 {
			delete(subscriptions, key)
		}
	}
}

// Emit notifies all subscribers of evt. Callbacks are invoked asynchronously in separate
// goroutines, so subscribers must not rely on the order of delivery.
func Emit[T Event](evt T) {
	subscriptionsMu.RLock()
	defer subscriptionsMu.RUnlock()
	for h := range subscriptions[reflect.TypeFor[T]()] {
		go (*h)(evt)
	}
}
