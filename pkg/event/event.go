// Package event provides a small observer registry: one Event per
// notification channel, subscriptions released through a handle, and an
// observable Value that notifies only when it changes.
package event

import "sync"

// Observer is the subscribe-only view of an Event.
type Observer[T any] interface {
	Subscribe(fn func(T)) Subscription
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	cancel func()
}

// Unsubscribe removes the listener. It is safe to call more than once and on
// the zero Subscription.
func (s Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Event is a notification channel. Listeners run synchronously, in
// subscription order, on the goroutine that calls Fire. The zero Event is
// ready to use.
type Event[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listener[T]
}

// Subscribe registers fn and returns its handle.
func (e *Event[T]) Subscribe(fn func(T)) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener[T]{id: id, fn: fn})
	return Subscription{cancel: func() { e.remove(id) }}
}

func (e *Event[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Fire calls every listener with v. Listeners added or removed while firing
// take effect from the next Fire.
func (e *Event[T]) Fire(v T) {
	e.mu.Lock()
	snapshot := e.listeners
	e.mu.Unlock()
	for _, l := range snapshot {
		l.fn(v)
	}
}

// Len returns the number of subscribed listeners.
func (e *Event[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Observer returns e as a subscribe-only Observer.
func (e *Event[T]) Observer() Observer[T] {
	return e
}
