package event

import "sync"

// ValueObserver is the read-only view of a Value.
type ValueObserver[T comparable] interface {
	Observer[T]
	Get() T
}

// Value holds a comparable value and notifies its listeners with the new
// value whenever Set changes it.
type Value[T comparable] struct {
	mu      sync.Mutex
	value   T
	changed Event[T]
}

// NewValue returns a Value holding initial.
func NewValue[T comparable](initial T) *Value[T] {
	return &Value[T]{value: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set stores value and fires if it differs from the previous one. It reports
// whether the value changed.
func (v *Value[T]) Set(value T) bool {
	v.mu.Lock()
	if v.value == value {
		v.mu.Unlock()
		return false
	}
	v.value = value
	v.mu.Unlock()
	v.changed.Fire(value)
	return true
}

// Subscribe registers fn to be called with each new value.
func (v *Value[T]) Subscribe(fn func(T)) Subscription {
	return v.changed.Subscribe(fn)
}

// Observer returns v as a read-only ValueObserver.
func (v *Value[T]) Observer() ValueObserver[T] {
	return v
}
