// Package state holds the client-side stores shared by every page controller.
package state

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Observers is an explicit subscriber list. Subscribers are called synchronously
// in subscription order; callers must not hold their own locks while notifying.
type Observers[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it
func (o *Observers[T]) Subscribe(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	id := o.nextID
	o.subs = append(o.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

// Notify calls every current subscriber with value
func (o *Observers[T]) Notify(value T) {
	o.mu.Lock()
	subs := make([]subscriber[T], len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, s := range subs {
		s.fn(value)
	}
}

// Len returns the number of subscribers
func (o *Observers[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Envelope is the persisted layout of a store blob: {"state": ..., "version": 0}
type Envelope[T any] struct {
	State   T   `json:"state"`
	Version int `json:"version"`
}

// EncodeEnvelope serializes state inside a version 0 envelope
func EncodeEnvelope[T any](s T) (string, error) {
	raw, err := json.Marshal(Envelope[T]{State: s})
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}
	return string(raw), nil
}

// DecodeEnvelope restores state from an envelope, ignoring the version number
func DecodeEnvelope[T any](raw string) (T, error) {
	var env Envelope[T]
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode state: %w", err)
	}
	return env.State, nil
}
