// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch provides a typed publish/subscribe table with
// deterministic, synchronous, in-subscription-order delivery.
//
// Each protocol engine owns its own Table for lifecycle and action
// notifications — there is no global registry. Publish calls every
// subscriber for the topic in the order they subscribed, on the
// publishing goroutine, before returning. Subscribers that need
// asynchrony spawn their own goroutines.
package dispatch

import "sync"

// Table is a subscriber table keyed by topic string. The zero value is
// not usable; construct with NewTable. Safe for concurrent use.
type Table[T any] struct {
	mu          sync.Mutex
	nextID      uint64
	subscribers map[string][]subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// NewTable returns an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{subscribers: make(map[string][]subscription[T])}
}

// Subscribe registers fn for the topic and returns a cancel function.
// Cancel is idempotent. Subscribers for a topic are invoked in
// subscription order.
func (t *Table[T]) Subscribe(topic string, fn func(T)) (cancel func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subscribers[topic] = append(t.subscribers[topic], subscription[T]{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		entries := t.subscribers[topic]
		for i, entry := range entries {
			if entry.id == id {
				t.subscribers[topic] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
		if len(t.subscribers[topic]) == 0 {
			delete(t.subscribers, topic)
		}
	}
}

// Publish delivers v synchronously to every subscriber for the topic,
// in subscription order, and returns the number of subscribers
// notified. The subscriber list is snapshotted before delivery, so a
// subscriber may cancel itself or subscribe new handlers without
// affecting the in-flight publish.
func (t *Table[T]) Publish(topic string, v T) int {
	t.mu.Lock()
	entries := make([]subscription[T], len(t.subscribers[topic]))
	copy(entries, t.subscribers[topic])
	t.mu.Unlock()

	for _, entry := range entries {
		entry.fn(v)
	}
	return len(entries)
}
