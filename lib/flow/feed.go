// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"
	"errors"
	"sync"
)

// ErrFeedClosed is returned by Feed.Push after the feed has been
// closed, and by Feed.Next once the feed is closed and drained.
var ErrFeedClosed = errors.New("flow: feed closed")

// Feed is a single-producer, single-consumer push observable with an
// explicit terminal close. Values are delivered in push order. Pushes
// never block the producer; the internal queue is unbounded because
// producers feed at most a handful of values before the consumer
// closes the feed.
//
// Exactly one goroutine may consume (call Next); any goroutine may
// close. The zero value is not usable; construct with NewFeed.
type Feed[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool
	ready  chan struct{} // capacity 1, signaled on push and close
}

// NewFeed returns an open, empty feed.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{ready: make(chan struct{}, 1)}
}

// Push appends v for the consumer. Returns ErrFeedClosed if the feed
// has been closed — the producer's signal that its value arrived out
// of phase and will never be observed.
func (f *Feed[T]) Push(v T) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFeedClosed
	}
	f.queue = append(f.queue, v)
	f.mu.Unlock()
	f.signal()
	return nil
}

// Close marks the feed terminal. Idempotent. Values pushed before
// Close remain readable; a Next after the queue drains returns
// ErrFeedClosed.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.signal()
}

// Closed reports whether Close has been called.
func (f *Feed[T]) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Next returns the next pushed value, blocking until one arrives, the
// feed closes (ErrFeedClosed), or ctx is done (ctx.Err()).
func (f *Feed[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		f.mu.Lock()
		if len(f.queue) > 0 {
			v := f.queue[0]
			f.queue = f.queue[1:]
			f.mu.Unlock()
			return v, nil
		}
		if f.closed {
			f.mu.Unlock()
			return zero, ErrFeedClosed
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-f.ready:
		}
	}
}

// signal wakes the consumer without blocking the caller.
func (f *Feed[T]) signal() {
	select {
	case f.ready <- struct{}{}:
	default:
	}
}
