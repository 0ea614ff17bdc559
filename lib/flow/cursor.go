// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"
	"errors"
	"sync"
)

// ErrCursorClosed is returned by Pipe.Push after the pipe has been
// closed from either side.
var ErrCursorClosed = errors.New("flow: cursor closed")

// Cursor is a cancellable pull sequence. Next blocks until a value is
// available, the sequence ends, or ctx is done. The second return is
// false once the sequence is exhausted or closed — after that, every
// Next settles immediately with false rather than hanging. Close stops
// the producer; it is idempotent and safe to call mid-iteration.
type Cursor[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// Pipe is the producer-backed Cursor implementation. A Driver pushes
// values from its own goroutine; the engine pulls them through the
// Cursor side. Closing from either side settles outstanding and future
// Next calls with ok=false and makes further pushes fail with
// ErrCursorClosed — which is how the producer learns to stop.
type Pipe[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool
	ready  chan struct{} // capacity 1, signaled on push and close
	done   chan struct{} // closed by Close, for producer select loops
}

// NewPipe returns an open, empty pipe.
func NewPipe[T any]() *Pipe[T] {
	return &Pipe[T]{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Push appends v for the consumer. Returns ErrCursorClosed once the
// pipe is closed.
func (p *Pipe[T]) Push(v T) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrCursorClosed
	}
	p.queue = append(p.queue, v)
	p.mu.Unlock()
	p.signal()
	return nil
}

// Close ends the sequence. Values pushed before Close remain readable.
// Idempotent; always returns nil.
func (p *Pipe[T]) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()
	p.signal()
	return nil
}

// Done returns a channel closed when the pipe is closed. Producer
// goroutines select on it to stop producing promptly.
func (p *Pipe[T]) Done() <-chan struct{} { return p.done }

// Next implements Cursor.
func (p *Pipe[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			v := p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()
			return v, true, nil
		}
		if p.closed {
			p.mu.Unlock()
			return zero, false, nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, false, ctx.Err()
		case <-p.ready:
		}
	}
}

// signal wakes the consumer without blocking the caller.
func (p *Pipe[T]) signal() {
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

// SliceCursor returns a Cursor over a fixed set of values. The
// sequence is exhausted after the last value. Useful for drivers with
// a static answer and for tests.
func SliceCursor[T any](values ...T) Cursor[T] {
	pipe := NewPipe[T]()
	for _, v := range values {
		// Cannot fail: the pipe is open and unbounded.
		_ = pipe.Push(v)
	}
	_ = pipe.Close()
	return pipe
}
