// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/alcove-foundation/alcove/channel"
)

// ErrClosed rejects sends on or to a closed in-memory endpoint.
var ErrClosed = errors.New("transport: closed")

// memoryBuffer bounds each direction of a Pair. Sends block (honoring
// ctx) once the peer falls this far behind.
const memoryBuffer = 64

// Memory is one endpoint of an in-process frame pair. Frames are
// copied on send, so callers may reuse their buffers.
type Memory struct {
	peerInbox chan []byte
	inbox     chan []byte
	frames    chan []byte
	peerDone  chan struct{}

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// Pair returns two connected in-memory endpoints. Frames sent on one
// arrive on the other's Frames stream in order.
func Pair() (*Memory, *Memory) {
	aToB := make(chan []byte, memoryBuffer)
	bToA := make(chan []byte, memoryBuffer)
	a := &Memory{peerInbox: aToB, inbox: bToA, frames: make(chan []byte), done: make(chan struct{})}
	b := &Memory{peerInbox: bToA, inbox: aToB, frames: make(chan []byte), done: make(chan struct{})}
	a.peerDone = b.done
	b.peerDone = a.done
	go a.pump()
	go b.pump()
	return a, b
}

// pump moves frames from the inbound buffer to the Frames stream and
// closes the stream when this endpoint closes.
func (m *Memory) pump() {
	defer close(m.frames)
	for {
		select {
		case <-m.done:
			return
		case frame := <-m.inbox:
			select {
			case m.frames <- frame:
			case <-m.done:
				return
			}
		}
	}
}

// Send implements channel.Transport. Sending on a closed endpoint, or
// to a closed peer, fails with ErrClosed.
func (m *Memory) Send(ctx context.Context, frame []byte) error {
	copied := make([]byte, len(frame))
	copy(copied, frame)

	select {
	case <-m.done:
		return ErrClosed
	case <-m.peerDone:
		return ErrClosed
	default:
	}

	select {
	case m.peerInbox <- copied:
		return nil
	case <-m.done:
		return ErrClosed
	case <-m.peerDone:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frames implements channel.Transport.
func (m *Memory) Frames() <-chan []byte { return m.frames }

// Close implements channel.Transport. It ends this endpoint's Frames
// stream and fails the peer's later sends; frames already delivered to
// the peer stay readable over there.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

var _ channel.Transport = (*Memory)(nil)
