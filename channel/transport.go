// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import "context"

// Transport moves opaque frames across the trust boundary. It knows
// nothing about envelopes, correlation, or identity — the Channel adds
// all of that. Implementations live in the transport package; tests
// and same-process embeddings use the in-memory pair, real deployments
// a websocket.
type Transport interface {
	// Send transmits one frame to the peer. It returns once the frame
	// is handed to the underlying link (not once the peer processed
	// it).
	Send(ctx context.Context, frame []byte) error

	// Frames returns the stream of inbound frames. The channel owns
	// the single reader. The stream closes when the transport closes.
	Frames() <-chan []byte

	// Close tears down the link. Idempotent. Pending and future
	// Sends fail after Close.
	Close() error
}
