// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel turns an unordered, untyped cross-boundary link into
// a correlated request/response transport.
//
// A Channel sits on top of a Transport (an in-memory pair, a
// websocket, or anything else that moves opaque frames) and adds the
// protocol's transport guarantees: frames are JSON envelopes, every
// request carries a collision-checked unique request ID, responses are
// matched to requests by that ID, each side only accepts frames
// travelling in the right direction, the peer identity locks to the
// first request's sender, every outstanding request has a timeout, and
// stopping the channel fails all in-flight work at once.
//
// The package also owns the wire vocabulary: direction tags, action
// names, protocol versions, and the error payload shape.
package channel
