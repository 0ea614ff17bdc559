// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides concrete frame links for the protocol
// channel.
//
// [Pair] connects two channels inside one process — the test harness
// and the natural fit when host and content run as goroutines of the
// same binary.
//
// [WebSocket] carries frames over a gorilla/websocket connection for
// embeddings that live in a separate process or browser surface.
// Origin checking is a caller-supplied option on [Upgrade]; the
// transport itself enforces no trust decisions.
package transport
