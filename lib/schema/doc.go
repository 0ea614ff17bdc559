// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the payload shapes carried inside protocol
// frames: capability negotiation bodies, event send/read requests,
// identity-verification states, credential records, and the pushed
// update bodies.
//
// These are plain data-transfer structs with JSON tags matching the
// wire format. Identifier fields are plain strings here — frames from
// the untrusted side cannot be assumed valid, so the engines parse
// them into lib/ref types at the dispatch boundary and validate there.
package schema
