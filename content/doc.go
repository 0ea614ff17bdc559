// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package content implements the embedded side of the alcove protocol.
//
// The Engine declares the capabilities the content wants before Start,
// answers the host's negotiation requests, and exposes one method per
// outbound action. On Start it queries the host's supported protocol
// versions once and caches them for the session; every version-gated
// method consults that cache and fails fast instead of sending a
// request the host would reject.
//
// Inbound host pushes are acknowledged generically unless the
// application registers a handler for the action.
package content
