// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package capability defines the permission vocabulary of the alcove
// protocol and the matching algorithm that authorizes every inbound
// action and outbound push.
//
// A capability is a plain string. Two structured families use a
// stable, reversible encoding on top of that:
//
//   - event capabilities: "io.alcove.<direction>.<kind>:<eventType>"
//     with an optional "#<key>" suffix. Direction is "send" or
//     "receive"; kind is "event", "state", "to_device", or
//     "account_data". "#*" is the any-key wildcard; no "#" means the
//     grant matches only unkeyed events of that kind.
//   - timeline capabilities: "io.alcove.timeline:<roomID>", with the
//     reserved room token "*" meaning "any known room".
//
// Everything else is an opaque grant ("always-on-screen",
// "send-delayed-event", ...).
//
// Matching is a linear scan with additive semantics: any one granted
// entry that covers an attempt authorizes it, so there is no
// precedence to resolve. Granted sets grow monotonically — a
// renegotiation adds a delta and never removes prior grants.
package capability
