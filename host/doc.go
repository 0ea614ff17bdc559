// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package host implements the embedding side of the alcove protocol.
//
// The Engine owns one end of a channel.Channel and runs the host's
// protocol state machine: it waits for the embedded content to load,
// negotiates capabilities through the application-supplied Driver,
// then dispatches every inbound action against the granted capability
// set. The Driver supplies the real effect of each permitted action;
// the Engine only decides whether an action is allowed and correlates
// the exchange.
//
// Applications implement Driver (usually by embedding
// UnimplementedDriver and overriding the actions they support),
// construct an Engine over a transport, and call Start. Everything
// else is driven by inbound requests from the content.
package host
