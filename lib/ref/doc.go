// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identifier types for
// the alcove protocol: room IDs, user IDs, and widget IDs.
//
// Identifiers cross the trust boundary inside protocol frames, so they
// are parsed into these types at the boundary and treated as opaque
// values everywhere else. All constructors validate their inputs and
// return errors for invalid values. The zero value of each type is
// invalid; use IsZero to check.
//
// JSON marshaling uses the canonical string form via
// encoding.TextMarshaler.
package ref
