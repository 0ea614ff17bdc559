// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package flow provides the two single-subscriber streaming primitives
// the protocol engines are built on.
//
// [Feed] is a single-producer, single-consumer push observable with an
// explicit terminal close. The host engine hands a Feed to the Driver
// during phased identity verification: the Driver pushes one or two
// updates (an optional "pending" followed by a final verdict), and any
// push after the engine has closed the feed fails with [ErrFeedClosed],
// which is how out-of-phase verdicts are detected.
//
// [Cursor] is a cancellable pull sequence. The Driver's credential
// stream is a Cursor: the engine pulls values one at a time and closes
// the cursor when the content unwatches. Close mid-iteration settles
// any outstanding Next cleanly; nothing ever hangs on a closed cursor.
//
// Neither primitive is a general pub/sub mechanism — for fan-out of
// lifecycle notifications, see lib/dispatch.
package flow
