// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of
// calling time.Now, time.After, or time.AfterFunc directly. In
// production, Real() provides the standard library behavior. In tests,
// Fake() provides a deterministic clock that advances only when Advance
// is called.
//
// # Wiring Pattern
//
// Add a Clock field to structs that use time:
//
//	type Channel struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	channel := New(transport, Options{Clock: c})
//	// ... issue the request under test ...
//	c.WaitForTimers(1)           // request timeout registered
//	c.Advance(11 * time.Second)  // fire it deterministically
//
// WaitForTimers eliminates the race between timer registration and time
// advancement that plagues tests using time.Sleep for synchronization.
package clock
