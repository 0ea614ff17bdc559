// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now()
// when tests need unique identifiers for widget IDs, request IDs, or
// event bodies that must be distinguishable in shared fixtures.
//
//	widgetID := testutil.UniqueID("widget")  // "widget-1", "widget-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
