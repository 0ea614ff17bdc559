// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alcove-foundation/alcove/lib/testutil"
)

func TestFeedPushThenNext(t *testing.T) {
	t.Parallel()
	feed := NewFeed[string]()
	if err := feed.Push("pending"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := feed.Push("granted"); err != nil {
		t.Fatalf("push: %v", err)
	}

	ctx := context.Background()
	for _, want := range []string{"pending", "granted"} {
		got, err := feed.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Errorf("next = %q, want %q", got, want)
		}
	}
}

func TestFeedNextBlocksUntilPush(t *testing.T) {
	t.Parallel()
	feed := NewFeed[int]()
	got := make(chan int, 1)
	go func() {
		v, err := feed.Next(context.Background())
		if err != nil {
			return
		}
		got <- v
	}()

	if err := feed.Push(42); err != nil {
		t.Fatalf("push: %v", err)
	}
	if v := testutil.RequireReceive(t, got, 5*time.Second, "pushed value"); v != 42 {
		t.Errorf("next = %d, want 42", v)
	}
}

func TestFeedPushAfterCloseFails(t *testing.T) {
	t.Parallel()
	feed := NewFeed[string]()
	feed.Close()
	if err := feed.Push("late"); !errors.Is(err, ErrFeedClosed) {
		t.Errorf("push after close = %v, want ErrFeedClosed", err)
	}
	if !feed.Closed() {
		t.Error("Closed() = false after Close")
	}
}

func TestFeedDrainsQueueBeforeClosedError(t *testing.T) {
	t.Parallel()
	feed := NewFeed[string]()
	if err := feed.Push("kept"); err != nil {
		t.Fatalf("push: %v", err)
	}
	feed.Close()

	ctx := context.Background()
	got, err := feed.Next(ctx)
	if err != nil || got != "kept" {
		t.Fatalf("next = (%q, %v), want (kept, nil)", got, err)
	}
	if _, err := feed.Next(ctx); !errors.Is(err, ErrFeedClosed) {
		t.Errorf("next on drained closed feed = %v, want ErrFeedClosed", err)
	}
}

func TestFeedNextUnblocksOnClose(t *testing.T) {
	t.Parallel()
	feed := NewFeed[string]()
	done := make(chan struct{})
	go func() {
		_, err := feed.Next(context.Background())
		if errors.Is(err, ErrFeedClosed) {
			close(done)
		}
	}()
	feed.Close()
	testutil.RequireClosed(t, done, 5*time.Second, "Next settled by Close")
}

func TestFeedNextHonorsContext(t *testing.T) {
	t.Parallel()
	feed := NewFeed[string]()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_, err := feed.Next(ctx)
		if errors.Is(err, context.Canceled) {
			close(done)
		}
	}()
	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "Next settled by cancellation")
}
