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

func TestSliceCursorYieldsAllThenExhausts(t *testing.T) {
	t.Parallel()
	cursor := SliceCursor(1, 2, 3)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, ok, err := cursor.Next(ctx)
		if err != nil || !ok {
			t.Fatalf("next = (%d, %v, %v), want value", got, ok, err)
		}
		if got != want {
			t.Errorf("next = %d, want %d", got, want)
		}
	}

	if _, ok, err := cursor.Next(ctx); ok || err != nil {
		t.Errorf("next past end = (ok=%v, err=%v), want exhausted", ok, err)
	}
}

func TestSliceCursorEmpty(t *testing.T) {
	t.Parallel()
	cursor := SliceCursor[string]()
	if _, ok, err := cursor.Next(context.Background()); ok || err != nil {
		t.Errorf("next on empty cursor = (ok=%v, err=%v), want exhausted", ok, err)
	}
}

func TestPipeCloseSettlesOutstandingNext(t *testing.T) {
	t.Parallel()
	pipe := NewPipe[string]()
	settled := make(chan struct{})
	go func() {
		_, ok, err := pipe.Next(context.Background())
		if !ok && err == nil {
			close(settled)
		}
	}()

	if err := pipe.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	testutil.RequireClosed(t, settled, 5*time.Second, "outstanding Next settled by Close")
}

func TestPipePushAfterCloseFails(t *testing.T) {
	t.Parallel()
	pipe := NewPipe[int]()
	if err := pipe.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := pipe.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := pipe.Push(1); !errors.Is(err, ErrCursorClosed) {
		t.Errorf("push after close = %v, want ErrCursorClosed", err)
	}
}

func TestPipeDoneSignalsProducer(t *testing.T) {
	t.Parallel()
	pipe := NewPipe[int]()
	go func() { _ = pipe.Close() }()
	testutil.RequireClosed(t, pipe.Done(), 5*time.Second, "producer done signal")
}

func TestPipeValuesBeforeCloseRemainReadable(t *testing.T) {
	t.Parallel()
	pipe := NewPipe[int]()
	if err := pipe.Push(7); err != nil {
		t.Fatalf("push: %v", err)
	}
	_ = pipe.Close()

	got, ok, err := pipe.Next(context.Background())
	if err != nil || !ok || got != 7 {
		t.Fatalf("next = (%d, %v, %v), want (7, true, nil)", got, ok, err)
	}
	if _, ok, _ := pipe.Next(context.Background()); ok {
		t.Error("next after drain = ok, want exhausted")
	}
}

func TestPipeNextHonorsContext(t *testing.T) {
	t.Parallel()
	pipe := NewPipe[int]()
	ctx, cancel := context.WithCancel(context.Background())
	settled := make(chan struct{})
	go func() {
		_, _, err := pipe.Next(ctx)
		if errors.Is(err, context.Canceled) {
			close(settled)
		}
	}()
	cancel()
	testutil.RequireClosed(t, settled, 5*time.Second, "Next settled by cancellation")
}
