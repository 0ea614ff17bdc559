// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alcove-foundation/alcove/lib/testutil"
)

func TestPairDeliversFramesInOrder(t *testing.T) {
	t.Parallel()
	a, b := Pair()
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		if err := a.Send(ctx, []byte(body)); err != nil {
			t.Fatalf("send %q: %v", body, err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		frame := testutil.RequireReceive(t, b.Frames(), 5*time.Second, "frame %q", want)
		if string(frame) != want {
			t.Errorf("frame = %q, want %q", frame, want)
		}
	}
}

func TestPairCopiesFrames(t *testing.T) {
	t.Parallel()
	a, b := Pair()
	buffer := []byte("original")
	if err := a.Send(context.Background(), buffer); err != nil {
		t.Fatalf("send: %v", err)
	}
	copy(buffer, "mutated!")

	frame := testutil.RequireReceive(t, b.Frames(), 5*time.Second, "frame")
	if string(frame) != "original" {
		t.Errorf("frame = %q, want %q (send must copy)", frame, "original")
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	t.Parallel()
	a, _ := Pair()
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := a.Send(context.Background(), []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("send after close = %v, want ErrClosed", err)
	}
}

func TestCloseEndsFrameStream(t *testing.T) {
	t.Parallel()
	a, b := Pair()
	if err := b.Send(context.Background(), []byte("pending")); err != nil {
		t.Fatalf("send: %v", err)
	}
	frame := testutil.RequireReceive(t, a.Frames(), 5*time.Second, "delivered frame")
	if string(frame) != "pending" {
		t.Fatalf("frame = %q, want %q", frame, "pending")
	}

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case late, open := <-a.Frames():
		if open {
			t.Fatalf("frame %q after close, want closed stream", late)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("frame stream never closed")
	}

	// The peer's sends fail once this endpoint is gone.
	if err := b.Send(context.Background(), []byte("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("send to closed peer = %v, want ErrClosed", err)
	}
}

func TestSendHonorsContextWhenPeerIsFull(t *testing.T) {
	t.Parallel()
	a, _ := Pair()
	ctx := context.Background()
	// The peer's stream holds one frame beyond the buffer while its
	// pump waits for a reader.
	for i := 0; i < memoryBuffer+1; i++ {
		if err := a.Send(ctx, []byte("fill")); err != nil {
			t.Fatalf("fill %d: %v", i, err)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- a.Send(cancelled, []byte("overflow")) }()
	cancel()

	err := testutil.RequireReceive(t, done, 5*time.Second, "blocked send settled")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("blocked send = %v, want context.Canceled", err)
	}
}
