// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	t.Parallel()
	c := Fake(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	c.Advance(5 * time.Second)
	if got := c.Now(); !got.Equal(epoch.Add(5 * time.Second)) {
		t.Fatalf("Now() after advance = %v", got)
	}
}

func TestFakeAfterFiresAtDeadline(t *testing.T) {
	t.Parallel()
	c := Fake(epoch)
	ch := c.After(10 * time.Second)

	c.Advance(9 * time.Second)
	select {
	case fired := <-ch:
		t.Fatalf("After fired early at %v", fired)
	default:
	}

	c.Advance(time.Second)
	select {
	case fired := <-ch:
		if !fired.Equal(epoch.Add(10 * time.Second)) {
			t.Errorf("fired at %v, want %v", fired, epoch.Add(10*time.Second))
		}
	default:
		t.Fatal("After did not fire at deadline")
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	t.Parallel()
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeAfterFuncOrderAndStop(t *testing.T) {
	t.Parallel()
	c := Fake(epoch)

	var order []string
	c.AfterFunc(3*time.Second, func() { order = append(order, "late") })
	c.AfterFunc(time.Second, func() { order = append(order, "early") })
	stopped := c.AfterFunc(2*time.Second, func() { order = append(order, "stopped") })

	if !stopped.Stop() {
		t.Fatal("Stop() = false for pending timer")
	}
	if stopped.Stop() {
		t.Error("second Stop() = true, want false")
	}

	c.Advance(5 * time.Second)
	if len(order) != 2 || order[0] != "early" || order[1] != "late" {
		t.Errorf("callback order = %v, want [early late]", order)
	}
}

func TestFakeAfterFuncSynchronousWhenDue(t *testing.T) {
	t.Parallel()
	c := Fake(epoch)
	called := false
	c.AfterFunc(0, func() { called = true })
	if !called {
		t.Fatal("AfterFunc(0) not called synchronously")
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	t.Parallel()
	c := Fake(epoch)
	registered := make(chan struct{})
	go func() {
		c.After(time.Minute)
		close(registered)
	}()
	c.WaitForTimers(1)
	<-registered
	if got := c.PendingTimers(); got != 1 {
		t.Errorf("PendingTimers() = %d, want 1", got)
	}
}
