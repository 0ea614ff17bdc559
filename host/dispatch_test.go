// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package host_test

import (
	"testing"
	"time"

	"github.com/alcove-foundation/alcove/capability"
	"github.com/alcove-foundation/alcove/channel"
	"github.com/alcove-foundation/alcove/host"
	"github.com/alcove-foundation/alcove/lib/schema"
	"github.com/alcove-foundation/alcove/lib/testutil"
)

// readyHarness builds an engine already negotiated to Ready with the
// given grants. The driver approves everything requested.
func readyHarness(t *testing.T, driver *fakeDriver, grants ...capability.Capability) *harness {
	t.Helper()
	driver.approve = grants
	h := newHarness(t, driver, host.Options{})
	desired := make([]string, len(grants))
	for i, c := range grants {
		desired[i] = c.String()
	}
	h.driveToReady(desired)
	return h
}

func sendMessageCapability(t *testing.T) capability.Capability {
	t.Helper()
	c, err := capability.NewEvent(
		capability.Send, capability.KindEvent, "m.room.message", capability.AnyKey())
	if err != nil {
		t.Fatalf("build capability: %v", err)
	}
	return c.Capability()
}

func TestSendEventWithoutTimelineCapability(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	h := readyHarness(t, driver, sendMessageCapability(t))

	reply := h.request(channel.ActionSendEvent, schema.SendEventRequest{
		Type:    "m.room.message",
		RoomID:  "!r:example.org",
		Content: map[string]any{"msgtype": "m.text", "body": "hi"},
	})
	h.requireError(reply, "Unable to access room timeline: !r:example.org")
	if len(driver.sendCalls) != 0 {
		t.Error("driver send method invoked despite missing timeline capability")
	}
}

func TestSendEventWithoutEventCapability(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	h := readyHarness(t, driver, capability.Timeline("!r:example.org"))

	reply := h.request(channel.ActionSendEvent, schema.SendEventRequest{
		Type:    "m.room.message",
		RoomID:  "!r:example.org",
		Content: map[string]any{"msgtype": "m.text", "body": "hi"},
	})
	h.requireError(reply, "Missing capability")
	if len(driver.sendCalls) != 0 {
		t.Error("driver send method invoked despite missing event capability")
	}
}

func TestSendEventInvokesDriver(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	h := readyHarness(t, driver,
		sendMessageCapability(t), capability.Timeline("!r:example.org"))

	reply := h.request(channel.ActionSendEvent, schema.SendEventRequest{
		Type:    "m.room.message",
		RoomID:  "!r:example.org",
		Content: map[string]any{"msgtype": "m.text", "body": "hi"},
	})
	h.requireSuccess(reply)

	call := testutil.RequireReceive(t, driver.sendCalls, time.Second, "driver call")
	if call.eventType != "m.room.message" || call.roomID != "!r:example.org" || call.stateKey != nil {
		t.Errorf("driver call = %+v", call)
	}
	var response schema.SendEventResponse
	if err := reply.DecodeResponse(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.EventID != "$sent" || response.RoomID != "!r:example.org" {
		t.Errorf("response = %+v", response)
	}
}

func TestDelayedSendRequiresDistinctCapability(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	h := readyHarness(t, driver,
		sendMessageCapability(t), capability.Timeline("!r:example.org"))

	delay := int64(5000)
	body := schema.SendEventRequest{
		Type:    "m.room.message",
		RoomID:  "!r:example.org",
		Content: map[string]any{"msgtype": "m.text", "body": "later"},
		Delay:   &delay,
	}

	reply := h.request(channel.ActionSendEvent, body)
	h.requireError(reply, "Missing capability")
	if len(driver.delayedCalls) != 0 {
		t.Fatal("driver deferred-send method invoked despite missing capability")
	}
}

func TestDelayedSendWithCapability(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	h := readyHarness(t, driver,
		sendMessageCapability(t),
		capability.Timeline("!r:example.org"),
		capability.SendDelayedEvent)

	delay := int64(5000)
	reply := h.request(channel.ActionSendEvent, schema.SendEventRequest{
		Type:    "m.room.message",
		RoomID:  "!r:example.org",
		Content: map[string]any{"msgtype": "m.text", "body": "later"},
		Delay:   &delay,
	})
	h.requireSuccess(reply)

	call := testutil.RequireReceive(t, driver.delayedCalls, time.Second, "deferred driver call")
	if call.delay == nil || *call.delay != 5000 {
		t.Errorf("delay = %v, want 5000", call.delay)
	}
	if call.parentDelayID != nil {
		t.Errorf("parentDelayID = %v, want nil", call.parentDelayID)
	}
	if call.eventType != "m.room.message" || call.roomID != "!r:example.org" || call.stateKey != nil {
		t.Errorf("driver call = %+v", call.sendCall)
	}

	var response map[string]any
	if err := reply.DecodeResponse(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response["room_id"] != "!r:example.org" || response["delay_id"] != "delay-1" {
		t.Errorf("response = %v, want room_id and delay_id", response)
	}
	if _, hasEventID := response["event_id"]; hasEventID {
		t.Error("deferred send response should not carry event_id")
	}
}

func TestUpdateDelayedEventValidatesOperation(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	h := readyHarness(t, driver, capability.SendDelayedEvent)

	reply := h.request(channel.ActionUpdateDelayedEvent, schema.UpdateDelayedEventRequest{
		DelayID: "delay-1",
		Action:  "pause",
	})
	h.requireError(reply, "Invalid request - unsupported delayed event action: pause")
	if len(driver.delayedOps) != 0 {
		t.Fatal("driver invoked for invalid operation")
	}

	reply = h.request(channel.ActionUpdateDelayedEvent, schema.UpdateDelayedEventRequest{
		DelayID: "delay-1",
		Action:  schema.DelayedActionFire,
	})
	h.requireSuccess(reply)
	op := testutil.RequireReceive(t, driver.delayedOps, time.Second, "driver op")
	if op != [2]string{"delay-1", "fire"} {
		t.Errorf("driver op = %v", op)
	}
}

func TestWildcardTimelineResolvesAgainstKnownRooms(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	driver.rooms = []string{"!known:example.org"}
	h := readyHarness(t, driver,
		sendMessageCapability(t),
		capability.Timeline(capability.WildcardRoom))

	reply := h.request(channel.ActionSendEvent, schema.SendEventRequest{
		Type:    "m.room.message",
		RoomID:  "!known:example.org",
		Content: map[string]any{"msgtype": "m.text", "body": "hi"},
	})
	h.requireSuccess(reply)
	testutil.RequireReceive(t, driver.sendCalls, time.Second, "driver call")

	reply = h.request(channel.ActionSendEvent, schema.SendEventRequest{
		Type:    "m.room.message",
		RoomID:  "!hidden:example.org",
		Content: map[string]any{"msgtype": "m.text", "body": "hi"},
	})
	h.requireError(reply, "Unable to access room timeline: !hidden:example.org")
}

func TestDriverErrorIsTranslated(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	driver.sendErr = host.ErrNotImplemented
	driver.detail = map[string]any{"code": "M_LIMIT_EXCEEDED"}
	h := readyHarness(t, driver,
		sendMessageCapability(t), capability.Timeline("!r:example.org"))

	reply := h.request(channel.ActionSendEvent, schema.SendEventRequest{
		Type:    "m.room.message",
		RoomID:  "!r:example.org",
		Content: map[string]any{"msgtype": "m.text", "body": "hi"},
	})
	remote, isError := channel.ParseErrorResponse(reply.Response)
	if !isError {
		t.Fatalf("reply = %s, want error", reply.Response)
	}
	if remote.Message != "Failed to send event" {
		t.Errorf("message = %q, want fixed context string", remote.Message)
	}
	if remote.Detail["code"] != "M_LIMIT_EXCEEDED" {
		t.Errorf("detail = %v, want driver-extracted detail", remote.Detail)
	}
}

func TestUnknownActionGetsErrorReply(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	h := readyHarness(t, driver)

	reply := h.request("definitely_not_an_action", struct{}{})
	h.requireError(reply, "Unknown action: definitely_not_an_action")
}

func TestSendEventValidation(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	h := readyHarness(t, driver,
		sendMessageCapability(t), capability.Timeline("!r:example.org"))

	for _, tc := range []struct {
		name    string
		body    schema.SendEventRequest
		message string
	}{
		{
			name:    "missing type",
			body:    schema.SendEventRequest{RoomID: "!r:example.org", Content: map[string]any{}},
			message: "Invalid request - missing event type",
		},
		{
			name:    "missing room",
			body:    schema.SendEventRequest{Type: "m.room.message", Content: map[string]any{}},
			message: "Invalid request - missing room ID",
		},
		{
			name: "malformed room",
			body: schema.SendEventRequest{
				Type: "m.room.message", RoomID: "not-a-room", Content: map[string]any{},
			},
			message: "Invalid request - malformed room ID: not-a-room",
		},
	} {
		reply := h.request(channel.ActionSendEvent, tc.body)
		remote, isError := channel.ParseErrorResponse(reply.Response)
		if !isError {
			t.Fatalf("%s: reply = %s, want error", tc.name, reply.Response)
		}
		if remote.Message != tc.message {
			t.Errorf("%s: message = %q, want %q", tc.name, remote.Message, tc.message)
		}
	}
	if len(driver.sendCalls) != 0 {
		t.Error("driver invoked for invalid requests")
	}
}

func TestSendToDeviceRejectsMalformedTarget(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	h := readyHarness(t, driver)

	reply := h.request(channel.ActionSendToDevice, schema.SendToDeviceRequest{
		Type: "m.new_device",
		Messages: map[string]map[string]map[string]any{
			"not-a-user": {"*": {"body": "hi"}},
		},
	})
	h.requireError(reply, "Invalid request - malformed target user ID: not-a-user")
}

func TestKnownRoomsRequiresCapability(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	driver.rooms = []string{"!a:example.org", "!b:example.org"}
	h := readyHarness(t, driver)

	reply := h.request(channel.ActionKnownRooms, struct{}{})
	h.requireError(reply, "Missing capability")
}

func TestKnownRoomsListsDriverRooms(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	driver.rooms = []string{"!a:example.org", "!b:example.org"}
	h := readyHarness(t, driver, capability.KnownRooms)

	reply := h.request(channel.ActionKnownRooms, struct{}{})
	var response schema.KnownRoomsResponse
	if err := reply.DecodeResponse(&response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(response.Rooms) != 2 {
		t.Errorf("rooms = %v", response.Rooms)
	}
}

func TestReadStickyOverlayFiltersUnauthorizedTypes(t *testing.T) {
	t.Parallel()
	driver := newFakeDriver()
	receiveBeacon, err := capability.NewEvent(
		capability.Receive, capability.KindEvent, "org.example.beacon", capability.AnyKey())
	if err != nil {
		t.Fatalf("build capability: %v", err)
	}
	h := readyHarness(t, driver,
		receiveBeacon.Capability(), capability.Timeline("!r:example.org"))

	h.engine.Overlay().Record("!r:example.org", "beacon-a", schema.Event{
		Type:    "org.example.beacon",
		RoomID:  "!r:example.org",
		Content: map[string]any{},
	})
	h.engine.Overlay().Record("!r:example.org", "secret", schema.Event{
		Type:    "org.example.secret",
		RoomID:  "!r:example.org",
		Content: map[string]any{},
	})

	reply := h.request(channel.ActionReadStickyOverlay, schema.ReadStickyOverlayRequest{
		RoomID: "!r:example.org",
	})
	var response schema.ReadStickyOverlayResponse
	if err := reply.DecodeResponse(&response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(response.Events) != 1 || response.Events[0].Key != "beacon-a" {
		t.Errorf("overlay entries = %+v, want only the authorized beacon", response.Events)
	}
}
