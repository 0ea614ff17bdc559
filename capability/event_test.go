// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import "testing"

func TestEventCapabilityEncodeParseRoundTrip(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		name string
		cap  EventCapability
		want Capability
	}{
		{
			"send event any msgtype",
			EventCapability{Direction: Send, Kind: KindEvent, EventType: "m.room.message", Key: AnyKey()},
			"io.alcove.send.event:m.room.message#*",
		},
		{
			"send event exact msgtype",
			EventCapability{Direction: Send, Kind: KindEvent, EventType: "m.room.message", Key: ExactKey("m.text")},
			"io.alcove.send.event:m.room.message#m.text",
		},
		{
			"receive state empty state key",
			EventCapability{Direction: Receive, Kind: KindState, EventType: "m.room.topic", Key: ExactKey("")},
			"io.alcove.receive.state:m.room.topic#",
		},
		{
			"receive state unkeyed",
			EventCapability{Direction: Receive, Kind: KindState, EventType: "m.room.topic", Key: NoKey()},
			"io.alcove.receive.state:m.room.topic",
		},
		{
			"send to-device",
			EventCapability{Direction: Send, Kind: KindToDevice, EventType: "m.call.invite", Key: NoKey()},
			"io.alcove.send.to_device:m.call.invite",
		},
		{
			"receive account data",
			EventCapability{Direction: Receive, Kind: KindAccountData, EventType: "m.fully_read", Key: NoKey()},
			"io.alcove.receive.account_data:m.fully_read",
		},
	} {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			encoded := test.cap.Capability()
			if encoded != test.want {
				t.Fatalf("Capability() = %q, want %q", encoded, test.want)
			}
			parsed, ok := ParseEvent(encoded)
			if !ok {
				t.Fatalf("ParseEvent(%q) failed", encoded)
			}
			if parsed != test.cap {
				t.Errorf("round trip = %+v, want %+v", parsed, test.cap)
			}
		})
	}
}

func TestParseEventRejectsNonEventStrings(t *testing.T) {
	t.Parallel()
	for _, raw := range []Capability{
		"always-on-screen",
		"io.alcove.timeline:!room:example.org",
		"io.alcove.sideways.event:m.room.message", // unknown direction
		"io.alcove.send.banana:m.room.message",    // unknown kind
		"io.alcove.send.event:",                   // empty type
		"io.alcove.send.event",                    // no separator
		"io.alcove.send.to_device:m.foo#key",      // key on unkeyed kind
		"other.namespace.send.event:m.x",
	} {
		if _, ok := ParseEvent(raw); ok {
			t.Errorf("ParseEvent(%q) = ok, want reject", raw)
		}
	}
}

func TestKeyMatcherRules(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		name    string
		matcher KeyMatcher
		kind    Kind
		key     string
		hasKey  bool
		want    bool
	}{
		{"any matches keyed attempt", AnyKey(), KindState, "topic", true, true},
		{"any matches unkeyed attempt on keyed kind", AnyKey(), KindEvent, "", false, true},
		{"any never matches unkeyed kind", AnyKey(), KindToDevice, "", false, false},
		{"exact matches equal key", ExactKey("m.text"), KindEvent, "m.text", true, true},
		{"exact rejects other key", ExactKey("m.text"), KindEvent, "m.image", true, false},
		{"exact rejects missing key", ExactKey("m.text"), KindEvent, "", false, false},
		{"exact empty matches empty state key", ExactKey(""), KindState, "", true, true},
		{"absent matches unkeyed attempt", NoKey(), KindEvent, "", false, true},
		{"absent rejects keyed attempt", NoKey(), KindEvent, "m.text", true, false},
	} {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := test.matcher.Matches(test.kind, test.key, test.hasKey); got != test.want {
				t.Errorf("Matches(%v, %q, %v) = %v, want %v", test.kind, test.key, test.hasKey, got, test.want)
			}
		})
	}
}

func TestTimelineParse(t *testing.T) {
	t.Parallel()
	grant, ok := ParseTimeline(Timeline("!room:example.org"))
	if !ok || grant.AnyRoom || grant.Room != "!room:example.org" {
		t.Errorf("ParseTimeline explicit = (%+v, %v)", grant, ok)
	}

	grant, ok = ParseTimeline(Timeline(WildcardRoom))
	if !ok || !grant.AnyRoom {
		t.Errorf("ParseTimeline wildcard = (%+v, %v)", grant, ok)
	}

	if _, ok := ParseTimeline("io.alcove.timeline:"); ok {
		t.Error("empty room token accepted")
	}
	if _, ok := ParseTimeline("always-on-screen"); ok {
		t.Error("plain grant parsed as timeline")
	}
}

func TestNewEventValidation(t *testing.T) {
	t.Parallel()
	if _, err := NewEvent(Send, KindEvent, "m.room.message", AnyKey()); err != nil {
		t.Errorf("valid capability rejected: %v", err)
	}
	if _, err := NewEvent("sideways", KindEvent, "m.x", NoKey()); err == nil {
		t.Error("unknown direction accepted")
	}
	if _, err := NewEvent(Send, "banana", "m.x", NoKey()); err == nil {
		t.Error("unknown kind accepted")
	}
	if _, err := NewEvent(Send, KindEvent, "", NoKey()); err == nil {
		t.Error("empty event type accepted")
	}
	if _, err := NewEvent(Send, KindEvent, "m.x#y", NoKey()); err == nil {
		t.Error("event type with '#' accepted")
	}
	if _, err := NewEvent(Send, KindToDevice, "m.x", AnyKey()); err == nil {
		t.Error("key matcher on unkeyed kind accepted")
	}
}
