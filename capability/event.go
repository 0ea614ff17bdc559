// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"
	"strings"
)

// namespace prefixes every structured capability string.
const namespace = "io.alcove."

// wildcardKey is the reserved any-key token. An exact key of "*"
// cannot be expressed; the token is reserved by the encoding.
const wildcardKey = "*"

// EventCapability is the parsed, read-only view of a structured event
// grant: direction, kind, event type, and the secondary-key matcher.
type EventCapability struct {
	Direction Direction
	Kind      Kind
	EventType string
	Key       KeyMatcher
}

// NewEvent builds an event capability. Returns an error for an unknown
// direction or kind, an empty event type, or an event type containing
// the reserved '#' separator.
func NewEvent(direction Direction, kind Kind, eventType string, key KeyMatcher) (EventCapability, error) {
	if direction != Send && direction != Receive {
		return EventCapability{}, fmt.Errorf("unknown direction %q", direction)
	}
	if !kind.valid() {
		return EventCapability{}, fmt.Errorf("unknown kind %q", kind)
	}
	if eventType == "" {
		return EventCapability{}, fmt.Errorf("empty event type")
	}
	if strings.ContainsRune(eventType, '#') {
		return EventCapability{}, fmt.Errorf("event type %q contains reserved '#'", eventType)
	}
	if !kind.Keyed() && key.mode != keyMatchAbsent {
		return EventCapability{}, fmt.Errorf("kind %q carries no secondary key", kind)
	}
	return EventCapability{Direction: direction, Kind: kind, EventType: eventType, Key: key}, nil
}

// Capability returns the stable string encoding, the inverse of
// ParseEvent.
func (c EventCapability) Capability() Capability {
	encoded := namespace + string(c.Direction) + "." + string(c.Kind) + ":" + c.EventType
	switch c.Key.mode {
	case keyMatchAny:
		encoded += "#" + wildcardKey
	case keyMatchExact:
		encoded += "#" + c.Key.key
	}
	return Capability(encoded)
}

// ParseEvent parses a capability string as an event grant. The second
// return is false for plain grants, timeline grants, and anything
// malformed — callers scanning a granted set simply skip those.
func ParseEvent(raw Capability) (EventCapability, bool) {
	s := string(raw)
	if !strings.HasPrefix(s, namespace) {
		return EventCapability{}, false
	}
	scope, rest, found := strings.Cut(s[len(namespace):], ":")
	if !found || rest == "" {
		return EventCapability{}, false
	}
	directionPart, kindPart, found := strings.Cut(scope, ".")
	if !found {
		return EventCapability{}, false
	}

	direction := Direction(directionPart)
	if direction != Send && direction != Receive {
		return EventCapability{}, false
	}
	kind := Kind(kindPart)
	if !kind.valid() {
		return EventCapability{}, false
	}

	eventType, keyPart, keyed := strings.Cut(rest, "#")
	if eventType == "" {
		return EventCapability{}, false
	}

	matcher := NoKey()
	if keyed {
		if !kind.Keyed() {
			return EventCapability{}, false
		}
		if keyPart == wildcardKey {
			matcher = AnyKey()
		} else {
			matcher = ExactKey(keyPart)
		}
	}

	return EventCapability{
		Direction: direction,
		Kind:      kind,
		EventType: eventType,
		Key:       matcher,
	}, true
}

// Allows reports whether this grant covers an attempted action.
func (c EventCapability) Allows(direction Direction, kind Kind, eventType, key string, hasKey bool) bool {
	if c.Direction != direction || c.Kind != kind || c.EventType != eventType {
		return false
	}
	return c.Key.Matches(kind, key, hasKey)
}

// timelinePrefix encodes room-scoped timeline grants.
const timelinePrefix = namespace + "timeline:"

// WildcardRoom is the reserved room token meaning "any known room".
const WildcardRoom = "*"

// Timeline returns the capability granting timeline access to one
// room, or to any known room when roomID is WildcardRoom.
func Timeline(roomID string) Capability {
	return Capability(timelinePrefix + roomID)
}

// TimelineCapability is the parsed view of a timeline grant.
type TimelineCapability struct {
	// Room is the granted room ID. Empty when AnyRoom is set.
	Room string

	// AnyRoom marks the wildcard grant, which covers every room the
	// host knows about at check time.
	AnyRoom bool
}

// ParseTimeline parses a capability string as a timeline grant.
func ParseTimeline(raw Capability) (TimelineCapability, bool) {
	s := string(raw)
	if !strings.HasPrefix(s, timelinePrefix) {
		return TimelineCapability{}, false
	}
	room := s[len(timelinePrefix):]
	if room == "" {
		return TimelineCapability{}, false
	}
	if room == WildcardRoom {
		return TimelineCapability{AnyRoom: true}, true
	}
	return TimelineCapability{Room: room}, true
}
