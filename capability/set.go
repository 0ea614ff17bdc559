// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import "sync"

// Set is a granted capability set. It grows monotonically: Add and
// AddAll insert, nothing removes. Safe for concurrent use — engines
// read it on every dispatch and every outbound push while negotiation
// goroutines add to it.
type Set struct {
	mu      sync.RWMutex
	order   []Capability
	members map[Capability]struct{}
}

// NewSet returns a set holding the given capabilities, deduplicated,
// in first-seen order.
func NewSet(capabilities ...Capability) *Set {
	s := &Set{members: make(map[Capability]struct{})}
	for _, c := range capabilities {
		s.Add(c)
	}
	return s
}

// Add inserts one capability. Returns false if it was already present.
func (s *Set) Add(c Capability) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[c]; exists {
		return false
	}
	s.members[c] = struct{}{}
	s.order = append(s.order, c)
	return true
}

// AddAll inserts every capability and returns the ones that were
// actually new, in input order.
func (s *Set) AddAll(capabilities []Capability) []Capability {
	var added []Capability
	for _, c := range capabilities {
		if s.Add(c) {
			added = append(added, c)
		}
	}
	return added
}

// Has reports whether the exact capability string was granted.
func (s *Set) Has(c Capability) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.members[c]
	return exists
}

// Delta returns the requested capabilities not yet in the set, in
// input order, deduplicated. This is the renegotiation delta: entries
// granted before are never re-validated.
func (s *Set) Delta(requested []Capability) []Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var delta []Capability
	seen := make(map[Capability]struct{}, len(requested))
	for _, c := range requested {
		if _, granted := s.members[c]; granted {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		delta = append(delta, c)
	}
	return delta
}

// List returns the granted capabilities in insertion order.
func (s *Set) List() []Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Capability, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of granted capabilities.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Strings returns the granted capabilities as wire strings, in
// insertion order.
func (s *Set) Strings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	for i, c := range s.order {
		out[i] = string(c)
	}
	return out
}

// AllowsEvent reports whether any granted event capability covers the
// attempt. Linear scan; all grants are additive, so the first match
// authorizes.
func (s *Set) AllowsEvent(direction Direction, kind Kind, eventType, key string, hasKey bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, raw := range s.order {
		grant, ok := ParseEvent(raw)
		if !ok {
			continue
		}
		if grant.Allows(direction, kind, eventType, key, hasKey) {
			return true
		}
	}
	return false
}

// AllowsTimeline reports whether timeline access to the room is
// granted, either by an explicit room grant or by the wildcard grant
// when the room is known to the host. isKnown is evaluated against
// the host's current room set at check time, so the wildcard never
// grants access to rooms the host has not revealed.
func (s *Set) AllowsTimeline(roomID string, isKnown bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, raw := range s.order {
		grant, ok := ParseTimeline(raw)
		if !ok {
			continue
		}
		if grant.AnyRoom {
			if isKnown {
				return true
			}
			continue
		}
		if grant.Room == roomID {
			return true
		}
	}
	return false
}

// FromStrings converts wire strings to capabilities.
func FromStrings(raw []string) []Capability {
	out := make([]Capability, len(raw))
	for i, s := range raw {
		out[i] = Capability(s)
	}
	return out
}

// Strings converts capabilities to wire strings.
func Strings(capabilities []Capability) []string {
	out := make([]string, len(capabilities))
	for i, c := range capabilities {
		out[i] = string(c)
	}
	return out
}
