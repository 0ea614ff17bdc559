// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"sync"
	"time"

	"github.com/alcove-foundation/alcove/lib/clock"
	"github.com/alcove-foundation/alcove/lib/schema"
)

// StickyOverlay holds per-room ephemeral event state: for each sticky
// key, the most recent matching event and when it was recorded. It is
// pure data with clock-based staleness queries; expiry policy beyond
// the freshness window belongs to the Driver.
type StickyOverlay struct {
	clock     clock.Clock
	freshness time.Duration

	mu    sync.Mutex
	rooms map[string]map[string]stickyEntry
}

type stickyEntry struct {
	event      schema.Event
	recordedAt time.Time
}

// NewStickyOverlay builds an overlay whose entries count as fresh for
// the given duration after recording.
func NewStickyOverlay(clk clock.Clock, freshness time.Duration) *StickyOverlay {
	return &StickyOverlay{
		clock:     clk,
		freshness: freshness,
		rooms:     make(map[string]map[string]stickyEntry),
	}
}

// Record stores the event as the current entry for its sticky key in
// its room, replacing any previous entry under the same key and
// restarting that key's freshness window.
func (o *StickyOverlay) Record(roomID, key string, event schema.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	room := o.rooms[roomID]
	if room == nil {
		room = make(map[string]stickyEntry)
		o.rooms[roomID] = room
	}
	room[key] = stickyEntry{event: event, recordedAt: o.clock.Now()}
}

// Fresh returns the room's entries still inside the freshness window,
// each with its age at query time. Stale entries are removed as a side
// effect.
func (o *StickyOverlay) Fresh(roomID string) []schema.StickyEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	room := o.rooms[roomID]
	if len(room) == 0 {
		return nil
	}

	now := o.clock.Now()
	out := make([]schema.StickyEvent, 0, len(room))
	for key, entry := range room {
		age := now.Sub(entry.recordedAt)
		if age > o.freshness {
			delete(room, key)
			continue
		}
		out = append(out, schema.StickyEvent{
			Key:   key,
			Event: entry.event,
			AgeMS: age.Milliseconds(),
		})
	}
	if len(room) == 0 {
		delete(o.rooms, roomID)
	}
	return out
}

// Len reports the number of recorded entries across all rooms,
// including entries that have gone stale but not yet been swept.
func (o *StickyOverlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	total := 0
	for _, room := range o.rooms {
		total += len(room)
	}
	return total
}
