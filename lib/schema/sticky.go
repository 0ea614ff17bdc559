// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// ReadStickyOverlayRequest asks the host for the fresh sticky-overlay
// entries of one room.
type ReadStickyOverlayRequest struct {
	RoomID string `json:"room_id"`
}

// StickyEvent is one overlay entry: the most recent event recorded
// under its sticky key, with its age at read time. Staleness filtering
// happens before the entry crosses the boundary; expiry policy beyond
// that belongs to the Driver.
type StickyEvent struct {
	Key   string `json:"key"`
	Event Event  `json:"event"`
	AgeMS int64  `json:"age_ms"`
}

// ReadStickyOverlayResponse carries the fresh overlay entries the
// content is allowed to observe.
type ReadStickyOverlayResponse struct {
	Events []StickyEvent `json:"events"`
}
