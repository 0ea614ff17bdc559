// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Event is a room event crossing the trust boundary: forwarded to the
// content, returned from reads, or carried in state pushes.
type Event struct {
	Type           string         `json:"type"`
	Sender         string         `json:"sender,omitempty"`
	EventID        string         `json:"event_id,omitempty"`
	RoomID         string         `json:"room_id,omitempty"`
	StateKey       *string        `json:"state_key,omitempty"`
	OriginServerTS int64          `json:"origin_server_ts,omitempty"`
	Content        map[string]any `json:"content"`
	Unsigned       map[string]any `json:"unsigned,omitempty"`
}

// MsgType extracts the msgtype field from the event content, if any.
// Message events use msgtype as their capability secondary key.
func (e Event) MsgType() (string, bool) {
	raw, ok := e.Content["msgtype"]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// SendEventRequest asks the host to send an event. A request carrying
// Delay or ParentDelayID (at least one) is a deferred send and needs
// the delayed-event capability in addition to the event capabilities.
type SendEventRequest struct {
	Type     string         `json:"type"`
	Content  map[string]any `json:"content"`
	StateKey *string        `json:"state_key,omitempty"`
	RoomID   string         `json:"room_id"`

	// Delay is the deferral in milliseconds. Nil for immediate sends.
	Delay *int64 `json:"delay,omitempty"`

	// ParentDelayID groups this send under an existing deferred
	// action. Nil for ungrouped sends.
	ParentDelayID *string `json:"parent_delay_id,omitempty"`
}

// Delayed reports whether the request is a deferred send.
func (r SendEventRequest) Delayed() bool {
	return r.Delay != nil || r.ParentDelayID != nil
}

// SendEventResponse acknowledges a send. Immediate sends carry
// EventID; deferred sends carry DelayID instead.
type SendEventResponse struct {
	RoomID  string `json:"room_id"`
	EventID string `json:"event_id,omitempty"`
	DelayID string `json:"delay_id,omitempty"`
}

// Operations on a deferred action handle.
const (
	DelayedActionCancel  = "cancel"
	DelayedActionRestart = "restart"
	DelayedActionFire    = "fire"
)

// UpdateDelayedEventRequest drives a previously created deferred
// action to cancel, restart, or fire. Any other Action value is
// rejected before reaching the Driver.
type UpdateDelayedEventRequest struct {
	DelayID string `json:"delay_id"`
	Action  string `json:"action"`
}

// SendToDeviceRequest asks the host to send a to-device message.
// Messages maps user ID to device ID ("*" for all devices) to message
// content.
type SendToDeviceRequest struct {
	Type      string                               `json:"type"`
	Encrypted bool                                 `json:"encrypted"`
	Messages  map[string]map[string]map[string]any `json:"messages"`
}

// ReadEventsRequest asks the host for recent room events of one type.
type ReadEventsRequest struct {
	Type    string   `json:"type"`
	MsgType *string  `json:"msgtype,omitempty"`
	RoomIDs []string `json:"room_ids,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// ReadEventsResponse carries the events the content was allowed to see.
type ReadEventsResponse struct {
	Events []Event `json:"events"`
}

// ReadStateRequest asks the host for current room state entries of one
// type.
type ReadStateRequest struct {
	Type     string   `json:"type"`
	StateKey *string  `json:"state_key,omitempty"`
	RoomIDs  []string `json:"room_ids,omitempty"`
}

// ReadStateResponse carries the matching state events.
type ReadStateResponse struct {
	Events []Event `json:"events"`
}

// UpdateStateRequest is the host's push of changed room state the
// content is entitled to observe.
type UpdateStateRequest struct {
	State []Event `json:"state"`
}

// ReadRelationsRequest asks the host for events related to a given
// event, optionally filtered by relation type and event type.
type ReadRelationsRequest struct {
	EventID   string  `json:"event_id"`
	RoomID    string  `json:"room_id"`
	RelType   *string `json:"rel_type,omitempty"`
	EventType *string `json:"event_type,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	From      string  `json:"from,omitempty"`
	Direction string  `json:"direction,omitempty"`
}

// ReadRelationsResponse carries one page of related events.
type ReadRelationsResponse struct {
	Chunk     []Event `json:"chunk"`
	NextBatch string  `json:"next_batch,omitempty"`
}

// ReadRoomAccountDataRequest asks the host for per-room account data
// entries of one type.
type ReadRoomAccountDataRequest struct {
	Type    string   `json:"type"`
	RoomIDs []string `json:"room_ids,omitempty"`
}

// ReadRoomAccountDataResponse carries the matching account data
// events.
type ReadRoomAccountDataResponse struct {
	Events []Event `json:"events"`
}

// KnownRoomsResponse lists the rooms the host is willing to reveal to
// the content. The wildcard timeline capability resolves against this
// same set on the host side.
type KnownRoomsResponse struct {
	Rooms []string `json:"rooms"`
}
