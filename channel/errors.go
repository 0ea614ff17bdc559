// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel transport errors. Callers distinguish them with errors.Is.
var (
	// ErrNotStarted rejects sends on a channel that has not started.
	ErrNotStarted = errors.New("channel: not started")

	// ErrNoPeer rejects sends while no peer identity is bound yet.
	ErrNoPeer = errors.New("channel: no bound peer identity")

	// ErrStopped settles every pending request when the channel
	// stops, and rejects work submitted afterwards.
	ErrStopped = errors.New("channel: transport stopped")

	// ErrTimeout settles a pending request whose response never
	// arrived.
	ErrTimeout = errors.New("channel: request timed out")
)

// RemoteError is a structured error response from the peer: the
// mandatory message plus any extra detail fields the peer attached.
// Callers can use errors.As to extract it:
//
//	var remote *channel.RemoteError
//	if errors.As(err, &remote) { ... remote.Detail ... }
type RemoteError struct {
	Message string
	Detail  map[string]any
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("channel: remote error: %s", e.Message)
}

// MarshalErrorResponse builds the wire error payload
// {"error":{"message":..., ...detail}}. Detail fields never override
// the message.
func MarshalErrorResponse(message string, detail map[string]any) (json.RawMessage, error) {
	body := make(map[string]any, len(detail)+1)
	for key, value := range detail {
		body[key] = value
	}
	body["message"] = message
	payload, err := json.Marshal(map[string]any{"error": body})
	if err != nil {
		return nil, fmt.Errorf("channel: marshal error response: %w", err)
	}
	return payload, nil
}

// ParseErrorResponse reports whether a response payload is shaped as
// an error, and if so returns it as a RemoteError. Any present
// non-null error field marks an error: the object shape yields the
// message and detail, a bare string becomes the message, and any
// other shape an error with an empty message.
func ParseErrorResponse(response json.RawMessage) (*RemoteError, bool) {
	if len(response) == 0 {
		return nil, false
	}
	var shape struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(response, &shape); err != nil {
		return nil, false
	}
	if len(shape.Error) == 0 || string(shape.Error) == "null" {
		return nil, false
	}

	var body map[string]any
	if err := json.Unmarshal(shape.Error, &body); err != nil {
		var text string
		if err := json.Unmarshal(shape.Error, &text); err == nil {
			return &RemoteError{Message: text}, true
		}
		return &RemoteError{}, true
	}

	remote := &RemoteError{}
	if message, ok := body["message"].(string); ok {
		remote.Message = message
	}
	for key, value := range body {
		if key == "message" {
			continue
		}
		if remote.Detail == nil {
			remote.Detail = make(map[string]any)
		}
		remote.Detail[key] = value
	}
	return remote, true
}
