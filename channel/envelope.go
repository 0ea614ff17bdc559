// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import "encoding/json"

// Direction is the api tag stamped on every frame, naming the way the
// originating request travels across the trust boundary. A response
// always carries the same tag as its request.
type Direction string

const (
	// ToContent tags requests the host sends into the embedded
	// content.
	ToContent Direction = "toContent"

	// FromContent tags requests the embedded content sends to the
	// host.
	FromContent Direction = "fromContent"
)

// Inverse returns the opposite direction.
func (d Direction) Inverse() Direction {
	if d == ToContent {
		return FromContent
	}
	return ToContent
}

// valid reports whether d is one of the two defined tags.
func (d Direction) valid() bool { return d == ToContent || d == FromContent }

// Envelope is the wire frame. A frame without a response field is a
// Request; with one it is a Response correlated by RequestID. WidgetID
// is the sender identity the channel binds to.
type Envelope struct {
	API       Direction       `json:"api"`
	RequestID string          `json:"requestId"`
	Action    string          `json:"action"`
	WidgetID  string          `json:"widgetId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
}

// IsResponse reports whether the envelope carries a response payload.
func (e *Envelope) IsResponse() bool { return len(e.Response) > 0 }

// wellFormed reports whether the envelope has every field a frame
// must carry. Malformed frames are dropped silently.
func (e *Envelope) wellFormed() bool {
	return e.Action != "" && e.RequestID != "" && e.WidgetID != "" && e.API.valid()
}

// DecodeData unmarshals the request payload into out.
func (e *Envelope) DecodeData(out any) error {
	if len(e.Data) == 0 {
		return json.Unmarshal([]byte("{}"), out)
	}
	return json.Unmarshal(e.Data, out)
}

// DecodeResponse unmarshals the response payload into out.
func (e *Envelope) DecodeResponse(out any) error {
	if len(e.Response) == 0 {
		return json.Unmarshal([]byte("{}"), out)
	}
	return json.Unmarshal(e.Response, out)
}
