// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// maxWidgetIDLength bounds widget IDs so a hostile embedding cannot
// force unbounded identity strings through the channel.
const maxWidgetIDLength = 255

// WidgetID identifies a single embedded content instance. It is the
// sender-identity field of every protocol frame: the channel binds to
// the first widget ID it sees and drops frames from any other sender.
//
// Widget IDs are chosen by the embedder (often a UUID, but any opaque
// token works). They must be non-empty, at most 255 bytes, and free of
// whitespace and control characters.
//
// WidgetID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type WidgetID struct {
	id string
}

// ParseWidgetID validates and wraps a raw widget ID string.
func ParseWidgetID(raw string) (WidgetID, error) {
	if raw == "" {
		return WidgetID{}, fmt.Errorf("empty widget ID")
	}
	if len(raw) > maxWidgetIDLength {
		return WidgetID{}, fmt.Errorf("widget ID exceeds %d bytes", maxWidgetIDLength)
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c <= ' ' || c == 0x7f {
			return WidgetID{}, fmt.Errorf("widget ID contains whitespace or control byte at offset %d", i)
		}
	}
	return WidgetID{id: raw}, nil
}

// String returns the widget ID string.
func (w WidgetID) String() string { return w.id }

// IsZero reports whether the WidgetID is the zero value (uninitialized).
func (w WidgetID) IsZero() bool { return w.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (w WidgetID) MarshalText() ([]byte, error) {
	if w.IsZero() {
		return nil, fmt.Errorf("marshal zero WidgetID")
	}
	return []byte(w.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WidgetID) UnmarshalText(data []byte) error {
	parsed, err := ParseWidgetID(string(data))
	if err != nil {
		return fmt.Errorf("unmarshal WidgetID: %w", err)
	}
	*w = parsed
	return nil
}
