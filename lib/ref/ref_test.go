// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"testing"
)

func TestParseRoomID(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", "!abc123:example.org", false},
		{"empty", "", true},
		{"missing sigil", "abc123:example.org", true},
		{"missing server", "!abc123", true},
		{"empty local part", "!:example.org", true},
		{"empty server", "!abc123:", true},
	} {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			parsed, err := ParseRoomID(test.raw)
			if test.wantErr {
				if err == nil {
					t.Fatalf("ParseRoomID(%q) = %v, want error", test.raw, parsed)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoomID(%q): %v", test.raw, err)
			}
			if parsed.String() != test.raw {
				t.Errorf("String() = %q, want %q", parsed.String(), test.raw)
			}
			if parsed.IsZero() {
				t.Error("IsZero() = true for valid room ID")
			}
		})
	}
}

func TestRoomIDJSONRoundTrip(t *testing.T) {
	t.Parallel()
	original, err := ParseRoomID("!room:example.org")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"!room:example.org"` {
		t.Errorf("marshal = %s", data)
	}
	var decoded RoomID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %v, want %v", decoded, original)
	}
}

func TestParseWidgetID(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid opaque", "widget-1", false},
		{"valid uuid", "27d29ad6-3b42-4a27-9f39-ad3db0d307e1", false},
		{"empty", "", true},
		{"embedded space", "widget 1", true},
		{"control byte", "widget\x01", true},
	} {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseWidgetID(test.raw)
			if (err != nil) != test.wantErr {
				t.Errorf("ParseWidgetID(%q) error = %v, wantErr = %v", test.raw, err, test.wantErr)
			}
		})
	}
}

func TestParseWidgetIDLengthLimit(t *testing.T) {
	t.Parallel()
	long := make([]byte, maxWidgetIDLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := ParseWidgetID(string(long)); err == nil {
		t.Error("expected error for over-long widget ID")
	}
	if _, err := ParseWidgetID(string(long[:maxWidgetIDLength])); err != nil {
		t.Errorf("widget ID at limit rejected: %v", err)
	}
}

func TestParseUserID(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", "@alice:example.org", false},
		{"empty", "", true},
		{"wrong sigil", "!alice:example.org", true},
		{"missing server", "@alice", true},
		{"empty server", "@alice:", true},
	} {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseUserID(test.raw)
			if (err != nil) != test.wantErr {
				t.Errorf("ParseUserID(%q) error = %v, wantErr = %v", test.raw, err, test.wantErr)
			}
		})
	}
}

func TestMarshalZeroValuesRejected(t *testing.T) {
	t.Parallel()
	if _, err := json.Marshal(RoomID{}); err == nil {
		t.Error("marshal of zero RoomID should fail")
	}
	if _, err := json.Marshal(WidgetID{}); err == nil {
		t.Error("marshal of zero WidgetID should fail")
	}
	if _, err := json.Marshal(UserID{}); err == nil {
		t.Error("marshal of zero UserID should fail")
	}
}
