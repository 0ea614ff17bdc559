// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package capability

// Capability is a single named permission. Plain grants are opaque
// strings; event and timeline grants use the structured encodings
// parsed by ParseEvent and ParseTimeline.
type Capability string

// String returns the capability's wire string.
func (c Capability) String() string { return string(c) }

// Plain grants understood by the host engine.
const (
	// AlwaysOnScreen lets the content ask to stay visible while other
	// surfaces change.
	AlwaysOnScreen Capability = "always-on-screen"

	// SendDelayedEvent gates deferred sends and the
	// cancel/restart/fire lifecycle. Distinct from the per-type send
	// capabilities, which a deferred send also needs.
	SendDelayedEvent Capability = "send-delayed-event"

	// StreamCredentials gates the streaming credential watch.
	StreamCredentials Capability = "stream-credentials"

	// Navigate lets the content steer the host UI to a permalink.
	Navigate Capability = "navigate"

	// SearchUsers gates user directory searches.
	SearchUsers Capability = "user-directory-search"

	// MediaConfig gates reading the host's media limits.
	MediaConfig Capability = "media-config"

	// UploadFile and DownloadFile gate media transfers.
	UploadFile   Capability = "upload-file"
	DownloadFile Capability = "download-file"

	// KnownRooms lets the content list the rooms the host reveals.
	KnownRooms Capability = "known-rooms"
)

// Direction says which way an event capability points across the
// trust boundary.
type Direction string

const (
	// Send covers attempts by the content to emit events through the
	// host.
	Send Direction = "send"

	// Receive covers events the host forwards to the content.
	Receive Direction = "receive"
)

// Kind is the event family an event capability covers.
type Kind string

const (
	// KindEvent covers timeline (message) events. Secondary key:
	// msgtype.
	KindEvent Kind = "event"

	// KindState covers state events. Secondary key: state key.
	KindState Kind = "state"

	// KindToDevice covers to-device messages. Unkeyed.
	KindToDevice Kind = "to_device"

	// KindAccountData covers per-room account data. Unkeyed.
	KindAccountData Kind = "account_data"
)

// Keyed reports whether the kind carries a secondary key.
func (k Kind) Keyed() bool { return k == KindEvent || k == KindState }

// valid reports whether k is one of the defined kinds.
func (k Kind) valid() bool {
	switch k {
	case KindEvent, KindState, KindToDevice, KindAccountData:
		return true
	}
	return false
}

// keyMatchMode is the three-way secondary-key matcher: absent (only
// unkeyed events), any, or one exact key.
type keyMatchMode int

const (
	keyMatchAbsent keyMatchMode = iota
	keyMatchAny
	keyMatchExact
)

// KeyMatcher decides whether a granted capability covers an attempt's
// secondary key. Construct with NoKey, AnyKey, or ExactKey.
type KeyMatcher struct {
	mode keyMatchMode
	key  string
}

// NoKey matches only attempts without a secondary key.
func NoKey() KeyMatcher { return KeyMatcher{mode: keyMatchAbsent} }

// AnyKey matches any attempt, keyed or not, on kinds that permit keys.
func AnyKey() KeyMatcher { return KeyMatcher{mode: keyMatchAny} }

// ExactKey matches attempts whose secondary key equals key. The empty
// string is a legal exact key (the common state key).
func ExactKey(key string) KeyMatcher { return KeyMatcher{mode: keyMatchExact, key: key} }

// IsAny reports whether the matcher is the wildcard.
func (m KeyMatcher) IsAny() bool { return m.mode == keyMatchAny }

// Matches applies the three-way rule for an attempt on the given kind.
func (m KeyMatcher) Matches(kind Kind, key string, hasKey bool) bool {
	switch m.mode {
	case keyMatchAny:
		return kind.Keyed()
	case keyMatchExact:
		return hasKey && key == m.key
	default:
		return !hasKey
	}
}
