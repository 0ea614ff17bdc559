// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package channel

// Protocol action names. The host engine dispatches inbound
// fromContent requests by these; the content engine dispatches inbound
// toContent requests (pushes) the same way.
const (
	// Negotiation and lifecycle.
	ActionSupportedAPIVersions = "supported_api_versions"
	ActionCapabilities         = "capabilities"
	ActionNotifyCapabilities   = "notify_capabilities"
	ActionRenegotiate          = "renegotiate"
	ActionContentLoaded        = "content_loaded"
	ActionNotifyReady          = "notify_ready"
	ActionUpdateVisibility     = "update_visibility"

	// Events and state.
	ActionSendEvent           = "send_event"
	ActionUpdateDelayedEvent  = "update_delayed_event"
	ActionSendToDevice        = "send_to_device"
	ActionReadEvents          = "read_events"
	ActionReadState           = "read_state"
	ActionUpdateState         = "update_state"
	ActionReadRelations       = "read_relations"
	ActionReadRoomAccountData = "read_room_account_data"
	ActionReadStickyOverlay   = "read_sticky_overlay"
	ActionKnownRooms          = "get_known_rooms"

	// Identity verification (phased).
	ActionGetOpenID         = "get_openid"
	ActionOpenIDCredentials = "openid_credentials"

	// Streaming credential refresh.
	ActionWatchCredentials   = "watch_credentials"
	ActionUnwatchCredentials = "unwatch_credentials"
	ActionUpdateCredentials  = "update_credentials"

	// Host services.
	ActionNavigate            = "navigate"
	ActionUserDirectorySearch = "user_directory_search"
	ActionGetMediaConfig      = "get_media_config"
	ActionUploadFile          = "upload_file"
	ActionDownloadFile        = "download_file"
)

// Protocol versions. The base versions cover the original action set;
// feature versions gate the later additions. A host advertises
// everything it implements; the content fails an action fast when the
// negotiated set lacks the action's required version.
const (
	APIVersion010 = "0.1.0"
	APIVersion020 = "0.2.0"

	FeatureDelayedEvents     = "io.alcove.delayed_events"
	FeatureCredentialStreams = "io.alcove.credential_streams"
	FeatureIdentity          = "io.alcove.identity"
	FeatureStickyOverlay     = "io.alcove.sticky_overlay"
	FeatureRelations         = "io.alcove.relations"
	FeatureUserSearch        = "io.alcove.user_search"
)

// supportedVersions is everything this implementation speaks.
var supportedVersions = []string{
	APIVersion010,
	APIVersion020,
	FeatureDelayedEvents,
	FeatureCredentialStreams,
	FeatureIdentity,
	FeatureStickyOverlay,
	FeatureRelations,
	FeatureUserSearch,
}

// SupportedVersions returns a copy of the full version set this
// implementation speaks.
func SupportedVersions() []string {
	out := make([]string, len(supportedVersions))
	copy(out, supportedVersions)
	return out
}

// requiredVersions maps version-gated actions to the version that
// introduced them. Actions absent from the map are part of the base
// protocol and always available.
var requiredVersions = map[string]string{
	ActionUpdateDelayedEvent:  FeatureDelayedEvents,
	ActionWatchCredentials:    FeatureCredentialStreams,
	ActionUnwatchCredentials:  FeatureCredentialStreams,
	ActionGetOpenID:           FeatureIdentity,
	ActionReadStickyOverlay:   FeatureStickyOverlay,
	ActionReadRelations:       FeatureRelations,
	ActionUserDirectorySearch: FeatureUserSearch,
	ActionNavigate:            APIVersion020,
	ActionGetMediaConfig:      APIVersion020,
	ActionUploadFile:          APIVersion020,
	ActionDownloadFile:        APIVersion020,
	ActionKnownRooms:          APIVersion020,
}

// RequiredVersion returns the protocol version an action needs, and
// whether the action is version-gated at all.
func RequiredVersion(action string) (string, bool) {
	version, gated := requiredVersions[action]
	return version, gated
}
