// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// CapabilitiesResponse is the content's answer to the host's
// capability request: every capability string the content wants.
type CapabilitiesResponse struct {
	Capabilities []string `json:"capabilities"`
}

// RenegotiateRequest is the content's mid-session request for
// additional capabilities. Already-granted entries are ignored by the
// host; only the never-before-granted delta is validated.
type RenegotiateRequest struct {
	Capabilities []string `json:"capabilities"`
}

// NotifyCapabilitiesRequest is the host's push telling the content
// which of its requested capabilities were approved. Sent after
// initial negotiation and after every renegotiation, even when the
// approved delta is empty.
type NotifyCapabilitiesRequest struct {
	Requested []string `json:"requested"`
	Approved  []string `json:"approved"`
}

// SupportedVersionsResponse answers the supported-protocol-versions
// query. Both sides treat the set as immutable for the session.
type SupportedVersionsResponse struct {
	SupportedVersions []string `json:"supported_versions"`
}

// UpdateVisibilityRequest is the host's push telling the content
// whether its surface is currently visible.
type UpdateVisibilityRequest struct {
	Visible bool `json:"visible"`
}
