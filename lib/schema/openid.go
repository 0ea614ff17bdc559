// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Identity-verification states carried in OpenID replies and pushes.
const (
	// OpenIDPending means the host needs asynchronous confirmation
	// (typically from the user) before issuing a verdict. A terminal
	// state follows as a separate pushed message.
	OpenIDPending = "pending"

	// OpenIDGranted means the request was approved; credential fields
	// are populated.
	OpenIDGranted = "granted"

	// OpenIDBlocked means the request was denied. No credential
	// fields are ever attached to a blocked message.
	OpenIDBlocked = "blocked"
)

// OpenIDCredential is an identity token issued by the host's backend.
type OpenIDCredential struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ServerName  string `json:"server_name,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// OpenIDState is the body of both the phase-1 reply to an identity
// request and the phase-2+ pushed verdicts. Pushed verdicts carry
// OriginalRequestID so the content can correlate them with the request
// that is still logically open.
type OpenIDState struct {
	State             string `json:"state"`
	OriginalRequestID string `json:"original_request_id,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	TokenType         string `json:"token_type,omitempty"`
	ServerName        string `json:"server_name,omitempty"`
	ExpiresIn         int64  `json:"expires_in,omitempty"`
}

// IdentityUpdate is one element of the Driver's verification feed: a
// state plus, for granted verdicts, the credential.
type IdentityUpdate struct {
	State      string
	Credential *OpenIDCredential
}
