// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Credential is one streaming relay credential: a username/password
// pair valid for the listed URIs until the backend rotates it. The
// host pushes a fresh Credential each time the Driver's stream yields
// one.
type Credential struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	URIs     []string `json:"uris"`
}
