// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// NavigateRequest asks the host to navigate its own UI to a permalink.
type NavigateRequest struct {
	URI string `json:"uri"`
}

// UserDirectorySearchRequest asks the host to search its user
// directory.
type UserDirectorySearchRequest struct {
	SearchTerm string `json:"search_term"`
	Limit      *int   `json:"limit,omitempty"`
}

// UserProfile is one user directory result.
type UserProfile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"displayname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// UserDirectorySearchResponse carries directory results. Limited is
// true when the backend truncated the result set.
type UserDirectorySearchResponse struct {
	Limited bool          `json:"limited"`
	Results []UserProfile `json:"results"`
}

// MediaConfig describes the host's media limits.
type MediaConfig struct {
	UploadSize int64 `json:"upload_size,omitempty"`
}

// UploadFileRequest carries a base64-encoded file for the host to
// store.
type UploadFileRequest struct {
	File        string `json:"file"`
	ContentType string `json:"content_type,omitempty"`
}

// UploadFileResponse returns the stored file's content URI.
type UploadFileResponse struct {
	ContentURI string `json:"content_uri"`
}

// DownloadFileRequest asks the host to fetch a stored file.
type DownloadFileRequest struct {
	ContentURI string `json:"content_uri"`
}

// DownloadFileResponse carries the base64-encoded file body.
type DownloadFileResponse struct {
	File string `json:"file"`
}
