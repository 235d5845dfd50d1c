// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package models

// MediaState identifies what a session is currently viewing. Timestamp is
// seconds since the Unix epoch and is always assigned by the server.
type MediaState struct {
	CategoryID string  `json:"category_id"`
	FileURL    string  `json:"file_url"`
	Index      int     `json:"index"`
	Timestamp  float64 `json:"timestamp"`
}

// SyncStatus answers "is sync on, and am I driving" for one session.
type SyncStatus struct {
	Active bool `json:"active"`
	IsHost bool `json:"is_host"`
}

// SessionView is the peer-view result for a session lookup: the session's
// reported viewing state plus the ID the state was found under.
type SessionView struct {
	SessionID string     `json:"session_id"`
	State     MediaState `json:"state"`
}

// ChatMessage is a chat room message relayed between clients. Text is
// limited to 500 characters at the transport boundary.
type ChatMessage struct {
	SessionID string  `json:"session_id"`
	Username  string  `json:"username,omitempty"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}
