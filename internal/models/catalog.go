// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package models

// Category is a named media directory registered in the catalog.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// CategoryDetails is a Category enriched with listing information for the
// category overview endpoint.
type CategoryDetails struct {
	Category
	MediaCount int  `json:"media_count"`
	Indexing   bool `json:"indexing,omitempty"`
}

// FileEntry is one indexed file inside a category directory. It is the unit
// stored in index snapshots; Mtime is seconds since the Unix epoch.
type FileEntry struct {
	Name  string  `json:"name"`
	Size  int64   `json:"size"`
	Mtime float64 `json:"mtime"`
}

// IndexSnapshot is the persisted result of a directory scan. Timestamp is
// seconds since the Unix epoch, fractional part preserved.
type IndexSnapshot struct {
	Timestamp float64     `json:"timestamp"`
	Files     []FileEntry `json:"files"`
}

// MediaItem is one entry of a paginated listing as served to clients.
type MediaItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Pagination describes the window a listing response covers. HasMore is
// true while further pages exist in the session's current ordering.
type Pagination struct {
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
	Total    int             `json:"total"`
	HasMore  bool            `json:"hasMore"`
	Indexing *IndexingStatus `json:"indexing,omitempty"`
}

// IndexingStatus reports the state of a background index job.
// Progress stays below 100 until the job completes.
type IndexingStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Indexed  int    `json:"indexed,omitempty"`
	Total    int    `json:"total,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Background index job states.
const (
	IndexStatusRunning  = "running"
	IndexStatusComplete = "complete"
	IndexStatusError    = "error"
)

// MediaListing is the payload of the category listing endpoint.
type MediaListing struct {
	Files      []MediaItem `json:"files"`
	Pagination Pagination  `json:"pagination"`
}
