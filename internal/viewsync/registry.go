// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package viewsync

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/projectionist/internal/models"
)

// prefixLookupMax is the length below which a lookup ID is treated as a
// prefix rather than a full session ID. Session IDs are UUIDs, so anything
// shorter than this cannot be exact.
const prefixLookupMax = 16

// ErrSessionNotFound is returned when no session matches a lookup.
var ErrSessionNotFound = errors.New("viewsync: session not found")

// registryEntry pairs a reported state with its freshness.
type registryEntry struct {
	state    models.MediaState
	reported time.Time
}

// Registry tracks the current viewing state reported by each connected
// session. Entries are removed on disconnect and swept after expiry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
	expiry  time.Duration
}

// NewRegistry creates a registry whose entries expire after the given
// duration without a report.
func NewRegistry(expiry time.Duration) *Registry {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Registry{
		entries: make(map[string]*registryEntry),
		expiry:  expiry,
	}
}

// Report upserts a session's viewing state.
func (r *Registry) Report(sessionID string, state models.MediaState) {
	if sessionID == "" {
		return
	}
	state.Timestamp = now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sessionID] = &registryEntry{state: state, reported: time.Now()}
}

// Lookup finds a session's state. An exact match wins; IDs shorter than 16
// characters are then tried as a prefix, returning the lexically first
// matching session for determinism.
func (r *Registry) Lookup(id string) (models.SessionView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.entries[id]; ok {
		return models.SessionView{SessionID: id, State: entry.state}, nil
	}

	if len(id) > 0 && len(id) < prefixLookupMax {
		var matched []string
		for sessionID := range r.entries {
			if strings.HasPrefix(sessionID, id) {
				matched = append(matched, sessionID)
			}
		}
		if len(matched) > 0 {
			sort.Strings(matched)
			sessionID := matched[0]
			return models.SessionView{SessionID: sessionID, State: r.entries[sessionID].state}, nil
		}
	}

	return models.SessionView{}, ErrSessionNotFound
}

// WaitLookup polls for a session's state until ctx expires, giving a peer a
// bounded window to report before the lookup fails. Callers set the
// deadline; a few seconds is typical.
func (r *Registry) WaitLookup(ctx context.Context, id string) (models.SessionView, error) {
	for {
		if view, err := r.Lookup(id); err == nil {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return models.SessionView{}, ErrSessionNotFound
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Remove drops a session's state, typically on WebSocket disconnect.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CategoryCounts returns how many tracked sessions are viewing each
// category.
func (r *Registry) CategoryCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, entry := range r.entries {
		if entry.state.CategoryID != "" {
			counts[entry.state.CategoryID]++
		}
	}
	return counts
}

// Sweep drops entries that have not reported within the expiry window.
// Returns the number removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.expiry)
	removed := 0
	for id, entry := range r.entries {
		if entry.reported.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
