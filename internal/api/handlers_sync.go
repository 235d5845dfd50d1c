// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// handlers_sync.go - Synchronized viewing control endpoints.
//
// Enabling transfers host to the caller. Updates are host-only; any session
// may disable. State changes reach connected clients through the hub, these
// endpoints exist for the initial toggle and for polling fallback.

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/models"
	"github.com/tomtom215/projectionist/internal/viewsync"
)

// HandleSyncEnable turns on synchronized viewing with the caller as host.
func (h *Handler) HandleSyncEnable(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SyncStateRequest
	if err := decodeBody(r, &req); err != nil {
		handleDecodeError(rw, err)
		return
	}
	if *req.Index < 0 {
		rw.BadRequest("index must not be negative")
		return
	}

	sessionID := logging.SessionIDFromContext(r.Context())
	state := h.sync.Enable(sessionID, models.MediaState{
		CategoryID: req.CategoryID,
		FileURL:    req.FileURL,
		Index:      *req.Index,
		Timestamp:  req.Timestamp,
	})

	logging.Ctx(r.Context()).Info().
		Str("category_id", req.CategoryID).
		Msg("Sync enabled")

	rw.Success(state)
}

// HandleSyncDisable turns off synchronized viewing. Any session may do this,
// not just the host.
func (h *Handler) HandleSyncDisable(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sessionID := logging.SessionIDFromContext(r.Context())
	h.sync.Disable(sessionID)

	logging.Ctx(r.Context()).Info().Msg("Sync disabled")

	rw.Success(map[string]bool{"active": false})
}

// HandleSyncUpdate advances the shared state. Host only.
func (h *Handler) HandleSyncUpdate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SyncStateRequest
	if err := decodeBody(r, &req); err != nil {
		handleDecodeError(rw, err)
		return
	}
	if *req.Index < 0 {
		rw.BadRequest("index must not be negative")
		return
	}

	sessionID := logging.SessionIDFromContext(r.Context())
	state, err := h.sync.Update(sessionID, models.MediaState{
		CategoryID: req.CategoryID,
		FileURL:    req.FileURL,
		Index:      *req.Index,
		Timestamp:  req.Timestamp,
	})
	switch {
	case errors.Is(err, viewsync.ErrNotHost):
		rw.Error(http.StatusForbidden, ErrCodeNotHost, "Only the host can update sync state")
		return
	case errors.Is(err, viewsync.ErrSyncNotEnabled):
		rw.Conflict(ErrCodeSyncNotEnabled, "Sync is not enabled")
		return
	case err != nil:
		rw.InternalError(err)
		return
	}

	rw.Success(state)
}

// HandleSyncStatus reports whether sync is active and whether the calling
// session is the host.
func (h *Handler) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sessionID := logging.SessionIDFromContext(r.Context())
	rw.Success(h.sync.Status(sessionID))
}

// HandleSyncState returns the current shared state, 409 when sync is off.
func (h *Handler) HandleSyncState(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	state, err := h.sync.State()
	if err != nil {
		rw.Conflict(ErrCodeSyncNotEnabled, "Sync is not enabled")
		return
	}
	rw.Success(state)
}

// HandleSessionView returns what another session is currently viewing.
//
// The lookup waits briefly for the target session to report its first state,
// covering the race where a client asks about a peer that just connected.
func (h *Handler) HandleSessionView(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	targetID := chi.URLParam(r, "sessionID")
	ctx, cancel := context.WithTimeout(r.Context(), viewLookupTimeout)
	defer cancel()

	view, err := h.registry.WaitLookup(ctx, targetID)
	if err != nil {
		rw.NotFound("Session not found")
		return
	}

	rw.Success(map[string]interface{}{
		"session_id":  view.SessionID,
		"category_id": view.State.CategoryID,
		"file_url":    view.State.FileURL,
		"index":       view.State.Index,
		"media_order": h.engine.SessionOrder(view.State.CategoryID, view.SessionID),
	})
}
