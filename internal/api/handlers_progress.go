// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// handlers_progress.go - Saved playback position endpoints.

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/projectionist/internal/progress"
)

// HandleGetProgress returns the saved position for a category.
func (h *Handler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.progressSaving() {
		rw.Conflict(ErrCodeProgressOff, "Progress saving is disabled")
		return
	}

	categoryID := chi.URLParam(r, "categoryID")
	if _, err := h.categories.Get(categoryID); err != nil {
		rw.NotFound("Category not found")
		return
	}

	pos, err := h.progress.Get(categoryID)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			rw.NotFound("No saved position for this category")
			return
		}
		rw.InternalError(err)
		return
	}
	rw.Success(pos)
}

// HandleSaveProgress stores the current position for a category.
func (h *Handler) HandleSaveProgress(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.progressSaving() {
		rw.Conflict(ErrCodeProgressOff, "Progress saving is disabled")
		return
	}

	categoryID := chi.URLParam(r, "categoryID")
	if _, err := h.categories.Get(categoryID); err != nil {
		rw.NotFound("Category not found")
		return
	}

	var req ProgressSaveRequest
	if err := decodeBody(r, &req); err != nil {
		handleDecodeError(rw, err)
		return
	}
	if *req.Index < 0 {
		rw.BadRequest("index must not be negative")
		return
	}

	if err := h.progress.Save(categoryID, *req.Index); err != nil {
		rw.InternalError(err)
		return
	}
	rw.Success(map[string]interface{}{
		"category_id": categoryID,
		"index":       *req.Index,
	})
}
