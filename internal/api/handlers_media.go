// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// handlers_media.go - Paginated listings and media file serving.

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/projectionist/internal/catalog"
	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/mediatype"
	"github.com/tomtom215/projectionist/internal/ordering"
)

// HandleListMedia serves one page of a category's media in the session's
// traversal order.
//
// When synchronized viewing is active for the requested category, the shared
// host order replaces the per-session order so every participant pages
// through the same sequence.
func (h *Handler) HandleListMedia(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	cat, err := h.categories.Get(chi.URLParam(r, "categoryID"))
	if err != nil {
		rw.NotFound("Category not found")
		return
	}

	params, err := parseListMediaParams(r, h.config.Catalog.DefaultPageSize, h.config.Catalog.MaxPageSize)
	if err != nil {
		handleDecodeError(rw, err)
		return
	}

	req := ordering.Request{
		Category:     cat,
		SessionID:    logging.SessionIDFromContext(r.Context()),
		Page:         params.Page,
		Limit:        params.Limit,
		ForceRefresh: params.ForceRefresh,
	}

	shuffle := h.shuffleDefault()
	if params.Shuffle != nil {
		shuffle = *params.Shuffle
	}

	if shuffle {
		req.Mode = ordering.ModePersonalShuffle
	} else {
		req.Mode = ordering.ModeSorted
	}
	if h.sync.Enabled() {
		if shared, ok := h.sync.SharedOrder(cat.ID); ok {
			req.Mode = ordering.ModeSyncShared
			req.SharedOrder = shared
		}
	}

	listing, cached, err := h.engine.List(r.Context(), req)
	if err != nil {
		rw.InternalError(err)
		return
	}
	if cached {
		rw.MarkCached()
	}
	rw.Success(listing)
}

// HandleServeMedia streams one media file from a category directory.
//
// The filename is resolved against the category root with traversal and
// symlink escapes rejected. http.ServeFile provides Range support, which
// video playback depends on.
func (h *Handler) HandleServeMedia(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryID")
	filename := chi.URLParam(r, "*")

	path, err := h.categories.ResolveMediaPath(categoryID, filename)
	if err != nil {
		rw := NewResponseWriter(w, r)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			rw.NotFound("File not found")
		case errors.Is(err, catalog.ErrInvalidFilename):
			rw.BadRequest("Invalid filename")
		default:
			rw.InternalError(err)
		}
		return
	}

	if mime := mediatype.MIME(filename); mime != "" {
		w.Header().Set("Content-Type", mime)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}
