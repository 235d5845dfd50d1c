// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// handlers_catalog.go - Category registry endpoints.

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/projectionist/internal/catalog"
	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/models"
)

// HandleListCategories returns all categories with their media counts.
//
// Counts come from the persisted index snapshot when one exists; a category
// that has never been listed reports zero without triggering a scan.
func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	cats := h.categories.List()
	details := make([]models.CategoryDetails, 0, len(cats))
	for _, cat := range cats {
		d := models.CategoryDetails{Category: cat}

		if snap, err := h.indexStore.Load(cat.Path); err == nil && snap != nil {
			d.MediaCount = len(snap.Files)
		}
		if status, ok := h.indexer.Status(cat.ID); ok && status.Status == models.IndexStatusRunning {
			d.Indexing = true
		}
		details = append(details, d)
	}

	rw.Success(details)
}

// HandleAddCategory registers a new media directory.
func (h *Handler) HandleAddCategory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req AddCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		handleDecodeError(rw, err)
		return
	}

	cat, err := h.categories.Add(req.Name, req.Path)
	switch {
	case errors.Is(err, catalog.ErrDuplicatePath):
		rw.Conflict(ErrCodeConflict, "A category already uses this path")
		return
	case errors.Is(err, catalog.ErrNotDirectory):
		rw.BadRequest("Path does not exist or is not a directory")
		return
	case err != nil:
		rw.InternalError(err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("category_id", cat.ID).
		Str("name", cat.Name).
		Msg("Category added")

	rw.Created(cat)
}

// HandleDeleteCategory removes a category from the registry. Media files on
// disk are never touched.
func (h *Handler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	categoryID := chi.URLParam(r, "categoryID")
	if err := h.categories.Delete(categoryID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			rw.NotFound("Category not found")
			return
		}
		rw.InternalError(err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("category_id", categoryID).
		Msg("Category deleted")

	rw.Success(map[string]string{"id": categoryID})
}

// HandleIndexStatus reports the state of a category's background index job.
func (h *Handler) HandleIndexStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	categoryID := chi.URLParam(r, "categoryID")
	if _, err := h.categories.Get(categoryID); err != nil {
		rw.NotFound("Category not found")
		return
	}

	status, ok := h.indexer.Status(categoryID)
	if !ok {
		status = models.IndexingStatus{
			Status:   models.IndexStatusComplete,
			Progress: 100,
		}
	}
	rw.Success(status)
}
