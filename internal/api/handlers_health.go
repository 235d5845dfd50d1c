// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// handlers_health.go - Health and runtime configuration endpoints.

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/models"
)

// Version is the build version, set at link time.
var Version = "dev"

// HandleHealth reports server liveness and a few gauges clients display.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	rw.Success(models.HealthStatus{
		Status:        "ok",
		Version:       Version,
		Categories:    h.categories.Len(),
		ActiveClients: h.wsHub.GetClientCount(),
		SyncActive:    h.sync.Enabled(),
		Uptime:        time.Since(h.startTime).Seconds(),
	})
}

// HandleGetConfig returns the client-visible runtime settings.
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	h.runtimeMu.RLock()
	settings := h.runtime
	h.runtimeMu.RUnlock()

	rw.Success(map[string]interface{}{
		"shuffle_default":   settings.ShuffleDefault,
		"progress_saving":   settings.ProgressSaving && h.progress.Enabled(),
		"gate_required":     h.gate != nil && h.gate.Enabled(),
		"default_page_size": h.config.Catalog.DefaultPageSize,
		"max_page_size":     h.config.Catalog.MaxPageSize,
	})
}

// HandleUpdateConfig changes runtime settings for this process. Changes are
// not written back to the configuration file.
//
// Progress saving can only be toggled off and on again while the store was
// opened at startup; it cannot be enabled when no store exists.
func (h *Handler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ConfigUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		handleDecodeError(rw, err)
		return
	}

	h.runtimeMu.Lock()
	if req.ShuffleDefault != nil {
		h.runtime.ShuffleDefault = *req.ShuffleDefault
	}
	if req.ProgressSaving != nil {
		h.runtime.ProgressSaving = *req.ProgressSaving && h.progress.Enabled()
	}
	settings := h.runtime
	h.runtimeMu.Unlock()

	logging.Ctx(r.Context()).Info().
		Bool("shuffle_default", settings.ShuffleDefault).
		Bool("progress_saving", settings.ProgressSaving).
		Msg("Runtime settings updated")

	rw.Success(map[string]interface{}{
		"shuffle_default": settings.ShuffleDefault,
		"progress_saving": settings.ProgressSaving,
	})
}
