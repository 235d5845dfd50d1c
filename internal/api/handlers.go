// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package api provides HTTP handlers for the Projectionist application.
//
// handlers.go - Handler struct and shared dependencies.
package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/projectionist/internal/catalog"
	"github.com/tomtom215/projectionist/internal/config"
	"github.com/tomtom215/projectionist/internal/index"
	"github.com/tomtom215/projectionist/internal/middleware"
	"github.com/tomtom215/projectionist/internal/ordering"
	"github.com/tomtom215/projectionist/internal/progress"
	"github.com/tomtom215/projectionist/internal/validation"
	"github.com/tomtom215/projectionist/internal/viewsync"
	ws "github.com/tomtom215/projectionist/internal/websocket"
)

// viewLookupTimeout bounds how long a peer view lookup waits for the target
// session to report its first state.
const viewLookupTimeout = 2 * time.Second

// Handler processes HTTP requests for the catalog, sync and progress APIs.
type Handler struct {
	config     *config.Config
	categories *catalog.Store
	indexStore *index.Store
	indexer    *index.Indexer
	engine     *ordering.Engine
	sync       *viewsync.Coordinator
	registry   *viewsync.Registry
	progress   *progress.Store
	gate       *middleware.Gate
	wsHub      *ws.Hub
	wsHandler  *ws.Handler
	startTime  time.Time

	// runtime holds the mutable subset of config exposed over the API.
	runtimeMu sync.RWMutex
	runtime   runtimeSettings
}

// runtimeSettings is the safe subset of configuration that clients may read
// and change at runtime. Changes are process-local, not persisted.
type runtimeSettings struct {
	ShuffleDefault bool
	ProgressSaving bool
}

// NewHandler creates an API handler with all required dependencies.
//
// The gate may be nil when no session password is configured; the progress
// store may be a disabled store but must not be nil.
func NewHandler(
	cfg *config.Config,
	categories *catalog.Store,
	indexStore *index.Store,
	indexer *index.Indexer,
	engine *ordering.Engine,
	coordinator *viewsync.Coordinator,
	registry *viewsync.Registry,
	progressStore *progress.Store,
	gate *middleware.Gate,
	wsHub *ws.Hub,
	wsHandler *ws.Handler,
) *Handler {
	return &Handler{
		config:     cfg,
		categories: categories,
		indexStore: indexStore,
		indexer:    indexer,
		engine:     engine,
		sync:       coordinator,
		registry:   registry,
		progress:   progressStore,
		gate:       gate,
		wsHub:      wsHub,
		wsHandler:  wsHandler,
		startTime:  time.Now(),
		runtime: runtimeSettings{
			ShuffleDefault: cfg.Catalog.ShuffleDefault,
			ProgressSaving: progressStore.Enabled(),
		},
	}
}

// shuffleDefault returns the current runtime shuffle preference.
func (h *Handler) shuffleDefault() bool {
	h.runtimeMu.RLock()
	defer h.runtimeMu.RUnlock()
	return h.runtime.ShuffleDefault
}

// progressSaving reports whether position saving is currently active. It is
// false whenever the underlying store is disabled, regardless of the runtime
// toggle.
func (h *Handler) progressSaving() bool {
	if !h.progress.Enabled() {
		return false
	}
	h.runtimeMu.RLock()
	defer h.runtimeMu.RUnlock()
	return h.runtime.ProgressSaving
}

// handleDecodeError maps body decoding failures to the right error response.
func handleDecodeError(rw *ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		rw.ValidationFailed(verr)
		return
	}
	if errors.Is(err, errEmptyBody) {
		rw.BadRequest("Request body is required")
		return
	}
	rw.BadRequest("Invalid request body: " + err.Error())
}

// ServeWS upgrades the request to a WebSocket connection.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.ServeWS(w, r)
}
