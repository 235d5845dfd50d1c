// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// router.go - Route table and middleware stacks.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/projectionist/internal/middleware"
)

// NewRouter builds the full route table.
//
// Middleware order: request ID and session cookie run first so every later
// layer sees them in the request context. The gate wraps everything except
// the gate endpoint itself, health and metrics.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Session)

	if len(h.config.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.Security.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(middleware.Compression)

	// Unauthenticated: probes, metrics scrapes and the gate itself.
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/v1/health", h.HandleHealth)
	r.Post("/api/v1/auth/gate", h.HandleGate)

	r.Group(func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		if !h.config.Security.RateLimitDisabled {
			r.Use(httprate.Limit(
				h.config.Security.RateLimitReqs,
				h.config.Security.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}
		if h.gate != nil {
			r.Use(h.gate.Middleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.HandleListCategories)
				r.Post("/", h.HandleAddCategory)
				r.Delete("/{categoryID}", h.HandleDeleteCategory)
				r.Get("/{categoryID}/media", h.HandleListMedia)
				r.Get("/{categoryID}/index", h.HandleIndexStatus)
			})

			r.Route("/sync", func(r chi.Router) {
				r.Post("/enable", h.HandleSyncEnable)
				r.Post("/disable", h.HandleSyncDisable)
				r.Post("/update", h.HandleSyncUpdate)
				r.Get("/status", h.HandleSyncStatus)
				r.Get("/state", h.HandleSyncState)
			})

			r.Get("/sessions/{sessionID}/view", h.HandleSessionView)

			r.Route("/progress", func(r chi.Router) {
				r.Get("/{categoryID}", h.HandleGetProgress)
				r.Post("/{categoryID}", h.HandleSaveProgress)
			})

			r.Get("/config", h.HandleGetConfig)
			r.Put("/config", h.HandleUpdateConfig)
		})

	})

	// Media streaming and the WebSocket upgrade sit outside the rate
	// limiter: an image grid fans out dozens of requests at once.
	r.Group(func(r chi.Router) {
		if h.gate != nil {
			r.Use(h.gate.Middleware)
		}
		r.Get("/media/{categoryID}/*", h.HandleServeMedia)
		r.Get("/ws", h.ServeWS)
	})

	return r
}
