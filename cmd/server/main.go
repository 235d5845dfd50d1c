// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package main is the entry point for the Projectionist server.
//
// Projectionist serves local media directories as swipeable categories and
// lets a host synchronize what every connected viewer sees. Startup order:
//
//  1. Configuration: Koanf v2 layered sources (env > config file > defaults)
//  2. Category registry: JSON file, corrupt files backed up and reset
//  3. Progress store: BadgerDB, only when progress saving is enabled
//  4. Catalog: index store, background indexer, ordering engine
//  5. Sync: coordinator, session view registry, WebSocket hub
//  6. HTTP server: chi route table with the optional password gate
//
// Long-running components run under a suture supervisor tree; see the
// supervisor package for the layer layout. SIGINT and SIGTERM trigger a
// graceful shutdown bounded by the tree's shutdown timeout.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/projectionist/internal/api"
	"github.com/tomtom215/projectionist/internal/catalog"
	"github.com/tomtom215/projectionist/internal/config"
	"github.com/tomtom215/projectionist/internal/index"
	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/middleware"
	"github.com/tomtom215/projectionist/internal/ordering"
	"github.com/tomtom215/projectionist/internal/progress"
	"github.com/tomtom215/projectionist/internal/supervisor"
	"github.com/tomtom215/projectionist/internal/supervisor/services"
	"github.com/tomtom215/projectionist/internal/viewsync"
	ws "github.com/tomtom215/projectionist/internal/websocket"
)

// sweepInterval is how often idle ordering and session view state expires.
const sweepInterval = 5 * time.Minute

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("categories_file", cfg.Catalog.CategoriesFile).
		Bool("progress_saving", cfg.Progress.Enabled).
		Bool("gate", cfg.Auth.SessionPassword != "").
		Msg("Configuration loaded")

	// Log level follows config file edits without a restart.
	if path := config.FindConfigFile(); path != "" {
		err := config.WatchConfigFile(path, func() {
			reloaded, err := config.LoadWithKoanf()
			if err != nil {
				logging.Warn().Err(err).Msg("Config reload failed, keeping current settings")
				return
			}
			logging.SetLevelString(reloaded.Logging.Level)
			logging.Info().Str("level", reloaded.Logging.Level).Msg("Log level reloaded")
		})
		if err != nil {
			logging.Warn().Err(err).Msg("Config file watch unavailable")
		}
	}

	categories := catalog.NewStore(cfg.Catalog.CategoriesFile)
	if err := categories.Load(); err != nil {
		logging.Fatal().Err(err).Msg("Failed to load category registry")
	}
	logging.Info().Int("categories", categories.Len()).Msg("Category registry loaded")

	progressStore, err := progress.Open(cfg.Progress.Path, cfg.Progress.Enabled)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open progress store")
	}
	defer func() {
		if err := progressStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing progress store")
		}
	}()

	idxStore := index.NewStore()
	indexer := index.NewIndexer(idxStore, cfg.Catalog.LargeDirectoryThreshold, cfg.Catalog.IndexWorkers)
	engine := ordering.NewEngine(idxStore, indexer, ordering.Config{
		CacheExpiry:            cfg.Catalog.CacheExpiry,
		SessionExpiry:          cfg.Catalog.SessionExpiry,
		DefaultPageSize:        cfg.Catalog.DefaultPageSize,
		MaxPageSize:            cfg.Catalog.MaxPageSize,
		MaxCacheEntries:        cfg.Catalog.MaxCacheEntries,
		MaxSessionsPerCategory: cfg.Catalog.MaxSessionsPerCategory,
	})

	hub := ws.NewHub()
	coordinator := viewsync.NewCoordinator(hub, engine)
	registry := viewsync.NewRegistry(cfg.Catalog.SessionExpiry)
	wsHandler := ws.NewHandler(hub, coordinator, registry, engine, progressStore)

	gate, err := buildGate(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure session password gate")
	}

	handler := api.NewHandler(cfg, categories, idxStore, indexer, engine,
		coordinator, registry, progressStore, gate, hub, wsHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddCatalogService(indexer)
	tree.AddCatalogService(services.NewSweeperService(sweepInterval, engine, registry))
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// buildGate creates the password gate when a session password is configured.
// A missing signing secret is generated per process, which invalidates gate
// cookies across restarts; set auth.gate_secret to keep them stable.
func buildGate(cfg *config.Config) (*middleware.Gate, error) {
	if cfg.Auth.SessionPassword == "" {
		return nil, nil
	}

	secret := cfg.Auth.GateSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate gate secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		logging.Warn().Msg("auth.gate_secret not set, generated an ephemeral secret")
	}

	return middleware.NewGate(cfg.Auth.SessionPassword, secret, cfg.Auth.GateTTL)
}
