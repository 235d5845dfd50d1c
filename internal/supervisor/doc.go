// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package supervisor provides suture-based process supervision.
//
// The Tree arranges long-running components into three supervised layers so
// a crash in one does not take down the others:
//
//	projectionist (root)
//	├── catalog-layer     background indexer, ordering/registry sweeper
//	├── messaging-layer   WebSocket hub
//	└── api-layer         HTTP server
//
// Services are small adapters in the services subpackage that translate each
// component's lifecycle to suture's Serve(ctx) contract. Supervisor events
// are logged through sutureslog, bridged into zerolog by logging.NewSlogLogger.
package supervisor
