// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package services adapts application components to suture.Service.
//
//   - HTTPServerService: http.Server with graceful shutdown
//   - HubService: the WebSocket hub run loop
//   - SweeperService: periodic expiry of ordering and session view state
//
// The background indexer implements suture.Service itself and needs no
// wrapper here.
package services
