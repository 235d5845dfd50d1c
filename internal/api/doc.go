// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package api implements the HTTP surface of Projectionist.
//
// Endpoints fall into five groups:
//
//   - Catalog: category registry CRUD, paginated media listings, background
//     index status.
//   - Sync: enable/disable/update of the shared viewing state, per-session
//     status, peer view lookup.
//   - Progress: saved playback positions per category.
//   - Runtime: health, Prometheus metrics, client-visible settings, the
//     session password gate.
//   - Streams: media file serving with Range support and the WebSocket
//     upgrade.
//
// Every JSON endpoint writes the models.APIResponse envelope through
// ResponseWriter. Request bodies are declared in requests.go with validator
// tags and decoded by decodeBody, which returns field-level errors in the
// VALIDATION_ERROR format.
//
// Handlers are methods on Handler, which carries the catalog store, ordering
// engine, sync coordinator, session registry, progress store and WebSocket
// hub. NewRouter assembles the chi route table and middleware stacks.
package api
