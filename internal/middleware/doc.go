// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

/*
Package middleware provides HTTP middleware for the API server.

Components:

  - RequestID: Assigns each request a UUID, exposed as X-Request-ID and
    carried in the logging context.
  - Session: Ensures every visitor has a session_id cookie. The session ID
    identifies a viewer across the catalog, sync, and chat features.
  - Gate: Optional password gate for the whole app. When a password is
    configured, unauthenticated requests get 401 until they present a
    signed gate cookie obtained from the auth endpoint.
  - PrometheusMetrics: Records request counts, durations, and in-flight
    gauge per route pattern.
  - Compression: gzip for JSON responses; media streams and WebSocket
    upgrades pass through untouched.

CORS and rate limiting come from the Chi ecosystem (go-chi/cors,
go-chi/httprate) and are configured in the api package.
*/
package middleware
