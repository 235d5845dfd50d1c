// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package services

import (
	"context"
)

// ContextRunner matches the hub's run loop, which already follows suture's
// Serve contract. Satisfied by *websocket.Hub.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// HubService adapts the WebSocket hub to a supervised service. The hub's
// RunWithContext already blocks until cancellation, so the wrapper only
// contributes a stable name for the event log.
type HubService struct {
	hub ContextRunner
}

// NewHubService creates a hub service wrapper.
func NewHubService(hub ContextRunner) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's event log.
func (s *HubService) String() string {
	return "websocket-hub"
}
