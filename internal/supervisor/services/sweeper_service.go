// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package services

import (
	"context"
	"time"

	"github.com/tomtom215/projectionist/internal/logging"
)

// OrderSweeper evicts expired per-session ordering state. Satisfied by
// *ordering.Engine.
type OrderSweeper interface {
	Sweep()
}

// SessionSweeper drops expired session view entries and returns how many
// were removed. Satisfied by *viewsync.Registry.
type SessionSweeper interface {
	Sweep() int
}

// SweeperService periodically expires idle ordering and session view state.
// Both stores bound their own memory; the sweeper just keeps them from
// holding stale entries between evictions.
type SweeperService struct {
	interval time.Duration
	orders   OrderSweeper
	sessions SessionSweeper
}

// NewSweeperService creates a sweeper running at the given interval.
func NewSweeperService(interval time.Duration, orders OrderSweeper, sessions SessionSweeper) *SweeperService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweeperService{
		interval: interval,
		orders:   orders,
		sessions: sessions,
	}
}

// Serve implements suture.Service.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.orders.Sweep()
			if removed := s.sessions.Sweep(); removed > 0 {
				logging.Debug().
					Int("removed", removed).
					Msg("Swept expired session views")
			}
		}
	}
}

// String implements fmt.Stringer for suture's event log.
func (s *SweeperService) String() string {
	return "state-sweeper"
}
