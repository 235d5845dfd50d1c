// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package viewsync implements synchronized viewing: a single host session
// drives what everyone in the sync room sees, and a registry tracks each
// connected session's own viewing state for peer lookups.
package viewsync

import (
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/metrics"
	"github.com/tomtom215/projectionist/internal/models"
)

// Room names used for scoped broadcasts.
const (
	RoomSync = "sync"
	RoomChat = "chat"
)

// Event names sent through the broadcaster.
const (
	EventSyncEnabled  = "sync_enabled"
	EventSyncDisabled = "sync_disabled"
	EventSyncState    = "sync_state"
)

// shortIDLen is how many characters of a session ID client-facing
// notifications carry.
const shortIDLen = 8

var (
	// ErrNotHost is returned when a non-host session tries to drive sync.
	ErrNotHost = errors.New("viewsync: only the host can update sync state")

	// ErrSyncNotEnabled is returned when sync state is requested while
	// synchronized viewing is off.
	ErrSyncNotEnabled = errors.New("viewsync: sync mode not enabled")
)

// Broadcaster delivers sync notifications. Implemented by the WebSocket hub.
// Enable/disable events go to every connected client; state updates go to
// the sync room only.
type Broadcaster interface {
	BroadcastAll(event string, data interface{})
	BroadcastRoom(room, event string, data interface{})
}

// OrderSource provides a session's current traversal order so the host's
// order can be captured when sync starts. Implemented by ordering.Engine.
type OrderSource interface {
	SessionOrder(categoryID, sessionID string) []string
}

// Coordinator owns the sync state machine. All methods are safe for
// concurrent use.
type Coordinator struct {
	mu sync.Mutex

	enabled bool
	hostID  string
	state   models.MediaState

	// orders holds the host's traversal order captured per category while
	// sync is enabled. Every participant follows it verbatim.
	orders map[string][]string

	broadcaster Broadcaster
	orderSource OrderSource
}

// enabledPayload is the sync_enabled notification body: who hosts, and
// where playback currently stands.
type enabledPayload struct {
	HostID string            `json:"host_id"`
	State  models.MediaState `json:"state"`
}

// NewCoordinator creates a sync coordinator.
func NewCoordinator(broadcaster Broadcaster, orderSource OrderSource) *Coordinator {
	return &Coordinator{
		orders:      make(map[string][]string),
		broadcaster: broadcaster,
		orderSource: orderSource,
	}
}

// Enable turns on synchronized viewing with the caller as host. Calling
// while already enabled transfers host authority to the caller. The host's
// current order for the state's category is captured so every viewer walks
// the same sequence. Everyone connected is notified, not just the sync room,
// so clients outside the room can surface the mode change.
func (c *Coordinator) Enable(sessionID string, state models.MediaState) models.MediaState {
	state.Timestamp = now()

	c.mu.Lock()
	defer c.mu.Unlock()

	transfer := c.enabled && c.hostID != sessionID
	c.enabled = true
	c.hostID = sessionID
	c.state = state
	c.orders = make(map[string][]string)
	if order := c.orderSource.SessionOrder(state.CategoryID, sessionID); len(order) > 0 {
		c.orders[state.CategoryID] = order
	}

	metrics.SyncActive.Set(1)
	metrics.SyncBroadcasts.WithLabelValues(EventSyncEnabled).Inc()
	logging.Info().Str("host", sessionID).Str("category", state.CategoryID).
		Bool("host_transfer", transfer).Msg("sync mode enabled")

	// Enqueued under the lock: a state change and its notification cannot
	// interleave with a concurrent enable or disable. The hub's channel
	// decouples actual delivery.
	c.broadcaster.BroadcastAll(EventSyncEnabled, enabledPayload{
		HostID: shortID(sessionID),
		State:  state,
	})
	return state
}

// Disable turns off synchronized viewing. Any participant may disable, not
// only the host. Everyone connected is notified.
func (c *Coordinator) Disable(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasEnabled := c.enabled
	c.enabled = false
	c.hostID = ""
	c.state = models.MediaState{}
	c.orders = make(map[string][]string)

	if !wasEnabled {
		return
	}

	metrics.SyncActive.Set(0)
	metrics.SyncBroadcasts.WithLabelValues(EventSyncDisabled).Inc()
	logging.Info().Str("session", sessionID).Msg("sync mode disabled")

	c.broadcaster.BroadcastAll(EventSyncDisabled, nil)
}

// Update records the host's new position and notifies the sync room.
// Non-host updates are rejected and nothing is broadcast.
func (c *Coordinator) Update(sessionID string, state models.MediaState) (models.MediaState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return models.MediaState{}, ErrSyncNotEnabled
	}
	if sessionID != c.hostID {
		return models.MediaState{}, ErrNotHost
	}
	state.Timestamp = now()
	c.state = state

	metrics.SyncBroadcasts.WithLabelValues(EventSyncState).Inc()
	c.broadcaster.BroadcastRoom(RoomSync, EventSyncState, state)
	return state, nil
}

// Status reports whether sync is active and whether the given session is
// the host.
func (c *Coordinator) Status(sessionID string) models.SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.SyncStatus{
		Active: c.enabled,
		IsHost: c.enabled && sessionID == c.hostID,
	}
}

// State returns the current sync position. ErrSyncNotEnabled when off.
func (c *Coordinator) State() (models.MediaState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return models.MediaState{}, ErrSyncNotEnabled
	}
	return c.state, nil
}

// Enabled reports whether synchronized viewing is on.
func (c *Coordinator) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SharedOrder returns the captured order for a category. When sync is on
// but no order was captured yet for the category, the host's current order
// is captured on first use.
func (c *Coordinator) SharedOrder(categoryID string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil, false
	}
	if order, ok := c.orders[categoryID]; ok {
		return order, true
	}
	if order := c.orderSource.SessionOrder(categoryID, c.hostID); len(order) > 0 {
		c.orders[categoryID] = order
		return order, true
	}
	return nil, true
}

// HandleDisconnect clears nothing: sync survives the host dropping so a
// reconnect (same session cookie) resumes hosting. Present as a hook for
// the hub's disconnect path.
func (c *Coordinator) HandleDisconnect(sessionID string) {
	c.mu.Lock()
	isHost := c.enabled && sessionID == c.hostID
	c.mu.Unlock()
	if isHost {
		logging.Info().Str("session", sessionID).Msg("sync host disconnected, awaiting reconnect")
	}
}

// shortID returns the display form of a session ID.
func shortID(sessionID string) string {
	if len(sessionID) > shortIDLen {
		return sessionID[:shortIDLen]
	}
	return sessionID
}

func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
