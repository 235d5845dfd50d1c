// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/metrics"
	"github.com/tomtom215/projectionist/internal/models"
	"github.com/tomtom215/projectionist/internal/viewsync"
)

// Client message types.
const (
	MsgJoinSync        = "join_sync"
	MsgLeaveSync       = "leave_sync"
	MsgUpdateMyState   = "update_my_state"
	MsgRequestViewInfo = "request_view_info"
	MsgHeartbeat       = "heartbeat"
	MsgJoinChat        = "join_chat"
	MsgRejoinChat      = "rejoin_chat"
	MsgLeaveChat       = "leave_chat"
	MsgChatMessage     = "chat_message"
	MsgCommand         = "command"
)

// Server message types.
const (
	EventConnectionStatus = "connection_status"
	EventSyncState        = "sync_state"
	EventSyncError        = "sync_error"
	EventUserJoined       = "user_joined"
	EventUserLeft         = "user_left"
	EventViewInfoResponse = "view_info_response"
	EventHeartbeatResp    = "heartbeat_response"
	EventChatMessage      = "chat_message"
	EventChatNotification = "chat_notification"
	EventCategoryActivity = "category_activity_update"
	EventError            = "error"
)

const maxChatMessageLen = 500

// shortIDLen is how much of a session ID is shown to other users.
const shortIDLen = 8

// SyncControl is the slice of the sync coordinator the dispatcher needs.
type SyncControl interface {
	Enabled() bool
	State() (models.MediaState, error)
	HandleDisconnect(sessionID string)
}

// ViewRegistry tracks what each session is viewing.
type ViewRegistry interface {
	Report(sessionID string, state models.MediaState)
	Lookup(id string) (models.SessionView, error)
	Remove(sessionID string)
	CategoryCounts() map[string]int
}

// OrderSource provides a session's current traversal order for peer
// view sharing.
type OrderSource interface {
	SessionOrder(categoryID, sessionID string) []string
}

// PositionSaver persists the last viewed index per category.
type PositionSaver interface {
	Enabled() bool
	Save(categoryID string, index int) error
}

// Handler decodes inbound frames and routes them to the sync
// coordinator, the view registry, and the chat room. One Handler serves
// all connections.
type Handler struct {
	hub       *Hub
	sync      SyncControl
	registry  ViewRegistry
	orders    OrderSource
	positions PositionSaver
}

// NewHandler creates the message dispatcher.
func NewHandler(hub *Hub, sync SyncControl, registry ViewRegistry, orders OrderSource, positions PositionSaver) *Handler {
	return &Handler{
		hub:       hub,
		sync:      sync,
		registry:  registry,
		orders:    orders,
		positions: positions,
	}
}

// The app serves LAN and tunnel setups where the page origin rarely
// matches the Host header, so origin checking is disabled.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a WebSocket connection and starts
// the client pumps. The session ID must already be in the request
// context.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := logging.SessionIDFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, sessionID, h)
	h.hub.Register <- client
	client.Start()

	client.Send(EventConnectionStatus, map[string]interface{}{
		"status": "connected",
		"id":     shortID(sessionID),
	})
}

// HandleMessage routes one decoded frame.
func (h *Handler) HandleMessage(c *Client, msg Inbound) {
	switch msg.Type {
	case MsgJoinSync:
		h.joinSync(c)
	case MsgLeaveSync:
		h.leaveSync(c)
	case MsgUpdateMyState:
		h.updateMyState(c, msg.Data)
	case MsgRequestViewInfo:
		h.requestViewInfo(c, msg.Data)
	case MsgHeartbeat:
		c.Send(EventHeartbeatResp, map[string]interface{}{
			"status":    "ok",
			"timestamp": nowUnix(),
		})
	case MsgJoinChat:
		h.joinChat(c, true)
	case MsgRejoinChat:
		h.joinChat(c, false)
	case MsgLeaveChat:
		h.leaveChat(c)
	case MsgChatMessage:
		h.chatMessage(c, msg.Data)
	case MsgCommand:
		h.command(c, msg.Data)
	default:
		logging.Warn().
			Str("session_id", c.sessionID).
			Str("message_type", msg.Type).
			Msg("unknown websocket message type")
		c.Send(EventError, map[string]interface{}{"message": "unknown message type"})
	}
}

// HandleDisconnect notifies rooms the client was in and clears its
// session state.
func (h *Handler) HandleDisconnect(c *Client) {
	for _, room := range h.hub.RoomsOf(c) {
		switch room {
		case viewsync.RoomSync:
			h.hub.BroadcastRoomExcept(viewsync.RoomSync, EventUserLeft,
				map[string]interface{}{"sid": shortID(c.sessionID)}, c)
		case viewsync.RoomChat:
			h.hub.BroadcastRoomExcept(viewsync.RoomChat, EventChatNotification,
				map[string]interface{}{"type": "leave", "message": "A user left the chat"}, c)
		}
	}

	if c.sessionID != "" {
		h.registry.Remove(c.sessionID)
		h.sync.HandleDisconnect(c.sessionID)
	}
}

func (h *Handler) joinSync(c *Client) {
	if !h.sync.Enabled() {
		c.Send(EventSyncError, map[string]interface{}{"message": "Sync mode is not enabled"})
		return
	}

	h.hub.Join(viewsync.RoomSync, c)

	state, err := h.sync.State()
	if err != nil {
		c.Send(EventSyncError, map[string]interface{}{"message": "Sync mode is not enabled"})
		return
	}
	c.Send(EventSyncState, state)

	h.hub.BroadcastRoomExcept(viewsync.RoomSync, EventUserJoined,
		map[string]interface{}{"sid": shortID(c.sessionID)}, c)
}

func (h *Handler) leaveSync(c *Client) {
	h.hub.Leave(viewsync.RoomSync, c)
	h.hub.BroadcastRoomExcept(viewsync.RoomSync, EventUserLeft,
		map[string]interface{}{"sid": shortID(c.sessionID)}, c)
}

func (h *Handler) joinChat(c *Client, announce bool) {
	h.hub.Join(viewsync.RoomChat, c)

	if announce {
		h.hub.BroadcastRoomExcept(viewsync.RoomChat, EventChatNotification,
			map[string]interface{}{"type": "join", "message": "A new user joined the chat"}, c)
	}

	// The joiner gets the current per-category viewer counts so the UI
	// can show where people are.
	c.Send(EventCategoryActivity, h.registry.CategoryCounts())
}

func (h *Handler) leaveChat(c *Client) {
	h.hub.Leave(viewsync.RoomChat, c)
	h.hub.BroadcastRoomExcept(viewsync.RoomChat, EventChatNotification,
		map[string]interface{}{"type": "leave", "message": "A user left the chat"}, c)
}

type chatMessagePayload struct {
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

func (h *Handler) chatMessage(c *Client, data json.RawMessage) {
	var payload chatMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		logging.Warn().Err(err).Str("session_id", c.sessionID).Msg("malformed chat message")
		return
	}

	text := strings.TrimSpace(payload.Message)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > maxChatMessageLen {
		text = string(runes[:maxChatMessageLen])
	}

	ts := payload.Timestamp
	if ts == 0 {
		ts = nowUnix()
	}

	metrics.ChatMessagesTotal.Inc()
	h.hub.BroadcastRoom(viewsync.RoomChat, EventChatMessage, models.ChatMessage{
		SessionID: shortID(c.sessionID),
		Text:      text,
		Timestamp: ts,
	})
}

type updateStatePayload struct {
	CategoryID string `json:"category_id"`
	FileURL    string `json:"file_url"`
	Index      *int   `json:"index"`
}

func (h *Handler) updateMyState(c *Client, data json.RawMessage) {
	if c.sessionID == "" {
		logging.Warn().Msg("state update without session ID ignored")
		return
	}

	var payload updateStatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		logging.Warn().Err(err).Str("session_id", c.sessionID).Msg("malformed state update")
		c.Send(EventError, map[string]interface{}{"message": "Failed to update your view state"})
		return
	}

	if strings.TrimSpace(payload.CategoryID) == "" || payload.Index == nil || *payload.Index < 0 {
		logging.Warn().
			Str("session_id", c.sessionID).
			Str("category_id", payload.CategoryID).
			Msg("invalid state update rejected")
		c.Send(EventError, map[string]interface{}{"message": "Failed to update your view state"})
		return
	}

	h.registry.Report(c.sessionID, models.MediaState{
		CategoryID: payload.CategoryID,
		FileURL:    payload.FileURL,
		Index:      *payload.Index,
	})

	if h.positions != nil && h.positions.Enabled() {
		if err := h.positions.Save(payload.CategoryID, *payload.Index); err != nil {
			logging.Warn().Err(err).
				Str("category_id", payload.CategoryID).
				Msg("failed to save playback position")
		}
	}
}

type viewInfoRequest struct {
	TargetSessionID string `json:"target_session_id"`
}

func (h *Handler) requestViewInfo(c *Client, data json.RawMessage) {
	var payload viewInfoRequest
	if err := json.Unmarshal(data, &payload); err != nil || payload.TargetSessionID == "" {
		c.Send(EventViewInfoResponse, map[string]interface{}{
			"error": "Invalid request. Missing target_session_id.",
		})
		return
	}

	view, err := h.registry.Lookup(payload.TargetSessionID)
	if err != nil {
		c.Send(EventViewInfoResponse, map[string]interface{}{
			"error": "Could not find view information for session " + payload.TargetSessionID + ". User might not be active or sharing.",
		})
		return
	}

	c.Send(EventViewInfoResponse, map[string]interface{}{
		"category_id":       view.State.CategoryID,
		"index":             view.State.Index,
		"file_url":          view.State.FileURL,
		"media_order":       h.orders.SessionOrder(view.State.CategoryID, view.SessionID),
		"target_session_id": payload.TargetSessionID,
	})
}

type commandPayload struct {
	Cmd  string                 `json:"cmd"`
	From string                 `json:"from"`
	Arg  map[string]interface{} `json:"arg"`
}

// command relays slash commands to the chat room. Only /myview is
// supported; the sender's traversal order is attached so recipients can
// jump to the exact same view.
func (h *Handler) command(c *Client, data json.RawMessage) {
	var payload commandPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Cmd == "" {
		return
	}

	if payload.Cmd != "myview" {
		logging.Warn().Str("cmd", payload.Cmd).Msg("unsupported command type")
		return
	}

	categoryID, _ := payload.Arg["category_id"].(string)
	if categoryID == "" || payload.Arg["index"] == nil || payload.From == "" {
		logging.Warn().Str("session_id", c.sessionID).Msg("invalid myview command rejected")
		return
	}

	if order := h.orders.SessionOrder(categoryID, c.sessionID); order != nil {
		payload.Arg["media_order"] = order
	} else {
		logging.Warn().
			Str("session_id", c.sessionID).
			Str("category_id", categoryID).
			Msg("no media order available for myview command")
	}

	h.hub.BroadcastRoom(viewsync.RoomChat, MsgCommand, payload)
}

func shortID(sessionID string) string {
	if len(sessionID) > shortIDLen {
		return sessionID[:shortIDLen]
	}
	return sessionID
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
