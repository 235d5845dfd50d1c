// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

/*
Package websocket provides real-time bidirectional communication for
synchronized viewing and chat.

This package implements WebSocket support for the sync and chat rooms. It
uses the gorilla/websocket library with a hub-client architecture extended
by named rooms, so sync state updates reach only sync participants while
mode changes reach everyone.

Key Components:

  - Hub: Central message broker managing connections, rooms, and broadcasts
  - Client: A single WebSocket connection with read/write goroutines
  - Handler: Decodes client frames and routes them to the sync coordinator,
    view registry, and chat room
  - Message: Typed message structure for all event types

Architecture:

The package implements a hub-and-spoke pattern with rooms:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all clients or to a room
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│  sync    │  sync   │  chat   │
	│ Client1  │ Client2 │ Client3 │ Client4
	└──────────┴─────────┴─────────┘

Each client has two goroutines:
  - readPump: Reads frames, enforces the inbound rate limit, dispatches
  - writePump: Writes frames, sends pings

Client Message Types:

  - join_sync / leave_sync: Sync room membership
  - update_my_state: Report what this session is viewing
  - request_view_info: Ask for another session's current view
  - join_chat / rejoin_chat / leave_chat / chat_message: Chat room
  - command: Slash commands (/myview)
  - heartbeat: Keepalive

Server Message Types:

  - connection_status: Acknowledges a new connection
  - sync_enabled / sync_disabled / sync_state / sync_error: Sync lifecycle
  - user_joined / user_left: Sync room membership changes
  - view_info_response: Answer to request_view_info
  - chat_message / chat_notification / category_activity_update: Chat
  - heartbeat_response, error

Usage Example - Server:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	handler := websocket.NewHandler(hub, coordinator, registry, engine, positions)
	http.HandleFunc("/ws", handler.ServeWS)

Thread Safety:

All Hub methods are safe for concurrent use. Client.Send never blocks;
full queues drop the frame and record a metric.
*/
package websocket
