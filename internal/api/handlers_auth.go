// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// handlers_auth.go - Session password gate endpoint.

package api

import (
	"net/http"

	"github.com/tomtom215/projectionist/internal/logging"
)

// HandleGate validates the session password and sets the gate cookie.
//
// When no password is configured the endpoint reports that no gate is in
// effect instead of failing, so clients can probe it unconditionally.
func (h *Handler) HandleGate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.gate == nil || !h.gate.Enabled() {
		rw.Success(map[string]bool{"required": false, "authenticated": true})
		return
	}

	var req GateRequest
	if err := decodeBody(r, &req); err != nil {
		handleDecodeError(rw, err)
		return
	}

	token, err := h.gate.Authenticate(req.Password)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Msg("Gate authentication failed")
		rw.Error(http.StatusUnauthorized, ErrCodeInvalidPassword, "Invalid password")
		return
	}

	h.gate.SetCookie(w, token)
	rw.Success(map[string]bool{"required": true, "authenticated": true})
}
