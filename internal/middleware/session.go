// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/projectionist/internal/logging"
)

// SessionCookieName is the cookie that identifies a viewer across
// catalog browsing, sync, and chat.
const SessionCookieName = "session_id"

// sessionCookieMaxAge keeps the viewer identity stable across visits.
const sessionCookieMaxAge = 365 * 24 * time.Hour

// Session ensures every request carries a session ID. A missing or empty
// cookie gets a fresh UUID, set on the response so the browser keeps it.
// The ID is placed in the request context for handlers and logging.
//
// The cookie is readable by frontend scripts, which display the short
// form of the ID in chat, so HttpOnly stays off.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			sessionID = cookie.Value
		}

		if sessionID == "" {
			sessionID = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(sessionCookieMaxAge.Seconds()),
				SameSite: http.SameSiteLaxMode,
			})
			logging.Debug().Str("session_id", sessionID).Msg("issued new session cookie")
		}

		ctx := logging.ContextWithSessionID(r.Context(), sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionIDFromRequest returns the viewer session ID for a request that
// has passed through Session.
func SessionIDFromRequest(r *http.Request) string {
	return logging.SessionIDFromContext(r.Context())
}
