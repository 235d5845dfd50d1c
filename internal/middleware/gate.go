// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/models"
)

// GateCookieName carries the signed gate token once a visitor has
// entered the password.
const GateCookieName = "gate_token"

var (
	// ErrInvalidPassword is returned when the presented password does not
	// match the configured one.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrGateDisabled is returned when authenticating against a gate with
	// no password configured.
	ErrGateDisabled = errors.New("password gate is not enabled")
)

// Gate is an optional shared-password barrier in front of the whole app.
// The configured password is bcrypt-hashed at startup; visitors who know
// it receive a signed, expiring cookie. With no password configured the
// gate passes everything through.
type Gate struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
}

// NewGate creates a password gate. An empty password disables the gate.
func NewGate(password, secret string, ttl time.Duration) (*Gate, error) {
	g := &Gate{secret: []byte(secret), ttl: ttl}
	if password == "" {
		return g, nil
	}
	if secret == "" {
		return nil, errors.New("gate secret required when a session password is set")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing session password: %w", err)
	}
	g.hash = hash
	return g, nil
}

// Enabled reports whether a password is configured.
func (g *Gate) Enabled() bool {
	return len(g.hash) > 0
}

// Authenticate checks the password and returns a signed gate token.
func (g *Gate) Authenticate(password string) (string, error) {
	if !g.Enabled() {
		return "", ErrGateDisabled
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "gate",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	})
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("signing gate token: %w", err)
	}
	return signed, nil
}

// Verify checks a gate token's signature and expiry.
func (g *Gate) Verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid gate token")
	}
	return nil
}

// SetCookie writes the gate token cookie with the gate's TTL.
func (g *Gate) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     GateCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware rejects requests without a valid gate cookie. A disabled
// gate is a no-op.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	if !g.Enabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(GateCookieName)
		if err != nil || g.Verify(cookie.Value) != nil {
			logging.Ctx(r.Context()).Debug().Str("path", r.URL.Path).Msg("gate rejected request")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			resp := models.APIResponse{
				Status: "error",
				Error: &models.APIError{
					Code:    "GATE_REQUIRED",
					Message: "This server requires a password.",
				},
			}
			if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
				logging.Error().Err(encErr).Msg("failed to encode gate response")
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}
