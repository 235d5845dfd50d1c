// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestGate(t *testing.T, password string) *Gate {
	t.Helper()
	g, err := NewGate(password, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	return g
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGateDisabledPassesThrough(t *testing.T) {
	g := newTestGate(t, "")
	if g.Enabled() {
		t.Fatal("gate with empty password reports enabled")
	}

	rec := httptest.NewRecorder()
	g.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	if _, err := g.Authenticate("anything"); !errors.Is(err, ErrGateDisabled) {
		t.Errorf("Authenticate() on disabled gate error = %v, want ErrGateDisabled", err)
	}
}

func TestGateRequiresSecret(t *testing.T) {
	if _, err := NewGate("hunter2", "", time.Hour); err == nil {
		t.Error("NewGate() with password but no secret succeeded")
	}
}

func TestGateBlocksWithoutCookie(t *testing.T) {
	g := newTestGate(t, "hunter2")

	rec := httptest.NewRecorder()
	g.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "GATE_REQUIRED") {
		t.Errorf("body = %s, want GATE_REQUIRED error code", rec.Body.String())
	}
}

func TestGateAuthenticateAndPass(t *testing.T) {
	g := newTestGate(t, "hunter2")

	if _, err := g.Authenticate("wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("Authenticate(wrong) error = %v, want ErrInvalidPassword", err)
	}

	token, err := g.Authenticate("hunter2")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if err := g.Verify(token); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.AddCookie(&http.Cookie{Name: GateCookieName, Value: token})
	rec := httptest.NewRecorder()
	g.Middleware(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status with valid token = %d, want 200", rec.Code)
	}
}

func TestGateRejectsTamperedToken(t *testing.T) {
	g := newTestGate(t, "hunter2")
	token, err := g.Authenticate("hunter2")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: GateCookieName, Value: token + "x"})
	rec := httptest.NewRecorder()
	g.Middleware(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with tampered token = %d, want 401", rec.Code)
	}
}

func TestGateRejectsExpiredToken(t *testing.T) {
	g, err := NewGate("hunter2", "test-secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	token, err := g.Authenticate("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Verify(token); err == nil {
		t.Error("Verify() accepted an expired token")
	}
}

func TestGateSetCookie(t *testing.T) {
	g := newTestGate(t, "hunter2")
	token, err := g.Authenticate("hunter2")
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	g.SetCookie(rec, token)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != GateCookieName {
		t.Fatalf("cookies = %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("gate cookie should be HttpOnly")
	}
}
