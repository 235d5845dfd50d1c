// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/projectionist/internal/catalog"
	"github.com/tomtom215/projectionist/internal/config"
	"github.com/tomtom215/projectionist/internal/index"
	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/middleware"
	"github.com/tomtom215/projectionist/internal/models"
	"github.com/tomtom215/projectionist/internal/ordering"
	"github.com/tomtom215/projectionist/internal/progress"
	"github.com/tomtom215/projectionist/internal/viewsync"
	ws "github.com/tomtom215/projectionist/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

// envelope mirrors models.APIResponse for decoding test responses.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

type testEnv struct {
	handler  *Handler
	router   http.Handler
	catalog  *catalog.Store
	mediaDir string
}

type envOptions struct {
	gatePassword string
	withProgress bool
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Catalog: config.CatalogConfig{
			DefaultPageSize: 10,
			MaxPageSize:     100,
			ShuffleDefault:  true,
		},
		Security: config.SecurityConfig{
			RateLimitDisabled: true,
		},
	}

	catStore := catalog.NewStore(filepath.Join(t.TempDir(), "categories.json"))
	if err := catStore.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	idxStore := index.NewStore()
	indexer := index.NewIndexer(idxStore, 50, 2)
	engine := ordering.NewEngine(idxStore, indexer, ordering.Config{
		CacheExpiry:            time.Minute,
		SessionExpiry:          time.Hour,
		DefaultPageSize:        10,
		MaxPageSize:            100,
		MaxCacheEntries:        100,
		MaxSessionsPerCategory: 50,
	})

	hub := ws.NewHub()
	coordinator := viewsync.NewCoordinator(hub, engine)
	registry := viewsync.NewRegistry(time.Hour)

	progressStore := &progress.Store{}
	if opts.withProgress {
		db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
		if err != nil {
			t.Fatalf("badger.Open() error = %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		progressStore = progress.NewWithDB(db)
	}

	var gate *middleware.Gate
	if opts.gatePassword != "" {
		var err error
		gate, err = middleware.NewGate(opts.gatePassword, "test-secret", time.Hour)
		if err != nil {
			t.Fatalf("NewGate() error = %v", err)
		}
	}

	wsHandler := ws.NewHandler(hub, coordinator, registry, engine, progressStore)
	handler := NewHandler(cfg, catStore, idxStore, indexer, engine, coordinator, registry, progressStore, gate, hub, wsHandler)

	return &testEnv{
		handler:  handler,
		router:   NewRouter(handler),
		catalog:  catStore,
		mediaDir: newMediaDir(t),
	}
}

// newMediaDir creates a directory with three media files and one non-media
// file that listings must skip.
func newMediaDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.mp4", "c.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("media:"+name), 0o600); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600); err != nil {
		t.Fatalf("WriteFile(notes.txt) error = %v", err)
	}
	return dir
}

// request performs one request against the router. A non-empty sessionID is
// sent as the session cookie so handlers attribute the call to that session.
func (env *testEnv) request(t *testing.T, method, path, body, sessionID string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionID})
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

// addCategory registers the env's media directory and returns its ID.
func (env *testEnv) addCategory(t *testing.T, name string) string {
	t.Helper()
	cat, err := env.catalog.Add(name, env.mediaDir)
	if err != nil {
		t.Fatalf("Add(%s) error = %v", name, err)
	}
	return cat.ID
}

func TestAddCategory(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	body := `{"name": "Movies", "path": "` + env.mediaDir + `"}`
	rec := env.request(t, http.MethodPost, "/api/v1/categories", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	var cat models.Category
	if err := json.Unmarshal(resp.Data, &cat); err != nil {
		t.Fatalf("decode category: %v", err)
	}
	if cat.ID == "" || cat.Name != "Movies" {
		t.Errorf("category = %+v, want non-empty ID and name Movies", cat)
	}
}

func TestAddCategoryValidation(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"missing name", `{"path": "` + env.mediaDir + `"}`, ErrCodeValidation},
		{"missing path", `{"name": "Movies"}`, ErrCodeValidation},
		{"empty body", "", ErrCodeBadRequest},
		{"bad path", `{"name": "Movies", "path": "/does/not/exist"}`, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, http.MethodPost, "/api/v1/categories", tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body: %s)", rec.Code, rec.Body.String())
			}
			resp := decodeEnvelope(t, rec)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestAddCategoryDuplicatePath(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.addCategory(t, "First")

	body := `{"name": "Second", "path": "` + env.mediaDir + `"}`
	rec := env.request(t, http.MethodPost, "/api/v1/categories", body, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestListCategories(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	rec := env.request(t, http.MethodGet, "/api/v1/categories", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	var details []models.CategoryDetails
	if err := json.Unmarshal(resp.Data, &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if len(details) != 1 || details[0].ID != id {
		t.Fatalf("details = %+v, want one entry with id %s", details, id)
	}
}

func TestDeleteCategory(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	rec := env.request(t, http.MethodDelete, "/api/v1/categories/"+id, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = env.request(t, http.MethodDelete, "/api/v1/categories/"+id, "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestListMediaSorted(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	rec := env.request(t, http.MethodGet, "/api/v1/categories/"+id+"/media?shuffle=false", "", "sess-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	resp := decodeEnvelope(t, rec)
	var listing models.MediaListing
	if err := json.Unmarshal(resp.Data, &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}

	if listing.Pagination.Total != 3 {
		t.Errorf("total = %d, want 3 (txt file must be skipped)", listing.Pagination.Total)
	}
	wantOrder := []string{"a.jpg", "b.mp4", "c.png"}
	if len(listing.Files) != len(wantOrder) {
		t.Fatalf("files = %d, want %d", len(listing.Files), len(wantOrder))
	}
	for i, want := range wantOrder {
		if listing.Files[i].Name != want {
			t.Errorf("files[%d] = %s, want %s", i, listing.Files[i].Name, want)
		}
	}
	if listing.Files[0].Type != "image" || listing.Files[1].Type != "video" {
		t.Errorf("types = %s/%s, want image/video", listing.Files[0].Type, listing.Files[1].Type)
	}
}

func TestListMediaPagination(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	rec := env.request(t, http.MethodGet, "/api/v1/categories/"+id+"/media?shuffle=false&limit=2", "", "sess-1")
	resp := decodeEnvelope(t, rec)
	var listing models.MediaListing
	if err := json.Unmarshal(resp.Data, &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}

	if len(listing.Files) != 2 || !listing.Pagination.HasMore {
		t.Fatalf("page 1 = %d files hasMore=%v, want 2 files hasMore=true",
			len(listing.Files), listing.Pagination.HasMore)
	}

	rec = env.request(t, http.MethodGet, "/api/v1/categories/"+id+"/media?shuffle=false&limit=2&page=2", "", "sess-1")
	resp = decodeEnvelope(t, rec)
	if err := json.Unmarshal(resp.Data, &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Files) != 1 || listing.Pagination.HasMore {
		t.Fatalf("page 2 = %d files hasMore=%v, want 1 file hasMore=false",
			len(listing.Files), listing.Pagination.HasMore)
	}
}

func TestListMediaShuffleIsStablePerSession(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	first := decodeEnvelope(t, env.request(t, http.MethodGet, "/api/v1/categories/"+id+"/media", "", "sess-1"))
	second := decodeEnvelope(t, env.request(t, http.MethodGet, "/api/v1/categories/"+id+"/media", "", "sess-1"))

	var a, b models.MediaListing
	if err := json.Unmarshal(first.Data, &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(second.Data, &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range a.Files {
		if a.Files[i].Name != b.Files[i].Name {
			t.Fatalf("session order changed between requests: %v vs %v", a.Files, b.Files)
		}
	}
}

func TestListMediaUnknownCategory(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.request(t, http.MethodGet, "/api/v1/categories/nope/media", "", "sess-1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListMediaBadParams(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	for _, query := range []string{"page=zero", "limit=-1", "shuffle=maybe", "page=0"} {
		rec := env.request(t, http.MethodGet, "/api/v1/categories/"+id+"/media?"+query, "", "sess-1")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestServeMedia(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	rec := env.request(t, http.MethodGet, "/media/"+id+"/a.jpg", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "media:a.jpg" {
		t.Errorf("body = %q, want file contents", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %s, want image/jpeg", ct)
	}
}

func TestServeMediaRejectsTraversal(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	rec := env.request(t, http.MethodGet, "/media/"+id+"/..%2f..%2fetc%2fpasswd", "", "")
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 400 or 404", rec.Code)
	}
}

func TestServeMediaMissingFile(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	rec := env.request(t, http.MethodGet, "/media/"+id+"/missing.jpg", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestIndexStatusIdle(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := env.addCategory(t, "Movies")

	rec := env.request(t, http.MethodGet, "/api/v1/categories/"+id+"/index", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	var status models.IndexingStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != models.IndexStatusComplete || status.Progress != 100 {
		t.Errorf("status = %+v, want complete at 100", status)
	}
}
