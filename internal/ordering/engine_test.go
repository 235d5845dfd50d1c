// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package ordering

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/tomtom215/projectionist/internal/index"
	"github.com/tomtom215/projectionist/internal/models"
)

func testConfig() Config {
	return Config{
		CacheExpiry:            5 * time.Minute,
		SessionExpiry:          time.Hour,
		DefaultPageSize:        10,
		MaxPageSize:            100,
		MaxCacheEntries:        100,
		MaxSessionsPerCategory: 50,
	}
}

func newTestEngine(cfg Config) *Engine {
	store := index.NewStore()
	return NewEngine(store, index.NewIndexer(store, 1000, 1), cfg)
}

// newCategory creates a directory with n media files and returns it.
func newCategory(t *testing.T, n int) models.Category {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		name := filepath.Join(dir, fmt.Sprintf("file-%03d.jpg", i))
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return models.Category{ID: filepath.Base(dir), Name: "test", Path: dir}
}

// collect pages through the whole listing and returns the names in served
// order.
func collect(t *testing.T, e *Engine, req Request) []string {
	t.Helper()
	var out []string
	for page := 1; ; page++ {
		req.Page = page
		listing, _, err := e.List(context.Background(), req)
		if err != nil {
			t.Fatalf("List(page=%d) error: %v", page, err)
		}
		for _, item := range listing.Files {
			out = append(out, item.Name)
		}
		if !listing.Pagination.HasMore {
			return out
		}
	}
}

func TestPersonalOrderCoversAllOnce(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 25)

	got := collect(t, e, Request{Category: cat, SessionID: "s1", Limit: 10})
	if len(got) != 25 {
		t.Fatalf("traversal served %d items, want 25", len(got))
	}

	seen := make(map[string]int)
	for _, name := range got {
		seen[name]++
	}
	for name, count := range seen {
		if count != 1 {
			t.Errorf("%q served %d times in one traversal", name, count)
		}
	}
}

func TestPersonalOrderStableAcrossPages(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 30)

	first := collect(t, e, Request{Category: cat, SessionID: "s1", Limit: 7})

	// Re-reading an early page must show the same order (not reshuffled),
	// because the traversal is only exhausted, not forced.
	listing, _, err := e.List(context.Background(), Request{Category: cat, SessionID: "s1", Page: 1, Limit: 7})
	if err != nil {
		t.Fatal(err)
	}
	// Exhaustion triggered a reshuffle on this access; the new order is
	// still a permutation of the same files.
	if len(listing.Files) != 7 {
		t.Errorf("page 1 after exhaustion has %d items, want 7", len(listing.Files))
	}
	_ = first
}

func TestSessionIsolation(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 40)

	a := collect(t, e, Request{Category: cat, SessionID: "alice", Limit: 40})
	b := collect(t, e, Request{Category: cat, SessionID: "bob", Limit: 40})

	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	if !reflect.DeepEqual(sortedA, sortedB) {
		t.Fatal("both sessions should see the same file set")
	}
	// 40! permutations; identical orders would mean shared state.
	if reflect.DeepEqual(a, b) {
		t.Error("independent sessions received identical shuffle order")
	}
}

func TestForceRefreshReshuffles(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 30)

	first := e.mustOrder(t, cat, "s1", false)
	second := e.mustOrder(t, cat, "s1", true)

	if len(first) != len(second) {
		t.Fatalf("order lengths differ: %d vs %d", len(first), len(second))
	}
	if reflect.DeepEqual(first, second) {
		t.Error("force refresh should reshuffle the session order")
	}
}

// mustOrder lists page 1 and returns the full session order.
func (e *Engine) mustOrder(t *testing.T, cat models.Category, session string, force bool) []string {
	t.Helper()
	_, _, err := e.List(context.Background(), Request{
		Category: cat, SessionID: session, Page: 1, Limit: 10, ForceRefresh: force,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e.SessionOrder(cat.ID, session)
}

func TestSortedMode(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 15)

	got := collect(t, e, Request{Category: cat, SessionID: "s1", Limit: 5, Mode: ModeSorted})
	if !sort.StringsAreSorted(got) {
		t.Errorf("sorted mode served out of order: %v", got)
	}
	if len(got) != 15 {
		t.Errorf("served %d items, want 15", len(got))
	}
}

func TestSyncSharedOrder(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 5)

	shared := []string{"file-003.jpg", "file-001.jpg", "file-004.jpg", "ghost.jpg"}
	listing, _, err := e.List(context.Background(), Request{
		Category: cat, SessionID: "viewer", Page: 1, Limit: 10,
		Mode: ModeSyncShared, SharedOrder: shared,
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"file-003.jpg", "file-001.jpg", "file-004.jpg"}
	got := make([]string, len(listing.Files))
	for i, f := range listing.Files {
		got[i] = f.Name
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("shared order = %v, want %v (missing files dropped)", got, want)
	}
}

func TestSyncSharedEmptyFallsBackSorted(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 8)

	listing, _, err := e.List(context.Background(), Request{
		Category: cat, SessionID: "viewer", Page: 1, Limit: 10, Mode: ModeSyncShared,
	})
	if err != nil {
		t.Fatal(err)
	}

	got := make([]string, len(listing.Files))
	for i, f := range listing.Files {
		got[i] = f.Name
	}
	if !sort.StringsAreSorted(got) {
		t.Errorf("empty shared order should fall back to sorted, got %v", got)
	}
}

func TestPaginationClamp(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 25)

	listing, _, err := e.List(context.Background(), Request{
		Category: cat, SessionID: "s1", Page: 99, Limit: 10,
	})
	if err != nil {
		t.Fatal(err)
	}

	if listing.Pagination.Page != 3 {
		t.Errorf("page = %d, want clamp to last page 3", listing.Pagination.Page)
	}
	if len(listing.Files) != 5 {
		t.Errorf("last page has %d items, want 5", len(listing.Files))
	}
	if listing.Pagination.HasMore {
		t.Error("last page must report hasMore=false")
	}
	if listing.Pagination.Total != 25 {
		t.Errorf("total = %d, want 25", listing.Pagination.Total)
	}
}

func TestHasMore(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 20)

	listing, _, err := e.List(context.Background(), Request{
		Category: cat, SessionID: "s1", Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !listing.Pagination.HasMore {
		t.Error("page 1 of 2 should report hasMore=true")
	}

	listing, _, err = e.List(context.Background(), Request{
		Category: cat, SessionID: "s1", Page: 2, Limit: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if listing.Pagination.HasMore {
		t.Error("final page should report hasMore=false")
	}
}

func TestLimitClamp(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 5)

	tests := []struct {
		limit int
		want  int
	}{
		{0, 10},    // default
		{-3, 1},    // below range
		{500, 100}, // above range
		{25, 25},   // in range
	}
	for _, tt := range tests {
		listing, _, err := e.List(context.Background(), Request{
			Category: cat, SessionID: "s1", Page: 1, Limit: tt.limit,
		})
		if err != nil {
			t.Fatal(err)
		}
		if listing.Pagination.Limit != tt.want {
			t.Errorf("limit %d normalized to %d, want %d", tt.limit, listing.Pagination.Limit, tt.want)
		}
	}
}

func TestEmptyCategory(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 0)

	listing, _, err := e.List(context.Background(), Request{
		Category: cat, SessionID: "s1", Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Files) != 0 || listing.Pagination.Total != 0 {
		t.Errorf("empty category listing = %+v", listing)
	}
	if listing.Pagination.HasMore {
		t.Error("empty category should report hasMore=false")
	}
}

func TestMissingDirectoryErrors(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := models.Category{ID: "ghost", Name: "ghost", Path: "/does/not/exist"}

	if _, _, err := e.List(context.Background(), Request{Category: cat, SessionID: "s1", Page: 1}); err == nil {
		t.Error("listing a missing directory should fail")
	}
}

func TestMediaItemFields(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 1)

	listing, _, err := e.List(context.Background(), Request{
		Category: cat, SessionID: "s1", Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(listing.Files))
	}

	item := listing.Files[0]
	if item.Type != "image" {
		t.Errorf("type = %q, want image", item.Type)
	}
	wantURL := "/media/" + cat.ID + "/file-000.jpg"
	if item.URL != wantURL {
		t.Errorf("url = %q, want %q", item.URL, wantURL)
	}
	if item.Size != 1 {
		t.Errorf("size = %d, want 1", item.Size)
	}
}

func TestSessionCapEviction(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSessionsPerCategory = 3
	e := newTestEngine(cfg)
	cat := newCategory(t, 5)

	for i := 0; i < 5; i++ {
		_, _, err := e.List(context.Background(), Request{
			Category: cat, SessionID: fmt.Sprintf("s%d", i), Page: 1, Limit: 10,
		})
		if err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond) // distinct lastAccess
	}

	cc, ok := e.caches.Peek(cat.ID)
	if !ok {
		t.Fatal("category cache missing")
	}
	cc.mu.Lock()
	n := len(cc.sessions)
	_, oldestAlive := cc.sessions["s0"]
	cc.mu.Unlock()

	if n > 3 {
		t.Errorf("sessions = %d, want capped at 3", n)
	}
	if oldestAlive {
		t.Error("oldest session should have been evicted first")
	}
}

func TestDropSession(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 5)

	if _, _, err := e.List(context.Background(), Request{Category: cat, SessionID: "gone", Page: 1}); err != nil {
		t.Fatal(err)
	}
	if e.SessionOrder(cat.ID, "gone") == nil {
		t.Fatal("session order should exist before drop")
	}

	e.DropSession("gone")
	if e.SessionOrder(cat.ID, "gone") != nil {
		t.Error("session order should be gone after DropSession")
	}
}

func TestSortedOrderHelper(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 4)

	order, err := e.SortedOrder(context.Background(), cat)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"file-000.jpg", "file-001.jpg", "file-002.jpg", "file-003.jpg"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("SortedOrder = %v, want %v", order, want)
	}
}

func TestSharedModeClearsPrivateShuffle(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 12)

	first := e.mustOrder(t, cat, "s1", false)
	if len(first) != 12 {
		t.Fatalf("private order length = %d, want 12", len(first))
	}

	// Following the host's order invalidates the session's own shuffle,
	// so dropping out of sync later starts a fresh traversal.
	_, _, err := e.List(context.Background(), Request{
		Category: cat, SessionID: "s1", Page: 1, Limit: 10,
		Mode: ModeSyncShared, SharedOrder: []string{"file-001.jpg", "file-000.jpg"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if order := e.SessionOrder(cat.ID, "s1"); order != nil {
		t.Errorf("private shuffle survived shared traversal: %v", order)
	}
}

func TestSortedModeClearsPrivateShuffle(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 6)

	if got := e.mustOrder(t, cat, "s1", false); len(got) != 6 {
		t.Fatalf("private order length = %d, want 6", len(got))
	}

	_, _, err := e.List(context.Background(), Request{
		Category: cat, SessionID: "s1", Page: 1, Limit: 10, Mode: ModeSorted,
	})
	if err != nil {
		t.Fatal(err)
	}

	if order := e.SessionOrder(cat.ID, "s1"); order != nil {
		t.Errorf("private shuffle survived sorted traversal: %v", order)
	}
}

func TestDeferredIndexListingCatchesUp(t *testing.T) {
	store := index.NewStore()
	ix := index.NewIndexer(store, 10, 1)
	e := NewEngine(store, ix, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ix.Serve(ctx) //nolint:errcheck

	cat := newCategory(t, 30)

	// Above the threshold the scan is handed to the background indexer
	// and the first listing surfaces its progress.
	listing, _, err := e.List(ctx, Request{Category: cat, SessionID: "s1", Page: 1, Limit: 50, Mode: ModeSorted})
	if err != nil {
		t.Fatal(err)
	}
	if listing.Pagination.Indexing == nil {
		t.Fatal("deferred listing must surface indexing progress")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if st, ok := ix.Status(cat.ID); ok && st.Status == models.IndexStatusComplete {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("background index job did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The category cache is still fresh, but the finished job must show
	// through instead of the listing captured mid-index.
	listing, _, err = e.List(ctx, Request{Category: cat, SessionID: "s1", Page: 1, Limit: 50, Mode: ModeSorted})
	if err != nil {
		t.Fatal(err)
	}
	if listing.Pagination.Total != 30 {
		t.Errorf("total after job completion = %d, want 30", listing.Pagination.Total)
	}
	if len(listing.Files) != 30 {
		t.Errorf("files after job completion = %d, want 30", len(listing.Files))
	}
	if listing.Pagination.Indexing != nil {
		t.Errorf("completed job should not report indexing, got %+v", listing.Pagination.Indexing)
	}
}

func TestNewFileInvalidatesOrder(t *testing.T) {
	e := newTestEngine(testConfig())
	cat := newCategory(t, 5)

	first := e.mustOrder(t, cat, "s1", false)
	if len(first) != 5 {
		t.Fatalf("order length = %d, want 5", len(first))
	}

	// Add a file and force a rescan; the stale order no longer matches the
	// file set and must be rebuilt to include the new file.
	if err := os.WriteFile(filepath.Join(cat.Path, "zzz-new.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	second := e.mustOrder(t, cat, "s1", true)
	if len(second) != 6 {
		t.Errorf("order length after new file = %d, want 6", len(second))
	}
}
