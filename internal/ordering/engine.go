// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package ordering serves paginated media listings with per-session
// traversal order. Each session walks a category in its own shuffled order
// that never repeats an item until every item has been seen; synchronized
// viewing and explicit non-shuffle requests use shared or sorted orders
// instead.
package ordering

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/tomtom215/projectionist/internal/cache"
	"github.com/tomtom215/projectionist/internal/index"
	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/mediatype"
	"github.com/tomtom215/projectionist/internal/metrics"
	"github.com/tomtom215/projectionist/internal/models"
)

// Mode selects which traversal order a listing request uses.
type Mode int

const (
	// ModePersonalShuffle walks the session's own randomized order.
	ModePersonalShuffle Mode = iota

	// ModeSyncShared walks the order captured from the sync host.
	ModeSyncShared

	// ModeSorted walks the deterministic name-sorted order.
	ModeSorted
)

// Config carries the ordering limits. All fields are required.
type Config struct {
	CacheExpiry            time.Duration
	SessionExpiry          time.Duration
	DefaultPageSize        int
	MaxPageSize            int
	MaxCacheEntries        int
	MaxSessionsPerCategory int
}

// Request is one listing request after transport decoding.
type Request struct {
	Category  models.Category
	SessionID string
	Page      int
	Limit     int
	Mode      Mode
	// ForceRefresh rescans the directory and reshuffles the session order.
	ForceRefresh bool
	// SharedOrder is the sync order to follow when Mode is ModeSyncShared.
	SharedOrder []string
}

// sessionOrder is one session's traversal state within a category.
type sessionOrder struct {
	order      []string
	seen       map[string]struct{}
	lastAccess time.Time
}

// categoryCache holds the scanned file list and per-session orders for one
// category.
type categoryCache struct {
	mu       sync.Mutex
	files    []models.FileEntry
	byName   map[string]models.FileEntry
	loadedAt time.Time
	sessions map[string]*sessionOrder
}

// Engine serves listings. It owns a bounded LRU of category caches and the
// per-session ordering state inside them.
type Engine struct {
	store   *index.Store
	indexer *index.Indexer
	cfg     Config

	caches *cache.LRU[*categoryCache]

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates an ordering engine backed by the given snapshot store
// and indexer.
func NewEngine(store *index.Store, indexer *index.Indexer, cfg Config) *Engine {
	caches := cache.NewLRU[*categoryCache](cfg.MaxCacheEntries, cfg.SessionExpiry)
	caches.SetOnEvict(func(key string, _ *categoryCache) {
		metrics.OrderingSessionEvictions.Inc()
		logging.Debug().Str("category", key).Msg("category cache evicted")
	})

	return &Engine{
		store:   store,
		indexer: indexer,
		cfg:     cfg,
		caches:  caches,
		//nolint:gosec // math/rand is fine for traversal shuffling
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// List serves one page of a category. The returned cached flag reports
// whether the file list came from cache or snapshot rather than a scan.
func (e *Engine) List(ctx context.Context, req Request) (*models.MediaListing, bool, error) {
	req.Limit = e.clampLimit(req.Limit)
	if req.Page < 1 {
		req.Page = 1
	}

	cc := e.categoryFor(req.Category.ID)

	cc.mu.Lock()
	defer cc.mu.Unlock()

	cached, indexing, err := e.ensureFiles(ctx, cc, req.Category, req.ForceRefresh)
	if err != nil {
		return nil, false, err
	}

	order := e.chooseOrder(cc, req)

	total := len(order)
	page, slice := paginate(order, req.Page, req.Limit)

	items := make([]models.MediaItem, 0, len(slice))
	for _, name := range slice {
		fe, ok := cc.byName[name]
		if !ok {
			continue
		}
		items = append(items, models.MediaItem{
			Name: fe.Name,
			Type: mediatype.KindOf(fe.Name),
			Size: fe.Size,
			URL:  mediaURL(req.Category.ID, fe.Name),
		})
	}

	// Personal traversal marks served items as seen.
	if req.Mode == ModePersonalShuffle && req.SessionID != "" {
		if so := cc.sessions[req.SessionID]; so != nil {
			for _, name := range slice {
				so.seen[name] = struct{}{}
			}
		}
	}

	listing := &models.MediaListing{
		Files: items,
		Pagination: models.Pagination{
			Page:     page,
			Limit:    req.Limit,
			Total:    total,
			HasMore:  page*req.Limit < total,
			Indexing: indexing,
		},
	}
	return listing, cached, nil
}

// SessionOrder returns a copy of a session's current traversal order for a
// category. Used when sync is enabled to capture the host's order, and for
// peer-view commands. Returns nil when the session has no order yet.
func (e *Engine) SessionOrder(categoryID, sessionID string) []string {
	cc, ok := e.caches.Peek(categoryID)
	if !ok {
		return nil
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()

	so := cc.sessions[sessionID]
	if so == nil {
		return nil
	}
	out := make([]string, len(so.order))
	copy(out, so.order)
	return out
}

// SortedOrder returns the deterministic name-sorted order for a category,
// scanning if needed. It is the fallback when a shared order is empty.
func (e *Engine) SortedOrder(ctx context.Context, cat models.Category) ([]string, error) {
	cc := e.categoryFor(cat.ID)

	cc.mu.Lock()
	defer cc.mu.Unlock()

	if _, _, err := e.ensureFiles(ctx, cc, cat, false); err != nil {
		return nil, err
	}
	return names(cc.files), nil
}

// DropSession discards a session's ordering state in every category cache.
func (e *Engine) DropSession(sessionID string) {
	for _, key := range e.caches.Keys() {
		if cc, ok := e.caches.Peek(key); ok {
			cc.mu.Lock()
			delete(cc.sessions, sessionID)
			cc.mu.Unlock()
		}
	}
}

// Sweep evicts expired category caches and idle session orders. Intended to
// be called periodically by a supervisor service.
func (e *Engine) Sweep() {
	e.caches.CleanupExpired()

	cutoff := time.Now().Add(-e.cfg.SessionExpiry)
	for _, key := range e.caches.Keys() {
		cc, ok := e.caches.Peek(key)
		if !ok {
			continue
		}
		cc.mu.Lock()
		for id, so := range cc.sessions {
			if so.lastAccess.Before(cutoff) {
				delete(cc.sessions, id)
				metrics.OrderingSessionEvictions.Inc()
			}
		}
		cc.mu.Unlock()
	}

	metrics.OrderingCategoryCaches.Set(float64(e.caches.Len()))
}

// categoryFor returns the cache entry for a category, creating it on demand.
func (e *Engine) categoryFor(categoryID string) *categoryCache {
	if cc, ok := e.caches.Get(categoryID); ok {
		return cc
	}
	cc := &categoryCache{
		byName:   make(map[string]models.FileEntry),
		sessions: make(map[string]*sessionOrder),
	}
	e.caches.Add(categoryID, cc)
	metrics.OrderingCategoryCaches.Set(float64(e.caches.Len()))
	return cc
}

// ensureFiles makes cc.files current, preferring in-memory cache, then the
// snapshot artifact, then a scan. Large directories go to the background
// indexer; whatever is already known (stale snapshot or the job's partial
// progress) serves in the meantime. Called with cc.mu held.
func (e *Engine) ensureFiles(ctx context.Context, cc *categoryCache, cat models.Category, force bool) (bool, *models.IndexingStatus, error) {
	if !force && cc.loadedAt.After(time.Now().Add(-e.cfg.CacheExpiry)) && cc.files != nil {
		st, ok := e.indexer.Status(cat.ID)
		switch {
		case ok && st.Status == models.IndexStatusRunning:
			// A background job is still filling this category in; pick up
			// whatever it has scanned beyond the cached listing.
			if partial := e.indexer.Partial(cat.ID); len(partial) > len(cc.files) {
				cc.setFiles(partial)
			}
			return true, &st, nil
		case ok && st.Status == models.IndexStatusComplete && len(cc.files) != st.Total:
			// The job finished after this cache entry was filled.
			if snap, err := e.store.Load(cat.Path); err == nil {
				cc.setFiles(snap.Files)
			} else if partial := e.indexer.Partial(cat.ID); partial != nil {
				cc.setFiles(partial)
			}
		}
		return true, nil, nil
	}

	if !force {
		if snap, err := e.store.Load(cat.Path); err == nil && e.store.Fresh(snap, e.cfg.CacheExpiry) {
			metrics.IndexSnapshotHits.Inc()
			cc.setFiles(snap.Files)
			return true, nil, nil
		}
	}
	metrics.IndexSnapshotMisses.Inc()

	if e.indexer.ShouldDefer(cat.Path) {
		if err := e.indexer.StartJob(cat.ID, cat.Path); err != nil {
			logging.Ctx(ctx).Warn().Str("category", cat.ID).Err(err).Msg("background index unavailable")
		}

		// Serve the best listing we have while the job runs.
		if snap, err := e.store.Load(cat.Path); err == nil && len(snap.Files) > 0 {
			cc.setFiles(snap.Files)
		} else if partial := e.indexer.Partial(cat.ID); partial != nil {
			cc.setFiles(partial)
		} else if cc.files == nil {
			cc.setFiles(nil)
		}

		st, _ := e.indexer.Status(cat.ID)
		return false, &st, nil
	}

	files, err := e.indexer.ScanAndPersist(ctx, cat.Path)
	if err != nil {
		return false, nil, fmt.Errorf("scan category %s: %w", cat.ID, err)
	}
	cc.setFiles(files)
	return false, nil, nil
}

// setFiles replaces the cached file list. Called with cc.mu held.
func (cc *categoryCache) setFiles(files []models.FileEntry) {
	if files == nil {
		files = []models.FileEntry{}
	}
	cc.files = files
	cc.byName = make(map[string]models.FileEntry, len(files))
	for _, fe := range files {
		cc.byName[fe.Name] = fe
	}
	cc.loadedAt = time.Now()
}

// chooseOrder resolves the traversal order for this request. Called with
// cc.mu held.
func (e *Engine) chooseOrder(cc *categoryCache, req Request) []string {
	switch req.Mode {
	case ModeSyncShared:
		e.dropSessionLocked(cc, req.SessionID)
		// Follow the captured host order, dropping names that no longer
		// exist. Empty capture falls back to sorted.
		if len(req.SharedOrder) > 0 {
			order := make([]string, 0, len(req.SharedOrder))
			for _, name := range req.SharedOrder {
				if _, ok := cc.byName[name]; ok {
					order = append(order, name)
				}
			}
			if len(order) > 0 {
				return order
			}
		}
		return names(cc.files)

	case ModeSorted:
		e.dropSessionLocked(cc, req.SessionID)
		return names(cc.files)

	default:
		return e.personalOrder(cc, req.SessionID, req.ForceRefresh)
	}
}

// dropSessionLocked discards a session's private shuffle state. Shared and
// sorted traversals invalidate it so a later return to personal shuffle
// starts fresh. Called with cc.mu held.
func (e *Engine) dropSessionLocked(cc *categoryCache, sessionID string) {
	if sessionID == "" {
		return
	}
	if _, ok := cc.sessions[sessionID]; ok {
		delete(cc.sessions, sessionID)
		logging.Debug().Str("session", sessionID).Msg("session shuffle state cleared for shared traversal")
	}
}

// personalOrder returns the session's shuffled order, reshuffling when the
// order is empty, stale against the current file list, exhausted, or a
// refresh was forced. Called with cc.mu held.
func (e *Engine) personalOrder(cc *categoryCache, sessionID string, force bool) []string {
	if sessionID == "" {
		return names(cc.files)
	}

	so := cc.sessions[sessionID]
	if so == nil {
		e.evictSessionsLocked(cc)
		so = &sessionOrder{seen: make(map[string]struct{})}
		cc.sessions[sessionID] = so
	}
	so.lastAccess = time.Now()

	reshuffle := force || len(so.order) == 0 || !sameNames(so.order, cc.byName)
	if !reshuffle && len(so.seen) >= len(so.order) && len(so.order) > 0 {
		// Every item has been seen: start a fresh traversal.
		reshuffle = true
	}

	if reshuffle {
		so.order = e.shuffled(names(cc.files))
		so.seen = make(map[string]struct{})
		metrics.OrderingReshuffles.Inc()
	}
	return so.order
}

// evictSessionsLocked makes room for one more session, dropping the oldest
// by last access when the per-category cap is reached. Called with cc.mu
// held.
func (e *Engine) evictSessionsLocked(cc *categoryCache) {
	for len(cc.sessions) >= e.cfg.MaxSessionsPerCategory {
		oldestID := ""
		var oldest time.Time
		for id, so := range cc.sessions {
			if oldestID == "" || so.lastAccess.Before(oldest) {
				oldestID = id
				oldest = so.lastAccess
			}
		}
		delete(cc.sessions, oldestID)
		metrics.OrderingSessionEvictions.Inc()
	}
}

// shuffled returns a Fisher-Yates shuffled copy.
func (e *Engine) shuffled(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)

	e.rngMu.Lock()
	e.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	e.rngMu.Unlock()
	return out
}

// clampLimit normalizes the page size into [1, MaxPageSize], applying the
// default when unset.
func (e *Engine) clampLimit(limit int) int {
	if limit == 0 {
		return e.cfg.DefaultPageSize
	}
	if limit < 1 {
		return 1
	}
	if limit > e.cfg.MaxPageSize {
		return e.cfg.MaxPageSize
	}
	return limit
}

// paginate clamps page to the last available page and returns the window.
// Out-of-range pages never error.
func paginate(order []string, page, limit int) (int, []string) {
	total := len(order)
	if total == 0 {
		return 1, nil
	}

	lastPage := (total + limit - 1) / limit
	if page > lastPage {
		page = lastPage
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * limit
	end := start + limit
	if end > total {
		end = total
	}
	return page, order[start:end]
}

// names extracts the name-sorted order from an already sorted file list.
func names(files []models.FileEntry) []string {
	out := make([]string, len(files))
	for i, fe := range files {
		out[i] = fe.Name
	}
	return out
}

// sameNames reports whether an order covers exactly the current file set.
func sameNames(order []string, byName map[string]models.FileEntry) bool {
	if len(order) != len(byName) {
		return false
	}
	for _, name := range order {
		if _, ok := byName[name]; !ok {
			return false
		}
	}
	return true
}

// mediaURL builds the client-facing URL for a file within a category.
func mediaURL(categoryID, name string) string {
	return "/media/" + url.PathEscape(categoryID) + "/" + url.PathEscape(name)
}
