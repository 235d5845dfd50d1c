// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/mediatype"
	"github.com/tomtom215/projectionist/internal/metrics"
	"github.com/tomtom215/projectionist/internal/models"
)

const (
	// scanChunkSize is how many entries are stat'ed between progress updates.
	scanChunkSize = 10

	// jobRetention is how long finished jobs stay queryable before the
	// janitor retires them.
	jobRetention = 5 * time.Minute

	// taskQueueSize bounds pending background jobs.
	taskQueueSize = 64
)

// ErrQueueFull is returned when the background task queue cannot accept
// another job.
var ErrQueueFull = errors.New("index: task queue full")

// job tracks one background index run. Guarded by Indexer.mu.
type job struct {
	categoryID string
	path       string

	status      string
	indexed     int
	total       int
	errMsg      string
	startedAt   time.Time
	completedAt time.Time

	// partial holds entries scanned so far, served while the job runs and
	// after a failed run.
	partial []models.FileEntry
}

// Indexer scans category directories and runs background index jobs on a
// fixed worker pool fed by a bounded task channel. One job per category:
// requests for a category that is already being indexed join the running
// job instead of starting another.
type Indexer struct {
	store     *Store
	threshold int
	workers   int

	mu   sync.Mutex
	jobs map[string]*job

	tasks chan *job
}

// NewIndexer creates an Indexer. threshold is the directory entry count
// above which indexing should go to the background; workers is the pool
// size.
func NewIndexer(store *Store, threshold, workers int) *Indexer {
	if workers < 1 {
		workers = 1
	}
	return &Indexer{
		store:     store,
		threshold: threshold,
		workers:   workers,
		jobs:      make(map[string]*job),
		tasks:     make(chan *job, taskQueueSize),
	}
}

// Serve runs the worker pool and the finished-job janitor until ctx is
// canceled. Implements suture.Service.
func (ix *Indexer) Serve(ctx context.Context) error {
	logging.Info().Int("workers", ix.workers).Msg("index worker pool starting")

	var wg sync.WaitGroup
	for i := 0; i < ix.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-ix.tasks:
					ix.runJob(ctx, j)
				}
			}
		}()
	}

	janitor := time.NewTicker(time.Minute)
	defer janitor.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-janitor.C:
			ix.retireFinished()
		}
	}
}

// String implements suture.Service naming.
func (ix *Indexer) String() string {
	return "index.Indexer"
}

// ShouldDefer reports whether a directory is large enough that indexing
// belongs in the background. Only media entries count toward the
// threshold, matching what a job would index; subdirectories and the
// snapshot directory do not inflate the decision. Unreadable directories
// are not deferred; the caller will surface the error from the
// synchronous path.
func (ix *Indexer) ShouldDefer(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !mediatype.IsMedia(entry.Name()) {
			continue
		}
		count++
		if count > ix.threshold {
			return true
		}
	}
	return false
}

// Scan synchronously indexes a directory: media files only, name-sorted,
// with size and mtime. ctx aborts the scan between stat chunks.
func (ix *Indexer) Scan(ctx context.Context, path string) ([]models.FileEntry, error) {
	start := time.Now()
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}

	files := make([]models.FileEntry, 0, len(entries))
	for i, entry := range entries {
		if i%scanChunkSize == 0 {
			select {
			case <-ctx.Done():
				return files, ctx.Err()
			default:
			}
		}
		fe, ok := statEntry(path, entry)
		if !ok {
			continue
		}
		files = append(files, fe)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	metrics.IndexScanDuration.Observe(time.Since(start).Seconds())
	return files, nil
}

// ScanAndPersist scans synchronously and writes the snapshot artifact.
// Artifact write failures are logged, not returned: the listing serves
// regardless.
func (ix *Indexer) ScanAndPersist(ctx context.Context, path string) ([]models.FileEntry, error) {
	files, err := ix.Scan(ctx, path)
	if err != nil {
		return files, err
	}

	snap := &models.IndexSnapshot{
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Files:     files,
	}
	if err := ix.store.Save(path, snap); err != nil {
		logging.Warn().Str("path", path).Err(err).Msg("snapshot write failed")
	}
	return files, nil
}

// StartJob queues a background index run for a category. When a job for the
// category is already running the request joins it and no new job starts.
// Returns ErrQueueFull when the task queue cannot take another job.
func (ix *Indexer) StartJob(categoryID, path string) error {
	ix.mu.Lock()
	if j, exists := ix.jobs[categoryID]; exists && j.status == models.IndexStatusRunning {
		ix.mu.Unlock()
		return nil
	}

	j := &job{
		categoryID: categoryID,
		path:       path,
		status:     models.IndexStatusRunning,
		startedAt:  time.Now(),
	}
	ix.jobs[categoryID] = j
	ix.mu.Unlock()

	select {
	case ix.tasks <- j:
		metrics.IndexJobsStarted.Inc()
		return nil
	default:
		ix.mu.Lock()
		delete(ix.jobs, categoryID)
		ix.mu.Unlock()
		return ErrQueueFull
	}
}

// Status returns the job status for a category, or false when no job is
// tracked. Progress stays below 100 while the job runs and reports 50 when
// the total is not yet known.
func (ix *Indexer) Status(categoryID string) (models.IndexingStatus, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	j, exists := ix.jobs[categoryID]
	if !exists {
		return models.IndexingStatus{}, false
	}
	return models.IndexingStatus{
		Status:   j.status,
		Progress: jobProgress(j),
		Indexed:  j.indexed,
		Total:    j.total,
		Error:    j.errMsg,
	}, true
}

// Partial returns a copy of the entries a running (or failed) job has
// scanned so far.
func (ix *Indexer) Partial(categoryID string) []models.FileEntry {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	j, exists := ix.jobs[categoryID]
	if !exists || len(j.partial) == 0 {
		return nil
	}
	out := make([]models.FileEntry, len(j.partial))
	copy(out, j.partial)
	return out
}

// runJob executes one background index run: chunked scan with progress
// updates, snapshot write on success.
func (ix *Indexer) runJob(ctx context.Context, j *job) {
	logger := logging.WithComponent("indexer")
	logger.Info().Str("category", j.categoryID).Str("path", j.path).Msg("background index started")

	entries, err := os.ReadDir(j.path)
	if err != nil {
		ix.finishJob(j, nil, fmt.Errorf("read directory: %w", err))
		return
	}

	// Count media candidates first so progress has a denominator.
	total := 0
	for _, entry := range entries {
		if !entry.IsDir() && mediatype.IsMedia(entry.Name()) {
			total++
		}
	}
	ix.mu.Lock()
	j.total = total
	ix.mu.Unlock()

	files := make([]models.FileEntry, 0, total)
	for i, entry := range entries {
		if i%scanChunkSize == 0 {
			select {
			case <-ctx.Done():
				ix.finishJob(j, files, ctx.Err())
				return
			default:
			}
			ix.mu.Lock()
			j.indexed = len(files)
			j.partial = files
			ix.mu.Unlock()
		}
		fe, ok := statEntry(j.path, entry)
		if !ok {
			continue
		}
		files = append(files, fe)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	ix.finishJob(j, files, nil)
}

// finishJob records the terminal state and persists the snapshot on success.
func (ix *Indexer) finishJob(j *job, files []models.FileEntry, err error) {
	duration := time.Since(j.startedAt)

	if err != nil {
		ix.mu.Lock()
		j.status = models.IndexStatusError
		j.errMsg = err.Error()
		j.partial = files
		j.completedAt = time.Now()
		ix.mu.Unlock()

		metrics.RecordIndexJob(models.IndexStatusError, duration)
		logging.Warn().Str("category", j.categoryID).Err(err).Msg("background index failed")
		return
	}

	snap := &models.IndexSnapshot{
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Files:     files,
	}
	if serr := ix.store.Save(j.path, snap); serr != nil {
		logging.Warn().Str("category", j.categoryID).Err(serr).Msg("snapshot write failed")
	}

	ix.mu.Lock()
	j.status = models.IndexStatusComplete
	j.indexed = len(files)
	j.total = len(files)
	j.partial = files
	j.completedAt = time.Now()
	ix.mu.Unlock()

	metrics.RecordIndexJob(models.IndexStatusComplete, duration)
	logging.Info().Str("category", j.categoryID).Int("files", len(files)).
		Dur("duration", duration).Msg("background index complete")
}

// retireFinished drops finished jobs older than the retention window.
func (ix *Indexer) retireFinished() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	cutoff := time.Now().Add(-jobRetention)
	for id, j := range ix.jobs {
		if j.status != models.IndexStatusRunning && j.completedAt.Before(cutoff) {
			delete(ix.jobs, id)
		}
	}
}

// jobProgress computes the reported percentage. Capped at 99 while running;
// 50 when the total is unknown. Called with ix.mu held.
func jobProgress(j *job) int {
	switch j.status {
	case models.IndexStatusComplete:
		return 100
	case models.IndexStatusError:
		return 0
	}
	if j.total <= 0 {
		return 50
	}
	pct := j.indexed * 100 / j.total
	if pct > 99 {
		pct = 99
	}
	return pct
}

// statEntry converts one directory entry into a FileEntry, filtering out
// subdirectories, non-media files and entries that fail to stat.
func statEntry(dir string, entry os.DirEntry) (models.FileEntry, bool) {
	if entry.IsDir() || !mediatype.IsMedia(entry.Name()) {
		return models.FileEntry{}, false
	}
	info, err := entry.Info()
	if err != nil {
		logging.Debug().Str("file", filepath.Join(dir, entry.Name())).Err(err).Msg("stat failed, skipping")
		return models.FileEntry{}, false
	}
	return models.FileEntry{
		Name:  entry.Name(),
		Size:  info.Size(),
		Mtime: float64(info.ModTime().UnixNano()) / float64(time.Second),
	}, true
}
