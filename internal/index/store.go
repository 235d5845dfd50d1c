// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package index maintains per-category media indexes. A directory scan
// produces an IndexSnapshot that is persisted as a JSON artifact inside the
// category directory and reused while fresh. Large directories are indexed
// in the background by a bounded worker pool; see Indexer.
package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/models"
)

// snapshotDir and snapshotFile locate the index artifact relative to the
// category directory.
const (
	snapshotDir  = ".projectionist"
	snapshotFile = "index.json"
)

// ErrSnapshotNotFound is returned by Load when no usable snapshot exists.
var ErrSnapshotNotFound = errors.New("index: snapshot not found")

// Store persists index snapshots as JSON artifacts.
// The zero value is usable.
type Store struct{}

// NewStore creates a snapshot store.
func NewStore() *Store {
	return &Store{}
}

// SnapshotPath returns where the snapshot artifact for a category lives.
func (s *Store) SnapshotPath(categoryPath string) string {
	return filepath.Join(categoryPath, snapshotDir, snapshotFile)
}

// Load reads the snapshot for a category directory. A corrupt artifact is
// treated the same as a missing one: it is logged and ErrSnapshotNotFound
// is returned, so callers fall back to a scan.
func (s *Store) Load(categoryPath string) (*models.IndexSnapshot, error) {
	path := s.SnapshotPath(categoryPath)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var snap models.IndexSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logging.Warn().Str("path", path).Err(err).Msg("discarding corrupt index snapshot")
		return nil, ErrSnapshotNotFound
	}
	if snap.Files == nil {
		snap.Files = []models.FileEntry{}
	}

	return &snap, nil
}

// Save writes the snapshot atomically (temp file + rename). Failures are
// returned but callers treat them as non-fatal: serving a listing never
// depends on the artifact being written.
func (s *Store) Save(categoryPath string, snap *models.IndexSnapshot) error {
	path := s.SnapshotPath(categoryPath)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), snapshotFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit snapshot: %w", err)
	}

	return nil
}

// Fresh reports whether a snapshot is recent enough to serve without
// rescanning the directory.
func (s *Store) Fresh(snap *models.IndexSnapshot, maxAge time.Duration) bool {
	if snap == nil {
		return false
	}
	age := time.Since(time.Unix(0, int64(snap.Timestamp*float64(time.Second))))
	return age >= 0 && age < maxAge
}
