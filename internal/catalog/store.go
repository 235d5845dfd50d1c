// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package catalog persists the category registry and resolves media file
// paths inside registered directories.
//
// Categories live in a single JSON file. The file is the source of truth
// across restarts; the in-memory copy is guarded by a RWMutex and written
// back atomically on every mutation. A corrupt registry file is renamed
// aside with a timestamped suffix and replaced with an empty registry so
// a bad deploy never blocks startup.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/projectionist/internal/logging"
	"github.com/tomtom215/projectionist/internal/models"
)

var (
	// ErrNotFound is returned when no category matches the given ID.
	ErrNotFound = errors.New("category not found")

	// ErrDuplicatePath is returned when a category with the same
	// filesystem path is already registered.
	ErrDuplicatePath = errors.New("a category with this path already exists")

	// ErrNotDirectory is returned when the registered path exists but is
	// not a directory.
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrInvalidFilename is returned by ResolveMediaPath for empty names,
	// traversal sequences, and paths that escape the category directory.
	ErrInvalidFilename = errors.New("invalid filename")
)

// Store is the category registry backed by a JSON file on disk.
type Store struct {
	path string

	mu         sync.RWMutex
	categories []models.Category
}

// NewStore creates a registry backed by the given file path. Call Load
// before use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the registry file into memory. A missing file initializes an
// empty registry on disk. A corrupt file is renamed aside and replaced
// with an empty registry rather than failing startup.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Info().Str("path", s.path).Msg("Categories file not found, initializing empty registry")
		s.categories = nil
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("reading categories file: %w", err)
	}

	var categories []models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		backup := fmt.Sprintf("%s.bak.%d", s.path, time.Now().Unix())
		logging.Error().
			Err(err).
			Str("path", s.path).
			Str("backup", backup).
			Msg("Invalid JSON in categories file, backing up and re-initializing")
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			return fmt.Errorf("backing up corrupt categories file: %w", renameErr)
		}
		s.categories = nil
		return s.saveLocked()
	}

	s.categories = categories
	logging.Info().
		Int("count", len(categories)).
		Str("path", s.path).
		Msg("Loaded categories")
	return nil
}

// List returns a copy of all registered categories in registration order.
func (s *Store) List() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Len returns the number of registered categories.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.categories)
}

// Get returns the category with the given ID.
func (s *Store) Get(id string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Category{}, ErrNotFound
}

// Add registers a new category. The path must be an existing directory
// and must not already be registered. The new category receives a
// generated UUID and is persisted before being returned.
func (s *Store) Add(name, path string) (models.Category, error) {
	if name == "" || path == "" {
		return models.Category{}, errors.New("category name and path are required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return models.Category{}, fmt.Errorf("category path: %w", err)
	}
	if !info.IsDir() {
		return models.Category{}, ErrNotDirectory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.Path == path {
			return models.Category{}, ErrDuplicatePath
		}
	}

	category := models.Category{
		ID:   uuid.New().String(),
		Name: name,
		Path: path,
	}
	s.categories = append(s.categories, category)

	if err := s.saveLocked(); err != nil {
		s.categories = s.categories[:len(s.categories)-1]
		return models.Category{}, err
	}

	logging.Info().
		Str("category_id", category.ID).
		Str("name", name).
		Msg("Added category")
	return category, nil
}

// Delete removes the category with the given ID and persists the
// registry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.categories {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}

	removed := s.categories[idx]
	s.categories = append(s.categories[:idx], s.categories[idx+1:]...)

	if err := s.saveLocked(); err != nil {
		return err
	}

	logging.Info().
		Str("category_id", removed.ID).
		Str("name", removed.Name).
		Msg("Deleted category")
	return nil
}

// ResolveMediaPath validates filename against the category directory and
// returns the absolute path of the media file. Traversal sequences,
// absolute filenames, and symlinks that escape the category directory
// are rejected.
func (s *Store) ResolveMediaPath(categoryID, filename string) (string, error) {
	category, err := s.Get(categoryID)
	if err != nil {
		return "", err
	}

	if filename == "" || strings.Contains(filename, "..") ||
		strings.HasPrefix(filename, "/") || strings.HasPrefix(filename, "\\") {
		return "", ErrInvalidFilename
	}

	base, err := filepath.EvalSymlinks(category.Path)
	if err != nil {
		return "", fmt.Errorf("resolving category path: %w", err)
	}

	full, err := filepath.EvalSymlinks(filepath.Join(category.Path, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolving media path: %w", err)
	}

	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		logging.Warn().
			Str("category_id", categoryID).
			Str("filename", filename).
			Msg("Blocked path traversal attempt")
		return "", ErrInvalidFilename
	}

	return full, nil
}

// saveLocked writes the registry atomically. Callers must hold the write
// lock.
func (s *Store) saveLocked() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating categories directory: %w", err)
		}
	}

	categories := s.categories
	if categories == nil {
		categories = []models.Category{}
	}

	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("writing categories file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing categories file: %w", err)
	}
	return nil
}
