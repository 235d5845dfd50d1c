// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package progress persists the last viewed position per category so
// viewers can resume where they left off after a restart.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/projectionist/internal/logging"
)

const positionKeyPrefix = "position:"

var (
	// ErrDisabled is returned when position saving is turned off in the
	// configuration.
	ErrDisabled = errors.New("saving playback position is disabled")

	// ErrNotFound is returned when no position has been saved for the
	// category.
	ErrNotFound = errors.New("no saved position for category")
)

// Position is the saved playback state for a single category.
type Position struct {
	CategoryID string    `json:"category_id"`
	Index      int       `json:"index"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store persists playback positions in BadgerDB. When disabled, writes
// return ErrDisabled and reads return ErrNotFound so callers can treat
// the feature as absent without special-casing configuration.
type Store struct {
	db      *badger.DB
	enabled bool
}

// Open creates a position store at the given path. When enabled is
// false no database is opened and all operations are no-ops.
func Open(path string, enabled bool) (*Store, error) {
	if !enabled {
		return &Store{}, nil
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for positions: %w", err)
	}

	logging.Info().Str("path", path).Msg("Opened playback position store")
	return &Store{db: db, enabled: true}, nil
}

// NewWithDB wraps an already opened BadgerDB. Used by tests and callers
// that share a database.
func NewWithDB(db *badger.DB) *Store {
	return &Store{db: db, enabled: true}
}

// Enabled reports whether positions are being persisted.
func (s *Store) Enabled() bool {
	return s.enabled
}

// Save records the current index for a category.
func (s *Store) Save(categoryID string, index int) error {
	if !s.enabled {
		return ErrDisabled
	}
	if index < 0 {
		return fmt.Errorf("index must not be negative, got %d", index)
	}

	pos := Position{
		CategoryID: categoryID,
		Index:      index,
		UpdatedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(positionKeyPrefix + categoryID)
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set position: %w", err)
		}
		return nil
	})
}

// Get returns the saved position for a category.
func (s *Store) Get(categoryID string) (Position, error) {
	if !s.enabled {
		return Position{}, ErrNotFound
	}

	var pos Position
	err := s.db.View(func(txn *badger.Txn) error {
		key := []byte(positionKeyPrefix + categoryID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get position: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pos)
		})
	})
	if err != nil {
		return Position{}, err
	}
	return pos, nil
}

// Delete removes the saved position for a category. Deleting a missing
// position is not an error.
func (s *Store) Delete(categoryID string) error {
	if !s.enabled {
		return ErrDisabled
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(positionKeyPrefix + categoryID))
	})
}

// DeleteAll drops every saved position.
func (s *Store) DeleteAll() error {
	if !s.enabled {
		return ErrDisabled
	}
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(positionKeyPrefix)})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete position: %w", err)
			}
		}
		return nil
	})
}

// All returns every saved position keyed by category ID.
func (s *Store) All() (map[string]Position, error) {
	out := make(map[string]Position)
	if !s.enabled {
		return out, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(positionKeyPrefix),
			PrefetchValues: true,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var pos Position
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &pos)
			}); err != nil {
				return fmt.Errorf("decode position: %w", err)
			}
			out[pos.CategoryID] = pos
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
