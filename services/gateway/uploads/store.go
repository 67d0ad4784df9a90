// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package uploads stores the images customers attach to cake reservations.
//
// # Description
//
// Uploaded images are resized for the kitchen's display tablets and kept
// in an embedded BadgerDB keyed by artifact name (<clientId>.<ext>). The
// store doubles as the cleanup collaborator: when a reservation fails to
// persist after its order was accepted, the orchestrator deletes the
// artifact by name.
package uploads

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get for an unknown artifact name.
var ErrNotFound = errors.New("upload artifact not found")

// ArtifactStore is the upload storage and cleanup collaborator.
type ArtifactStore interface {
	// ProcessUpload validates and resizes an uploaded image, stores it,
	// and returns the artifact name.
	ProcessUpload(clientID, originalName string, data []byte) (string, error)

	// Get returns the stored artifact bytes.
	Get(name string) ([]byte, error)

	// Delete removes the artifact by name. Deleting an absent name is a
	// no-op, so cleanup paths can fire unconditionally.
	Delete(name string) error

	// Close releases the underlying database.
	Close() error
}

// Config holds store construction options.
//
// # Fields
//
//   - Dir: Directory for the Badger files. Ignored when InMemory is set.
//   - InMemory: Keep everything in RAM; for tests.
//   - Logger: Optional; slog.Default() when nil.
type Config struct {
	Dir      string
	InMemory bool
	Logger   *slog.Logger
}

// Store implements ArtifactStore on BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open creates the artifact store.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open upload store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// save writes the artifact bytes under the given name.
func (s *Store) save(name string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("store upload %s: %w", name, err)
	}
	s.logger.Info("upload stored", "name", name, "bytes", len(data))
	return nil
}

// Get implements ArtifactStore.
func (s *Store) Get(name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", name, err)
	}
	return data, nil
}

// Delete implements ArtifactStore.
func (s *Store) Delete(name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("delete upload %s: %w", name, err)
	}
	s.logger.Info("upload deleted", "name", name)
	return nil
}

// Close implements ArtifactStore.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ ArtifactStore = (*Store)(nil)
