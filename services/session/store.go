// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session persists pending clarification state between the
// request that raised a clarification and the follow-up that answers
// it. Entries are keyed by a server-generated query_id and expire via
// badger's value TTL.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	// DefaultTTL is how long a pending clarification stays answerable.
	DefaultTTL = 30 * time.Minute

	// gcInterval is how often the value-log garbage collector runs.
	gcInterval = 10 * time.Minute

	// gcDiscardRatio reclaims a value-log file when this share of it
	// is stale.
	gcDiscardRatio = 0.5
)

// ErrNotFound is returned for unknown or expired query IDs.
var ErrNotFound = errors.New("clarification state not found or expired")

// Config configures the store.
type Config struct {
	// Dir is the badger database directory. Empty selects an
	// in-memory database (tests).
	Dir string

	// TTL is the entry lifetime. Zero selects DefaultTTL.
	TTL time.Duration
}

// DefaultConfig stores sessions under dataDir/sessions.
func DefaultConfig(dataDir string) Config {
	return Config{Dir: dataDir + "/sessions", TTL: DefaultTTL}
}

// InMemoryConfig is for tests.
func InMemoryConfig() Config {
	return Config{TTL: DefaultTTL}
}

// Store is the badger-backed clarification store.
type Store struct {
	db  *badger.DB
	ttl time.Duration

	stopGC chan struct{}
	doneGC chan struct{}
	once   sync.Once
}

// Open opens the store and starts the GC runner.
func Open(cfg Config) (*Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(badgerSlogger{}).
		WithInMemory(cfg.Dir == "")

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	s := &Store{
		db:     db,
		ttl:    ttl,
		stopGC: make(chan struct{}),
		doneGC: make(chan struct{}),
	}
	go s.runGC()
	return s, nil
}

// Close stops the GC runner and closes the database.
func (s *Store) Close() error {
	s.once.Do(func() {
		close(s.stopGC)
		<-s.doneGC
	})
	return s.db.Close()
}

// Put stores state under a fresh query_id and returns the id.
func (s *Store) Put(state any) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encoding clarification state: %w", err)
	}
	id := uuid.NewString()
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(id), data).WithTTL(s.ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		return "", fmt.Errorf("storing clarification state: %w", err)
	}
	return id, nil
}

// Get loads the state for queryID into out. Returns ErrNotFound for
// unknown or expired ids.
func (s *Store) Get(queryID string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(queryID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// Delete removes an answered clarification. Unknown ids are not an
// error.
func (s *Store) Delete(queryID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(queryID))
	})
}

// runGC drives badger's value-log GC until Close.
func (s *Store) runGC() {
	defer close(s.doneGC)
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// RunValueLogGC reclaims at most one file per call; loop
			// until it reports nothing left.
			for {
				if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil {
					break
				}
			}
		case <-s.stopGC:
			return
		}
	}
}

// badgerSlogger adapts badger's logger interface onto slog. Badger is
// chatty at INFO; its info output maps to debug.
type badgerSlogger struct{}

func (badgerSlogger) Errorf(format string, args ...any) {
	slog.Error("badger: " + trimmedf(format, args...))
}

func (badgerSlogger) Warningf(format string, args ...any) {
	slog.Warn("badger: " + trimmedf(format, args...))
}

func (badgerSlogger) Infof(format string, args ...any) {
	slog.Debug("badger: " + trimmedf(format, args...))
}

func (badgerSlogger) Debugf(format string, args ...any) {
	slog.Debug("badger: " + trimmedf(format, args...))
}

func trimmedf(format string, args ...any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
