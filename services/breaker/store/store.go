// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store caches ranked key-recovery results in BadgerDB.
//
// Only reproducible runs are cached: a run with a fixed seed over the same
// ciphertext, adapter and budget always produces the same ranking, so the
// stored ranking can be returned instead of searching again.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces result records.
const keyPrefix = "result/"

// ErrNotFound is returned by Get when no record exists for a fingerprint.
var ErrNotFound = errors.New("result not found")

// Config holds configuration for a ResultStore.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites enables synchronous writes.
	SyncWrites bool

	// TTL expires records after this long. 0 keeps them forever.
	TTL time.Duration

	// Logger receives BadgerDB's internal log lines. nil disables them.
	Logger *slog.Logger
}

// DefaultConfig returns a persistent configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// StoredCandidate is one ranked candidate in its serialized form. The key is
// kept as text and parsed back through the adapter that produced it.
type StoredCandidate struct {
	Key       string  `json:"key"`
	Plaintext string  `json:"plaintext"`
	Score     float64 `json:"score"`
}

// Record is one cached ranking.
type Record struct {
	Fingerprint string            `json:"fingerprint"`
	RunID       string            `json:"run_id"`
	Adapter     string            `json:"adapter"`
	Candidates  []StoredCandidate `json:"candidates"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ResultStore is a BadgerDB-backed cache of rankings keyed by fingerprint.
//
// Thread Safety: Safe for concurrent use.
type ResultStore struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens a result store.
//
// Inputs:
//   - cfg: Path is required unless InMemory is set. The directory is created
//     if missing.
//
// Outputs:
//   - *ResultStore: Caller must Close it.
//   - error: Non-nil if the path is missing or the database cannot open.
func Open(cfg Config) (*ResultStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent result store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create result store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.With(slog.String("component", "result_store"))})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	return &ResultStore{db: db, ttl: cfg.TTL}, nil
}

// OpenInMemory opens an in-memory store.
func OpenInMemory() (*ResultStore, error) {
	return Open(InMemoryConfig())
}

// Close closes the database.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// Get returns the record stored under fingerprint, or ErrNotFound.
func (s *ResultStore) Get(ctx context.Context, fingerprint string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + fingerprint))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", fingerprint, err)
	}
	return &rec, nil
}

// Put stores rec under rec.Fingerprint, replacing any previous record.
func (s *ResultStore) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if rec == nil || rec.Fingerprint == "" {
		return errors.New("record fingerprint is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+rec.Fingerprint), val)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes the record under fingerprint. Missing records are not an error.
func (s *ResultStore) Delete(ctx context.Context, fingerprint string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + fingerprint))
	})
}

// Len counts stored records.
func (s *ResultStore) Len() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Fingerprint hashes the JSON encoding of parts into a stable hex key.
// Parts must marshal deterministically; structs and slices do, maps are
// sorted by encoding/json.
func Fingerprint(parts ...any) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for i, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", fmt.Errorf("fingerprint part %d: %w", i, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
