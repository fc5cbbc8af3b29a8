// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// RecordStore is the larger structured tier: records keyed by
// (partition, key) in a sqlite or postgres database. The connection is
// opened lazily and exactly once; if the tier is unavailable every
// operation degrades to a miss instead of failing the caller.
type RecordStore struct {
	mu     sync.Mutex
	driver string
	dsn    string
	db     *sql.DB
	opened bool
	failed bool
}

const recordSchema = `
CREATE TABLE IF NOT EXISTS cache_record (
    part TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    written_at TIMESTAMP NOT NULL,
    PRIMARY KEY (part, key)
);
`

// NewRecordStore prepares a store for the given database/sql driver and
// DSN. No connection is made until the first operation.
func NewRecordStore(driver, dsn string) *RecordStore {
	return &RecordStore{driver: driver, dsn: dsn}
}

// conn returns the shared handle, opening it on first use. Returns nil
// once the tier has been marked unavailable.
func (s *RecordStore) conn() *sql.DB {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return s.db
	}
	s.opened = true

	if s.dsn == "" {
		s.failed = true
		return nil
	}

	db, err := sql.Open(s.driver, s.dsn)
	if err == nil {
		_, err = db.Exec(recordSchema)
	}
	if err != nil {
		slog.Warn("record store unavailable, degrading to kv tier only",
			"driver", s.driver, "error", err)
		s.failed = true
		if db != nil {
			db.Close()
		}
		return nil
	}

	s.db = db
	return s.db
}

// Available reports whether the tier opened successfully. Calling it
// triggers the lazy open.
func (s *RecordStore) Available() bool {
	return s.conn() != nil
}

// Get returns the record at (partition, key).
func (s *RecordStore) Get(ctx context.Context, partition, key string) ([]byte, bool) {
	db := s.conn()
	if db == nil {
		return nil, false
	}

	var value string
	err := db.QueryRowContext(ctx, `
		SELECT value FROM cache_record WHERE part = $1 AND key = $2
	`, partition, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		slog.Warn("record store read failed", "partition", partition, "error", err)
		return nil, false
	}
	return []byte(value), true
}

// Put upserts the record at (partition, key). Returns false when the
// write could not be performed.
func (s *RecordStore) Put(ctx context.Context, partition, key string, value []byte) bool {
	db := s.conn()
	if db == nil {
		return false
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO cache_record (part, key, value, written_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (part, key) DO UPDATE SET value = $3, written_at = $4
	`, partition, key, string(value), time.Now())
	if err != nil {
		slog.Warn("record store write failed", "partition", partition, "error", err)
		return false
	}
	return true
}

// GetAll returns every record in the partition keyed by record key.
func (s *RecordStore) GetAll(ctx context.Context, partition string) map[string][]byte {
	db := s.conn()
	if db == nil {
		return nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT key, value FROM cache_record WHERE part = $1
	`, partition)
	if err != nil {
		slog.Warn("record store scan failed", "partition", partition, "error", err)
		return nil
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			slog.Warn("record store scan failed", "partition", partition, "error", err)
			return out
		}
		out[k] = []byte(v)
	}
	return out
}

// Clear removes every record in the partition.
func (s *RecordStore) Clear(ctx context.Context, partition string) {
	db := s.conn()
	if db == nil {
		return
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM cache_record WHERE part = $1`, partition); err != nil {
		slog.Warn("record store clear failed", "partition", partition, "error", err)
	}
}

// Close releases the underlying connection, if one was opened.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
