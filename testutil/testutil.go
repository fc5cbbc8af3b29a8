// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielhkuo/civic-sync/cliparse"
	"github.com/danielhkuo/civic-sync/db"
)

// TestConfig returns the config used by handler and integration tests.
func TestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           0,
		DatabaseType:   "sqlite",
		SessionSecret:  "test-session-secret",
		RateLimit:      1000, // high enough to never interfere with tests
		RateWindowSecs: 60,
	}
}

// SetupTestDB creates a fresh sqlite database with the full schema in a
// per-test temp dir.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "civic_test.db")
	conn, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// SeedUser inserts a user row and returns its id.
func SeedUser(t *testing.T, conn *sql.DB, username string) string {
	t.Helper()

	id := "user-" + username
	_, err := conn.Exec(`
		INSERT INTO app_user (id, username, created_at) VALUES ($1, $2, $3)
	`, id, username, time.Now())
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return id
}

// SeedAgenda inserts an open agenda and returns its id.
func SeedAgenda(t *testing.T, conn *sql.DB, title string) string {
	t.Helper()

	id := "agenda-" + title
	_, err := conn.Exec(`
		INSERT INTO agenda (id, title, status, created_at)
		VALUES ($1, $2, 'open', $3)
	`, id, title, time.Now())
	if err != nil {
		t.Fatalf("Failed to seed agenda: %v", err)
	}
	return id
}

// SeedVote inserts a vote row directly.
func SeedVote(t *testing.T, conn *sql.DB, userID, kind, entityID, voteType string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO vote (user_id, entity_kind, entity_id, vote_type, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, kind, entityID, voteType, time.Now())
	if err != nil {
		t.Fatalf("Failed to seed vote: %v", err)
	}
}
