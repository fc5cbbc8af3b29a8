// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS. Timestamps are always
// supplied by the application so the DDL works on sqlite and postgres.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Users
CREATE TABLE IF NOT EXISTS app_user (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL
);

-- Agendas (reform proposals)
CREATE TABLE IF NOT EXISTS agenda (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    category TEXT,
    status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'adopted', 'archived')),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agenda_status ON agenda(status);

-- Suggestions
CREATE TABLE IF NOT EXISTS suggestion (
    id TEXT PRIMARY KEY,
    agenda_id TEXT REFERENCES agenda(id) ON DELETE CASCADE,
    author_id TEXT NOT NULL REFERENCES app_user(id),
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    dedup_key TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_suggestion_agenda_id ON suggestion(agenda_id);

-- Opinions (free-text comments on agendas)
CREATE TABLE IF NOT EXISTS opinion (
    id TEXT PRIMARY KEY,
    agenda_id TEXT NOT NULL REFERENCES agenda(id) ON DELETE CASCADE,
    author_id TEXT NOT NULL REFERENCES app_user(id),
    body TEXT NOT NULL,
    dedup_key TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opinion_agenda_id ON opinion(agenda_id);

-- Votes: one row per (user, entity); same-type revote deletes the row
CREATE TABLE IF NOT EXISTS vote (
    user_id TEXT NOT NULL REFERENCES app_user(id),
    entity_kind TEXT NOT NULL CHECK (entity_kind IN ('agenda', 'suggestion')),
    entity_id TEXT NOT NULL,
    vote_type TEXT NOT NULL CHECK (vote_type IN ('like', 'dislike')),
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (user_id, entity_kind, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_entity ON vote(entity_kind, entity_id);
`
