// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/danielhkuo/civic-sync/auth"
	"github.com/danielhkuo/civic-sync/cliparse"
	"github.com/danielhkuo/civic-sync/models"
)

// userFromRequest resolves the Bearer session token to a user row.
// Returns nil with no error when the request is simply unauthenticated.
func userFromRequest(db *sql.DB, cfg cliparse.Config, r *http.Request) (*models.User, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, nil
	}

	userID, err := auth.VerifySessionToken(token, cfg.SessionSecret)
	if err != nil {
		return nil, nil
	}

	var u models.User
	err = db.QueryRow(`
		SELECT id, username FROM app_user WHERE id = $1
	`, userID).Scan(&u.ID, &u.Username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// entityExists checks that the (kind, id) pair refers to a real row.
func entityExists(db *sql.DB, kind, id string) (bool, error) {
	var table string
	switch kind {
	case models.KindAgenda:
		table = "agenda"
	case models.KindSuggestion:
		table = "suggestion"
	default:
		return false, nil
	}

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

// voteCounts aggregates likes/dislikes for an entity plus the given
// user's own vote ("" when absent or anonymous).
func voteCounts(db *sql.DB, kind, id, userID string) (models.VoteResponse, error) {
	var resp models.VoteResponse
	err := db.QueryRow(`
		SELECT
			COUNT(CASE WHEN vote_type = 'like' THEN 1 END),
			COUNT(CASE WHEN vote_type = 'dislike' THEN 1 END)
		FROM vote WHERE entity_kind = $1 AND entity_id = $2
	`, kind, id).Scan(&resp.Likes, &resp.Dislikes)
	if err != nil {
		return resp, err
	}

	if userID != "" {
		err = db.QueryRow(`
			SELECT vote_type FROM vote
			WHERE user_id = $1 AND entity_kind = $2 AND entity_id = $3
		`, userID, kind, id).Scan(&resp.UserVote)
		if err != nil && err != sql.ErrNoRows {
			return resp, err
		}
	}
	return resp, nil
}

// isUniqueViolation matches the unique-constraint error text of both
// supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
