// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/civic-sync/cliparse"
	"github.com/danielhkuo/civic-sync/middleware"
	"github.com/danielhkuo/civic-sync/models"
)

type VotesHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	hub *Hub
}

func NewVotesHandler(db *sql.DB, cfg cliparse.Config, hub *Hub) *VotesHandler {
	return &VotesHandler{db: db, cfg: cfg, hub: hub}
}

// Get handles GET /entities/:kind/:id/votes
// Anonymous reads are allowed; user_vote is filled only with a session.
func (h *VotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	id := r.PathValue("id")

	exists, err := entityExists(h.db, kind, id)
	if err != nil {
		slog.Error("failed to check entity", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Entity not found")
		return
	}

	userID := ""
	if user, err := userFromRequest(h.db, h.cfg, r); err != nil {
		slog.Error("failed to resolve session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	} else if user != nil {
		userID = user.ID
	}

	resp, err := voteCounts(h.db, kind, id, userID)
	if err != nil {
		slog.Error("failed to count votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Submit handles POST /entities/:kind/:id/votes
// One row per (user, entity): a same-type revote removes the row, a
// different type updates it, otherwise a row is created. The response
// carries the authoritative counts after the mutation.
func (h *VotesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	id := r.PathValue("id")

	user, err := userFromRequest(h.db, h.cfg, r)
	if err != nil {
		slog.Error("failed to resolve session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in to vote")
		return
	}

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.VoteType != models.VoteLike && req.VoteType != models.VoteDislike {
		middleware.ErrorResponse(w, http.StatusBadRequest, "vote_type must be like or dislike")
		return
	}

	exists, err := entityExists(h.db, kind, id)
	if err != nil {
		slog.Error("failed to check entity", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Entity not found")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRow(`
		SELECT vote_type FROM vote
		WHERE user_id = $1 AND entity_kind = $2 AND entity_id = $3
	`, user.ID, kind, id).Scan(&existing)

	operation := models.OpCreated
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`
			INSERT INTO vote (user_id, entity_kind, entity_id, vote_type, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, user.ID, kind, id, req.VoteType, time.Now())

	case err == nil && existing == req.VoteType:
		// Voting the same way again retracts the vote. This is what makes
		// offline vote replay idempotent in effect.
		operation = models.OpRemoved
		_, err = tx.Exec(`
			DELETE FROM vote
			WHERE user_id = $1 AND entity_kind = $2 AND entity_id = $3
		`, user.ID, kind, id)

	case err == nil:
		operation = models.OpUpdated
		_, err = tx.Exec(`
			UPDATE vote SET vote_type = $4, updated_at = $5
			WHERE user_id = $1 AND entity_kind = $2 AND entity_id = $3
		`, user.ID, kind, id, req.VoteType, time.Now())
	}

	if err != nil {
		slog.Error("failed to apply vote", "error", err, "entity", kind+":"+id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to apply vote")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to apply vote")
		return
	}

	resp, err := voteCounts(h.db, kind, id, user.ID)
	if err != nil {
		slog.Error("failed to count votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	resp.Operation = operation

	slog.Info("vote applied", "entity", kind+":"+id, "operation", operation, "user", user.ID)

	h.hub.Publish(models.ChangeEvent{
		EventType: models.EventUpdate,
		Entity:    models.EntityRef{Kind: kind, ID: id},
	})

	middleware.JSONResponse(w, http.StatusOK, resp)
}
