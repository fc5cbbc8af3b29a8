// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/civic-sync/auth"
	"github.com/danielhkuo/civic-sync/cliparse"
	"github.com/danielhkuo/civic-sync/middleware"
	"github.com/danielhkuo/civic-sync/models"
)

type SessionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewSessionHandler(db *sql.DB, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{db: db, cfg: cfg}
}

// Create handles POST /auth/session
// Finds or creates the user for the username and returns a session token.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Username) < 2 || len(req.Username) > 50 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username must be 2-50 characters")
		return
	}

	var userID string
	err := h.db.QueryRow(`
		SELECT id FROM app_user WHERE username = $1
	`, req.Username).Scan(&userID)

	if err == sql.ErrNoRows {
		userID, err = auth.GenerateID(16)
		if err == nil {
			_, err = h.db.Exec(`
				INSERT INTO app_user (id, username, created_at)
				VALUES ($1, $2, $3)
			`, userID, req.Username, time.Now())
		}
		if isUniqueViolation(err) {
			// Lost a race with a concurrent login for the same name.
			err = h.db.QueryRow(`
				SELECT id FROM app_user WHERE username = $1
			`, req.Username).Scan(&userID)
		}
	}
	if err != nil {
		slog.Error("failed to resolve user", "error", err, "username", req.Username)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	slog.Info("session created", "user", userID)

	middleware.JSONResponse(w, http.StatusOK, models.CreateSessionResponse{
		Token:  auth.MintSessionToken(userID, h.cfg.SessionSecret),
		UserID: userID,
	})
}

// Me handles GET /auth/me
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(h.db, h.cfg, r)
	if err != nil {
		slog.Error("failed to resolve session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "No valid session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, user)
}
