// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/civic-sync/auth"
	"github.com/danielhkuo/civic-sync/cliparse"
	"github.com/danielhkuo/civic-sync/middleware"
	"github.com/danielhkuo/civic-sync/models"
)

type OpinionsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewOpinionsHandler(db *sql.DB, cfg cliparse.Config) *OpinionsHandler {
	return &OpinionsHandler{db: db, cfg: cfg}
}

// Submit handles POST /opinions
func (h *OpinionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(h.db, h.cfg, r)
	if err != nil {
		slog.Error("failed to resolve session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in to share an opinion")
		return
	}

	var req models.SubmitOpinionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.AgendaID == "" || req.Body == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "agenda_id and body are required")
		return
	}
	if len(req.Body) > 5000 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "body too long")
		return
	}
	if req.DedupKey == "" {
		req.DedupKey = uuid.NewString()
	}

	exists, err := entityExists(h.db, models.KindAgenda, req.AgendaID)
	if err != nil {
		slog.Error("failed to check agenda", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Agenda not found")
		return
	}

	opinionID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate opinion id", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit opinion")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO opinion (id, agenda_id, author_id, body, dedup_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, opinionID, req.AgendaID, user.ID, req.Body, req.DedupKey, time.Now())

	if isUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Opinion already submitted")
		return
	}
	if err != nil {
		slog.Error("failed to insert opinion", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit opinion")
		return
	}

	slog.Info("opinion submitted", "opinion_id", opinionID, "author", user.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitOpinionResponse{
		OpinionID: opinionID,
		Message:   "Opinion submitted",
	})
}

// List handles GET /agendas/:id/opinions
func (h *OpinionsHandler) List(w http.ResponseWriter, r *http.Request) {
	agendaID := r.PathValue("id")

	rows, err := h.db.Query(`
		SELECT id, agenda_id, author_id, body, created_at
		FROM opinion WHERE agenda_id = $1
		ORDER BY created_at
	`, agendaID)
	if err != nil {
		slog.Error("failed to query opinions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	opinions := []models.Opinion{}
	for rows.Next() {
		var o models.Opinion
		if err := rows.Scan(&o.ID, &o.AgendaID, &o.AuthorID, &o.Body, &o.CreatedAt); err != nil {
			slog.Error("failed to scan opinion", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		opinions = append(opinions, o)
	}

	middleware.JSONResponse(w, http.StatusOK, opinions)
}
