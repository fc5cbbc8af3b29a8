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

type SuggestionsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewSuggestionsHandler(db *sql.DB, cfg cliparse.Config) *SuggestionsHandler {
	return &SuggestionsHandler{db: db, cfg: cfg}
}

// Submit handles POST /suggestions
// The dedup_key (client-generated UUID) makes offline replay safe: a
// second submission of the same key answers 409 instead of inserting.
func (h *SuggestionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(h.db, h.cfg, r)
	if err != nil {
		slog.Error("failed to resolve session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in to submit a suggestion")
		return
	}

	var req models.SubmitSuggestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Title == "" || req.Body == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title and body are required")
		return
	}
	if len(req.Title) > 200 || len(req.Body) > 5000 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title or body too long")
		return
	}
	if req.DedupKey == "" {
		req.DedupKey = uuid.NewString()
	}

	if req.AgendaID != "" {
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
	}

	suggestionID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate suggestion id", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit suggestion")
		return
	}

	var agendaID any
	if req.AgendaID != "" {
		agendaID = req.AgendaID
	}

	_, err = h.db.Exec(`
		INSERT INTO suggestion (id, agenda_id, author_id, title, body, status, dedup_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, suggestionID, agendaID, user.ID, req.Title, req.Body, models.SuggestionPending, req.DedupKey, time.Now())

	if isUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Suggestion already submitted")
		return
	}
	if err != nil {
		slog.Error("failed to insert suggestion", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit suggestion")
		return
	}

	slog.Info("suggestion submitted", "suggestion_id", suggestionID, "author", user.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitSuggestionResponse{
		SuggestionID: suggestionID,
		Message:      "Suggestion submitted",
	})
}

// List handles GET /agendas/:id/suggestions
func (h *SuggestionsHandler) List(w http.ResponseWriter, r *http.Request) {
	agendaID := r.PathValue("id")

	rows, err := h.db.Query(`
		SELECT id, agenda_id, author_id, title, body, status, created_at
		FROM suggestion WHERE agenda_id = $1
		ORDER BY created_at
	`, agendaID)
	if err != nil {
		slog.Error("failed to query suggestions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	suggestions := []models.Suggestion{}
	for rows.Next() {
		var s models.Suggestion
		var agenda sql.NullString
		if err := rows.Scan(&s.ID, &agenda, &s.AuthorID, &s.Title, &s.Body, &s.Status, &s.CreatedAt); err != nil {
			slog.Error("failed to scan suggestion", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		s.AgendaID = agenda.String
		suggestions = append(suggestions, s)
	}

	middleware.JSONResponse(w, http.StatusOK, suggestions)
}
