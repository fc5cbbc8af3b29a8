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

type AgendasHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAgendasHandler(db *sql.DB, cfg cliparse.Config) *AgendasHandler {
	return &AgendasHandler{db: db, cfg: cfg}
}

// List handles GET /agendas
func (h *AgendasHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, title, description, category, status, created_at
		FROM agenda
		ORDER BY created_at DESC
	`)
	if err != nil {
		slog.Error("failed to query agendas", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	agendas := []models.Agenda{}
	for rows.Next() {
		var a models.Agenda
		var desc, cat sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &desc, &cat, &a.Status, &a.CreatedAt); err != nil {
			slog.Error("failed to scan agenda", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		a.Description = desc.String
		a.Category = cat.String
		agendas = append(agendas, a)
	}

	middleware.JSONResponse(w, http.StatusOK, agendas)
}

// Get handles GET /agendas/:id
func (h *AgendasHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var a models.Agenda
	var desc, cat sql.NullString
	err := h.db.QueryRow(`
		SELECT id, title, description, category, status, created_at
		FROM agenda WHERE id = $1
	`, id).Scan(&a.ID, &a.Title, &desc, &cat, &a.Status, &a.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Agenda not found")
		return
	}
	if err != nil {
		slog.Error("failed to query agenda", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	a.Description = desc.String
	a.Category = cat.String

	middleware.JSONResponse(w, http.StatusOK, a)
}

// Create handles POST /agendas
// Minimal authoring surface used by deployments without a separate admin
// tool; requires a session like any other mutation.
func (h *AgendasHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(h.db, h.cfg, r)
	if err != nil {
		slog.Error("failed to resolve session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if user == nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in to create an agenda")
		return
	}

	var req models.Agenda
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	agendaID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate agenda id", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create agenda")
		return
	}

	_, err = h.db.Exec(`
		INSERT INTO agenda (id, title, description, category, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, agendaID, req.Title, req.Description, req.Category, models.AgendaStatusOpen, time.Now())
	if err != nil {
		slog.Error("failed to insert agenda", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create agenda")
		return
	}

	slog.Info("agenda created", "agenda_id", agendaID, "user", user.ID)

	req.ID = agendaID
	req.Status = models.AgendaStatusOpen
	middleware.JSONResponse(w, http.StatusCreated, req)
}
