// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/danielhkuo/civic-sync/auth"
	"github.com/danielhkuo/civic-sync/cliparse"
	"github.com/danielhkuo/civic-sync/handlers"
	"github.com/danielhkuo/civic-sync/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, hub *handlers.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	votesHandler := handlers.NewVotesHandler(db, cfg, hub)
	suggestionsHandler := handlers.NewSuggestionsHandler(db, cfg)
	opinionsHandler := handlers.NewOpinionsHandler(db, cfg)
	agendasHandler := handlers.NewAgendasHandler(db, cfg)
	sessionHandler := handlers.NewSessionHandler(db, cfg)
	eventsHandler := handlers.NewEventsHandler(hub)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Duration(cfg.RateWindowSecs)*time.Second)
	keyByIP := func(r *http.Request) string {
		return auth.HashIP(middleware.GetClientIP(r), cfg.SessionSecret)
	}

	// Mutations get the CSRF guard and the rate limiter.
	guard := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(
			middleware.RequireSameOrigin(cfg.AllowedOrigins,
				limiter.Limit(keyByIP, h)))
	}

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Sessions
	mux.HandleFunc("POST /auth/session", guard(sessionHandler.Create))
	mux.HandleFunc("GET /auth/me", middleware.WithLogging(sessionHandler.Me))

	// Votes (anonymous reads, authenticated mutations)
	mux.HandleFunc("GET /entities/{kind}/{id}/votes", middleware.WithLogging(votesHandler.Get))
	mux.HandleFunc("POST /entities/{kind}/{id}/votes", guard(votesHandler.Submit))

	// Change event stream (SSE; no logging wrapper, connections are long-lived)
	mux.HandleFunc("GET /entities/{kind}/{id}/events", eventsHandler.Stream)

	// Agendas
	mux.HandleFunc("GET /agendas", middleware.WithLogging(agendasHandler.List))
	mux.HandleFunc("GET /agendas/{id}", middleware.WithLogging(agendasHandler.Get))
	mux.HandleFunc("POST /agendas", guard(agendasHandler.Create))
	mux.HandleFunc("GET /agendas/{id}/suggestions", middleware.WithLogging(suggestionsHandler.List))
	mux.HandleFunc("GET /agendas/{id}/opinions", middleware.WithLogging(opinionsHandler.List))

	// Suggestions and opinions
	mux.HandleFunc("POST /suggestions", guard(suggestionsHandler.Submit))
	mux.HandleFunc("POST /opinions", guard(opinionsHandler.Submit))

	// Root endpoint (exact match only, so it cannot shadow other routes)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("civic-sync API v1"))
	})

	return mux
}
