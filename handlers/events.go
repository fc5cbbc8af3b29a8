// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/danielhkuo/civic-sync/middleware"
	"github.com/danielhkuo/civic-sync/models"
)

// Hub fans change events out to per-entity SSE subscribers. Delivery is
// best-effort: a subscriber that cannot keep up loses events, which is
// fine because events are refetch triggers, not state.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan models.ChangeEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan models.ChangeEvent]struct{})}
}

func (h *Hub) subscribe(key string) chan models.ChangeEvent {
	ch := make(chan models.ChangeEvent, 8)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan models.ChangeEvent]struct{})
	}
	h.subs[key][ch] = struct{}{}
	return ch
}

func (h *Hub) unsubscribe(key string, ch chan models.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[key], ch)
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
}

// Publish delivers an event to every subscriber of the entity, dropping
// it for subscribers with full buffers.
func (h *Hub) Publish(ev models.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.Entity.Key()] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// EventsHandler streams entity change notifications over SSE.
type EventsHandler struct {
	hub *Hub
}

func NewEventsHandler(hub *Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles GET /entities/:kind/:id/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	id := r.PathValue("id")
	if kind != models.KindAgenda && kind != models.KindSuggestion {
		middleware.ErrorResponse(w, http.StatusBadRequest, "unknown entity kind")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ref := models.EntityRef{Kind: kind, ID: id}
	ch := h.hub.subscribe(ref.Key())
	defer h.hub.unsubscribe(ref.Key(), ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.Info("event stream opened", "entity", ref.Key())
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			raw, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: " + string(raw) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
