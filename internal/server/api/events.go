package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/handplay/internal/store"
)

// MaxEventsLimit caps the limit query parameter.
const MaxEventsLimit = 500

// EventHandler serves the command journal.
type EventHandler struct {
	events *store.EventRepository
}

// NewEventHandler creates a new EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{events: s.Events()}
}

// RegisterRoutes mounts the handler on r.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/events", h.list)
	r.Get("/api/events/{id}", h.get)
}

func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxEventsLimit)
	}

	events, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) get(w http.ResponseWriter, r *http.Request) {
	e, err := h.events.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}
	writeJSON(w, http.StatusOK, e)
}
