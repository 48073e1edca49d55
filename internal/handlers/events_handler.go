package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/growme/backend/internal/middleware"
	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/usersync"
)

type EventsHandler struct {
	manager *usersync.Manager
	log     *zap.Logger
}

func NewEventsHandler(manager *usersync.Manager, log *zap.Logger) *EventsHandler {
	return &EventsHandler{manager: manager, log: log}
}

// Stream is how multiple open pages converge without polling: an SSE feed
// of profile snapshots, one event per replacement of the cached document.
// The observer is registered on the shared per-user cache, so the first
// event arrives immediately with the current state.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Streaming unsupported"))
		return
	}

	cache, release, err := h.manager.Acquire(r.Context(), userID)
	if err != nil {
		h.log.Error("cache acquire failed", zap.String("uid", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Snapshots are queued so the observer callback never blocks the
	// cache's notify loop; a slow client just skips intermediate states.
	events := make(chan []byte, 8)
	remove := cache.AddObserver(func(p *models.Profile) {
		payload, err := json.Marshal(p)
		if err != nil {
			return
		}
		select {
		case events <- payload:
		default:
		}
	})
	defer remove()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-events:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
