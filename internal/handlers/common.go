package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/usersync"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSyncError maps cache errors onto the API taxonomy. Persist failures
// return 502: the optimistic in-memory state is kept and the next
// successful write or subscription push reconciles.
func writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usersync.ErrUnknownDay):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Unknown weekday"))
	case errors.Is(err, usersync.ErrGoalNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Goal not found"))
	case errors.Is(err, usersync.ErrNoProfile):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("Profile not loaded yet"))
	default:
		writeJSON(w, http.StatusBadGateway, models.NewErrorResponse("Failed to save changes"))
	}
}
