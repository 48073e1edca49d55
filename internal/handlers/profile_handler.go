package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/growme/backend/internal/middleware"
	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/services"
	"github.com/growme/backend/internal/usersync"
)

type ProfileHandler struct {
	bootstrap *services.BootstrapService
	manager   *usersync.Manager
	log       *zap.Logger
}

func NewProfileHandler(bootstrap *services.BootstrapService, manager *usersync.Manager, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{bootstrap: bootstrap, manager: manager, log: log}
}

// GetProfile bootstraps the document for this identity if needed and
// returns the cache's current snapshot.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	if _, err := h.bootstrap.EnsureProfile(r.Context(), services.Identity{
		UID:         userID,
		DisplayName: middleware.GetUserName(r.Context()),
		Email:       middleware.GetUserEmail(r.Context()),
		PhotoURL:    middleware.GetUserPicture(r.Context()),
		Provider:    middleware.GetProvider(r.Context()),
	}); err != nil {
		h.log.Error("profile bootstrap failed", zap.String("uid", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}

	cache, release, err := h.manager.Acquire(r.Context(), userID)
	if err != nil {
		h.log.Error("cache acquire failed", zap.String("uid", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	defer release()

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(cache.Snapshot()))
}

type updateNameRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *ProfileHandler) UpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req updateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.DisplayName == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Display name is required"))
		return
	}

	cache, release, err := h.manager.Acquire(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	defer release()

	if err := cache.SetDisplayName(r.Context(), req.DisplayName); err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(cache.Snapshot()))
}

func (h *ProfileHandler) UpdatePet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req usersync.PetUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	cache, release, err := h.manager.Acquire(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	defer release()

	if err := cache.SetPet(r.Context(), req); err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(cache.Snapshot().Pet))
}

type updatePetNameRequest struct {
	Name string `json:"name"`
}

func (h *ProfileHandler) UpdatePetName(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	var req updatePetNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	if req.Name == "" {
		req.Name = "My Pet"
	}

	cache, release, err := h.manager.Acquire(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	defer release()

	if err := cache.SetPetName(r.Context(), req.Name); err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(cache.Snapshot().Pet))
}

type petStatusResponse struct {
	Pet    *models.Pet        `json:"pet"`
	Status models.LevelStatus `json:"status"`
	Label  string             `json:"label"`
}

// PetStatus derives level and progress from the lifetime ledger, the
// single counting authority.
func (h *ProfileHandler) PetStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	cache, release, err := h.manager.Acquire(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load profile"))
		return
	}
	defer release()

	prof := cache.Snapshot()
	if prof == nil {
		writeSyncError(w, usersync.ErrNoProfile)
		return
	}

	status := models.LevelForPoints(prof.GoalHistory.TotalCompleted)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(petStatusResponse{
		Pet:    prof.Pet,
		Status: status,
		Label:  status.Label(),
	}))
}
