package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/growme/backend/internal/middleware"
	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/usersync"
)

type GoalsHandler struct {
	manager *usersync.Manager
	log     *zap.Logger
}

func NewGoalsHandler(manager *usersync.Manager, log *zap.Logger) *GoalsHandler {
	return &GoalsHandler{manager: manager, log: log}
}

type goalListResponse struct {
	Goals          map[string][]models.Goal `json:"goals"`
	TotalCurrent   int                      `json:"total_current"`
	TotalCompleted int                      `json:"total_completed"`
	History        *models.GoalHistory      `json:"goal_history"`
}

func (h *GoalsHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	cache, release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	prof := cache.Snapshot()
	if prof == nil {
		writeSyncError(w, usersync.ErrNoProfile)
		return
	}

	total, completed := prof.CountGoals()
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(goalListResponse{
		Goals:          prof.Goals,
		TotalCurrent:   total,
		TotalCompleted: completed,
		History:        prof.GoalHistory,
	}))
}

type addGoalRequest struct {
	Text string `json:"text"`
}

func (h *GoalsHandler) AddGoal(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")

	var req addGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Goal text is required"))
		return
	}

	cache, release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	goal, err := cache.AddGoal(r.Context(), day, req.Text)
	if err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(goal))
}

func (h *GoalsHandler) ToggleGoal(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	goalID := chi.URLParam(r, "goalId")

	cache, release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	completed, err := cache.ToggleGoal(r.Context(), day, goalID)
	if err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]bool{"completed": completed}))
}

func (h *GoalsHandler) RemoveGoal(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	goalID := chi.URLParam(r, "goalId")

	cache, release, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	if err := cache.RemoveGoal(r.Context(), day, goalID); err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
}

func (h *GoalsHandler) acquire(w http.ResponseWriter, r *http.Request) (*usersync.Cache, func(), bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return nil, nil, false
	}

	cache, release, err := h.manager.Acquire(r.Context(), userID)
	if err != nil {
		h.log.Error("cache acquire failed", zap.String("uid", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load goals"))
		return nil, nil, false
	}
	return cache, release, true
}
