package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"github.com/growme/backend/internal/middleware"
	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/store/storetest"
	"github.com/growme/backend/internal/usersync"
)

func testRouter(t *testing.T, fake *storetest.Fake, uid string) http.Handler {
	t.Helper()
	log := zaptest.NewLogger(t)
	manager := usersync.NewManager(fake, log)
	t.Cleanup(manager.Shutdown)

	goals := NewGoalsHandler(manager, log)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if uid != "" {
				req = req.WithContext(middleware.WithIdentity(req.Context(), uid, "ana@example.com", "Ana"))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/goals", func(r chi.Router) {
		r.Get("/", goals.ListGoals)
		r.Post("/{day}", goals.AddGoal)
		r.Post("/{day}/{goalId}/toggle", goals.ToggleGoal)
		r.Delete("/{day}/{goalId}", goals.RemoveGoal)
	})
	return r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestAddGoalEndpoint(t *testing.T) {
	fake := storetest.New()
	fake.Seed(models.DefaultProfile("uid-1", "Ana", "ana@example.com", ""))
	router := testRouter(t, fake, "uid-1")

	req := httptest.NewRequest("POST", "/api/goals/monday", strings.NewReader(`{"text":"run 5k"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Errorf("success = false: %s", resp.Error)
	}

	stored := fake.Stored("uid-1")
	if len(stored.Goals["monday"]) != 1 {
		t.Errorf("goal not persisted")
	}
	if stored.GoalHistory.TotalCreated != 1 {
		t.Errorf("ledger not bumped: %+v", stored.GoalHistory)
	}
}

func TestAddGoalUnknownDay(t *testing.T) {
	fake := storetest.New()
	fake.Seed(models.DefaultProfile("uid-1", "Ana", "", ""))
	router := testRouter(t, fake, "uid-1")

	req := httptest.NewRequest("POST", "/api/goals/funday", strings.NewReader(`{"text":"nope"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAddGoalEmptyText(t *testing.T) {
	fake := storetest.New()
	fake.Seed(models.DefaultProfile("uid-1", "Ana", "", ""))
	router := testRouter(t, fake, "uid-1")

	req := httptest.NewRequest("POST", "/api/goals/monday", strings.NewReader(`{"text":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestToggleGoalEndpoint(t *testing.T) {
	fake := storetest.New()
	prof := models.DefaultProfile("uid-1", "Ana", "", "")
	prof.Goals["friday"] = []models.Goal{{ID: "g1", Text: "read"}}
	fake.Seed(prof)
	router := testRouter(t, fake, "uid-1")

	req := httptest.NewRequest("POST", "/api/goals/friday/g1/toggle", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	stored := fake.Stored("uid-1")
	if !stored.Goals["friday"][0].Completed {
		t.Error("goal not completed")
	}
	if stored.GoalHistory.TotalCompleted != 1 {
		t.Errorf("ledger = %+v", stored.GoalHistory)
	}
}

func TestToggleGoalNotFound(t *testing.T) {
	fake := storetest.New()
	fake.Seed(models.DefaultProfile("uid-1", "Ana", "", ""))
	router := testRouter(t, fake, "uid-1")

	req := httptest.NewRequest("POST", "/api/goals/friday/missing/toggle", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRemoveGoalEndpoint(t *testing.T) {
	fake := storetest.New()
	prof := models.DefaultProfile("uid-1", "Ana", "", "")
	prof.Goals["sunday"] = []models.Goal{{ID: "g1", Text: "rest"}}
	prof.GoalHistory.TotalCreated = 1
	fake.Seed(prof)
	router := testRouter(t, fake, "uid-1")

	req := httptest.NewRequest("DELETE", "/api/goals/sunday/g1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	stored := fake.Stored("uid-1")
	if len(stored.Goals["sunday"]) != 0 {
		t.Error("goal not removed")
	}
	if stored.GoalHistory.TotalCreated != 1 {
		t.Errorf("removal must not touch the ledger: %+v", stored.GoalHistory)
	}
}

func TestListGoalsEndpoint(t *testing.T) {
	fake := storetest.New()
	prof := models.DefaultProfile("uid-1", "Ana", "", "")
	prof.Goals["monday"] = []models.Goal{
		{ID: "g1", Text: "run", Completed: true, Rewarded: true},
		{ID: "g2", Text: "read"},
	}
	prof.GoalHistory = &models.GoalHistory{TotalCreated: 5, TotalCompleted: 3}
	fake.Seed(prof)
	router := testRouter(t, fake, "uid-1")

	req := httptest.NewRequest("GET", "/api/goals/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Success bool             `json:"success"`
		Data    goalListResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.TotalCurrent != 2 || resp.Data.TotalCompleted != 1 {
		t.Errorf("point-in-time tally = %d/%d", resp.Data.TotalCurrent, resp.Data.TotalCompleted)
	}
	if resp.Data.History.TotalCreated != 5 || resp.Data.History.TotalCompleted != 3 {
		t.Errorf("ledger = %+v", resp.Data.History)
	}
}

func TestGoalsRequireAuthentication(t *testing.T) {
	fake := storetest.New()
	router := testRouter(t, fake, "")

	req := httptest.NewRequest("GET", "/api/goals/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
