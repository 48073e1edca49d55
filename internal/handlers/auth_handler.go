package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/growme/backend/internal/middleware"
	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/services"
)

type AuthHandler struct {
	accounts      *services.AccountService
	bootstrap     *services.BootstrapService
	jwtSecret     string
	jwtExpiration time.Duration
	log           *zap.Logger
}

func NewAuthHandler(accounts *services.AccountService, bootstrap *services.BootstrapService, jwtSecret string, jwtExpiration time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:      accounts,
		bootstrap:     bootstrap,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	user, err := h.accounts.Register(r.Context(), &req)
	if err != nil {
		if err == services.ErrEmailExists {
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Email already registered"))
			return
		}
		h.log.Error("register failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create user"))
		return
	}

	// A sign-up is a login event: the profile document is created here,
	// before the client ever asks for it.
	if _, err := h.bootstrap.EnsureProfile(r.Context(), services.Identity{
		UID:         user.ID,
		DisplayName: user.Name,
		Email:       user.Email,
		Provider:    "password",
	}); err != nil {
		h.log.Error("profile bootstrap failed", zap.String("uid", user.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create user profile"))
		return
	}

	token, err := h.generateToken(user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(models.AuthResponse{
		Token: token,
		User:  *user,
	}))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	user, err := h.accounts.Login(r.Context(), &req)
	if err != nil {
		if err == services.ErrUserNotFound || err == services.ErrInvalidPassword {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid email or password"))
			return
		}
		h.log.Error("login failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Login failed"))
		return
	}

	if _, err := h.bootstrap.EnsureProfile(r.Context(), services.Identity{
		UID:         user.ID,
		DisplayName: user.Name,
		Email:       user.Email,
		Provider:    "password",
	}); err != nil {
		h.log.Error("profile bootstrap failed", zap.String("uid", user.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Login failed"))
		return
	}

	token, err := h.generateToken(user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.AuthResponse{
		Token: token,
		User:  *user,
	}))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return
	}

	user, err := h.accounts.GetByID(r.Context(), userID)
	if err != nil {
		// Federated users have no local account; answer from the token.
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.User{
			ID:    userID,
			Email: middleware.GetUserEmail(r.Context()),
			Name:  middleware.GetUserName(r.Context()),
		}))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(*user))
}

func (h *AuthHandler) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
		"exp":     time.Now().Add(h.jwtExpiration).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
