package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/growme/backend/internal/config"
	"github.com/growme/backend/internal/handlers"
	"github.com/growme/backend/internal/logger"
	appMiddleware "github.com/growme/backend/internal/middleware"
	"github.com/growme/backend/internal/services"
	"github.com/growme/backend/internal/store"
	"github.com/growme/backend/internal/usersync"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Env)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Firebase Auth (server-side verification of ID tokens). The server
	// still runs without it; only local JWT sessions work then.
	authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
	})
	if err != nil {
		log.Warn("failed to initialize Firebase Auth client", zap.Error(err))
	}

	profileStore, err := store.NewMongoProfileStore(ctx, cfg.MongoURI, cfg.MongoDB, log)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer profileStore.Close(context.Background())

	// Services and the per-user synchronization layer.
	accountService := services.NewAccountService(ctx, profileStore.AccountsCollection())
	bootstrapService := services.NewBootstrapService(profileStore, log)
	manager := usersync.NewManager(profileStore, log)
	defer manager.Shutdown()

	// Handlers
	authHandler := handlers.NewAuthHandler(accountService, bootstrapService, cfg.JWTSecret, cfg.JWTExpiration, log)
	profileHandler := handlers.NewProfileHandler(bootstrapService, manager, log)
	goalsHandler := handlers.NewGoalsHandler(manager, log)
	eventsHandler := handlers.NewEventsHandler(manager, log)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Auth(authClient, cfg.JWTSecret))

			r.Get("/auth/me", authHandler.Me)

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile/name", profileHandler.UpdateDisplayName)

			r.Put("/pet", profileHandler.UpdatePet)
			r.Put("/pet/name", profileHandler.UpdatePetName)
			r.Get("/pet/status", profileHandler.PetStatus)

			r.Route("/goals", func(r chi.Router) {
				r.Get("/", goalsHandler.ListGoals)
				r.Post("/{day}", goalsHandler.AddGoal)
				r.Post("/{day}/{goalId}/toggle", goalsHandler.ToggleGoal)
				r.Delete("/{day}/{goalId}", goalsHandler.RemoveGoal)
			})

			r.Get("/events", eventsHandler.Stream)
		})
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: r,
	}

	go func() {
		log.Info("GrowMe API server starting", zap.String("address", cfg.ServerAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
