// Package server is the composition root: it assembles the database pool,
// store, upstream client, services and handlers, mounts the routes and
// runs the HTTP server with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/sr-companion/internal/auth"
	"github.com/sakif/sr-companion/internal/config"
	"github.com/sakif/sr-companion/internal/database"
	"github.com/sakif/sr-companion/internal/handler"
	"github.com/sakif/sr-companion/internal/middleware"
	"github.com/sakif/sr-companion/internal/repository/sqlstore"
	"github.com/sakif/sr-companion/internal/service"
	"github.com/sakif/sr-companion/internal/upstream"
)

// Server owns the router and the resources that must be released on
// shutdown.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	db     *database.DB
}

// New wires the full dependency chain:
//
//	config → database pool → sqlstore → services → handlers → routes
//
// Each layer receives interfaces from the layer below it; only this
// package sees the concrete types.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := database.New(database.Config{
		URL:             cfg.Database.URL,
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		AcquireAttempts: cfg.Database.AcquireAttempts,
		AcquireDelay:    cfg.Database.AcquireDelay,
		AcquireTimeout:  cfg.Database.AcquireTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	store, err := sqlstore.New(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("server: initialising store: %w", err)
	}

	client := upstream.New(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
	}, logger)

	users := service.NewUserService(store, store, store, store, store, logger)
	syncSvc := service.NewSyncService(client, store, store, store, logger)
	statsSvc := service.NewStatsService(store, logger)

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(
		handler.NewAuthHandler(users),
		handler.NewUserDataHandler(users, syncSvc, statsSvc),
		handler.NewPlayerHandler(client),
	)
	return s, nil
}

func (s *Server) setupRoutes(authH *handler.AuthHandler, userH *handler.UserDataHandler, playerH *handler.PlayerHandler) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// identity is resolved before the auth gate so local development can
	// run without a gateway in front. The fallback is only non-empty in
	// the development environment.
	identity := []func(http.Handler) http.Handler{auth.RequireIdentity}
	if s.cfg.DevFallbackOpenID != "" {
		s.logger.Warn("development identity fallback enabled",
			slog.String("openid", s.cfg.DevFallbackOpenID))
		identity = append([]func(http.Handler) http.Handler{auth.DevIdentity(s.cfg.DevFallbackOpenID)}, identity...)
	}

	s.router.Get("/health", handler.Health(string(s.cfg.Env), s.cfg.Port))
	s.router.Get("/api/player/{uid}", playerH.GetPlayer)
	s.router.Get("/api/player/{uid}/info", playerH.GetPlayer)

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Use(identity...)
		r.Get("/login", authH.Login)
		r.Get("/profile", authH.GetProfile)
		r.Put("/profile", authH.UpdateProfile)
		r.Get("/game-accounts", userH.ListGameAccounts)
		r.Post("/game-account", userH.AddGameAccount)
		r.Put("/game-account/{uid}/primary", userH.SetPrimaryAccount)
		r.Get("/settings", userH.GetSettings)
		r.Put("/settings", userH.UpdateSettings)
	})

	s.router.Route("/api/user", func(r chi.Router) {
		r.Use(identity...)
		r.Get("/characters", userH.ListCharacters)
		r.Post("/sync", userH.SyncCharacters)
		r.Get("/sync-logs", userH.ListSyncLogs)
		r.Put("/characters/{uid}/{characterID}/favorite", userH.SetFavorite)
		r.Delete("/characters/{uid}/{characterID}", userH.DeleteCharacter)
		r.Get("/stats", userH.GetStats)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database pool.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("env", string(s.cfg.Env)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
