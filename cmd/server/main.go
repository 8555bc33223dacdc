// Package main starts the companion backend. Its only job is to load
// configuration, build the logger and hand off to internal/server.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/sr-companion/internal/config"
	"github.com/sakif/sr-companion/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Env == config.Development {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// The SQLite file lives under a data/ directory that may not exist on
	// a fresh checkout.
	if cfg.Database.URL == "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("path", cfg.Database.Path),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
