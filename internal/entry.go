// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/api"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/frontmatter"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/mcpserver"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/sse"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/stamper"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/state"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/storage"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/tracker"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. In MCP mode stdout carries the
	// protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("merge_strategy", cfg.Timestamps.MergeStrategy),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize SQLite state store.
	db, err := state.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init state store: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	var merger frontmatter.Merger = frontmatter.TextMerger{}
	if cfg.Timestamps.MergeStrategy == MergeStrategyYAML {
		merger = frontmatter.YAMLMerger{}
	}

	svc := stamper.New(store, db, merger, stamper.Options{
		CreatedKey:  cfg.Timestamps.CreatedKey,
		ModifiedKey: cfg.Timestamps.ModifiedKey,
		DateFormat:  cfg.Timestamps.DateFormat,
		UTC:         cfg.Timestamps.UTC,
	}, broker.PublishStampEvent, logger)

	tr := tracker.New(store, svc, db, tracker.Options{
		AutoUpdate:            cfg.Timestamps.AutoUpdate,
		StampNewFiles:         cfg.Timestamps.StampNewFiles,
		AllowNonEmptyNewFiles: cfg.Timestamps.AllowNonEmptyNewFiles,
		NewFileDelay:          cfg.Timestamps.NewFileDelay(),
		Excluded:              cfg.Timestamps.Excluded,
		SelfWrite:             svc.SelfWrote,
	}, logger)

	// Catch up on edits that happened while the daemon was down.
	if stamped, err := tr.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial sync complete", slog.Int("stamped", stamped))
		broker.PublishStampEvent("synced", cfg.Vault.Path)
	}

	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		srv := mcpserver.New(store, tr, svc, db, cfg.Timestamps.CreatedKey, cfg.Timestamps.ModifiedKey)
		return srv.ServeStdio()
	}

	// Build API router.
	h := api.NewHandler(tr, svc, db, cfg.Timestamps.PostStampCommand, broker.ClientCount)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher so new documents get their created stamp.
	g.Go(func() error {
		if err := watcher.Watch(gCtx, cfg.Vault.Path, tr, logger); err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
