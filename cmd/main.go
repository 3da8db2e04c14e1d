// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Event timezones must resolve even on images without zoneinfo.
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/gatherly/gatherly-api/internal/config"
	"github.com/gatherly/gatherly-api/internal/database"
	"github.com/gatherly/gatherly-api/internal/formbridge"
	"github.com/gatherly/gatherly-api/internal/handler"
	"github.com/gatherly/gatherly-api/internal/logging"
	"github.com/gatherly/gatherly-api/internal/repository"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/session"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, logging.Component(log, "database"))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.CreateSchema(ctx, pool); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		log.Info().Msg("database schema is up to date")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	eventRepo := repository.NewEventRepository(pool)
	attenderRepo := repository.NewAttenderRepository(pool)
	viewRepo := repository.NewViewRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)

	eventSvc := service.NewEventService(eventRepo, attenderRepo, viewRepo, logging.Component(log, "service"))
	bridge := formbridge.New(cfg.Google, tokenRepo, logging.Component(log, "google_forms"))
	if !cfg.Google.Configured() {
		log.Warn().Msg("google oauth client not configured; forms integration disabled")
	}

	eventHandler := handler.NewEventHandler(eventSvc, log)
	formsHandler := handler.NewFormsHandler(bridge, eventSvc, cfg.AppBaseURL, log)

	// ── 3. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(handler.RouterConfig{
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Verifier:    session.NewVerifier(cfg.JWTSecret, cfg.SessionCookie),
	}, eventHandler, formsHandler)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	// Streams watch the request context; cancelling the base context ends
	// them so Shutdown is not held open until its timeout.
	baseCtx, stopStreams := context.WithCancel(ctx)
	defer stopStreams()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the countdown stream stays open until the deadline.
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(stopStreams)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Block until SIGINT, SIGTERM or a listener failure.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	// Let in-flight view inserts finish before the pool closes.
	eventSvc.Wait()
	log.Info().Msg("server stopped")
	return nil
}
