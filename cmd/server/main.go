package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/examdeck/examdeck-backend/internal/catalog"
	"github.com/examdeck/examdeck-backend/internal/config"
	"github.com/examdeck/examdeck-backend/internal/database"
	"github.com/examdeck/examdeck-backend/internal/handler"
	"github.com/examdeck/examdeck-backend/internal/logger"
	"github.com/examdeck/examdeck-backend/internal/router"
	"github.com/examdeck/examdeck-backend/internal/service"
	"github.com/examdeck/examdeck-backend/internal/store"
	"github.com/examdeck/examdeck-backend/internal/validator"
	"github.com/examdeck/examdeck-backend/internal/websocket"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamDeck Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open SQLite Database ──────────────────────────────────────────
	db, err := database.NewSQLiteDB(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open SQLite database")
	}
	defer db.Close()

	// ─── Initialize Store ──────────────────────────────────────────────
	sessionStore := store.New(db)

	// ─── Resolve Exam Catalog ──────────────────────────────────────────
	// Prefer the exams file on disk, then a previously imported catalog,
	// then an empty deck. Imports at runtime replace the active catalog.
	loader := catalog.NewLoader(cfg.ExamsFile, sessionStore, log)
	deck, source, err := loader.Resolve(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve exam catalog")
	}
	log.Info().Str("source", string(source)).Int("exams", deck.Len()).Msg("Exam catalog resolved")

	// ─── Initialize Services ───────────────────────────────────────────
	hub := websocket.NewHub(log)

	catalogService := service.NewCatalogService(deck, source, sessionStore, loader, log)
	sessionService := service.NewSessionService(catalogService, sessionStore, hub, log)

	// ─── Initialize Handlers ───────────────────────────────────────────
	handlers := &router.Handlers{
		Catalog: handler.NewCatalogHandler(catalogService, sessionService, cfg.MaxImportBytes),
		Session: handler.NewSessionHandler(sessionService),
		WS:      handler.NewWSHandler(sessionService, hub, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
