package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apsen86/ChatSystem/internal/api"
	"github.com/apsen86/ChatSystem/internal/auth"
	"github.com/apsen86/ChatSystem/internal/chat"
	"github.com/apsen86/ChatSystem/internal/clock"
	"github.com/apsen86/ChatSystem/internal/config"
	"github.com/apsen86/ChatSystem/internal/dispatch"
	"github.com/apsen86/ChatSystem/internal/metrics"
	"github.com/apsen86/ChatSystem/internal/roundrobin"
	"github.com/apsen86/ChatSystem/internal/schedule"
	"github.com/apsen86/ChatSystem/internal/storage"
	"github.com/apsen86/ChatSystem/internal/store"
	"github.com/apsen86/ChatSystem/internal/ws"
	"github.com/apsen86/ChatSystem/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Msg("starting chat dispatch server")

	if cfg.AdminJWTSecret == "" {
		log.Warn().Msg("ADMIN_JWT_SECRET not set, admin endpoints are unauthenticated")
	}

	clk := clock.New()

	// Create context for background services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session archive (no-op unless DYNAMO_MODE is set)
	archive, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session archive")
	}

	// Core engine wiring
	hours := schedule.NewBusinessHours(clk, log.Logger)
	agents := store.NewAgentStore(schedule.DefaultRoster(hours.EasternLocation()))
	sessions := store.NewSessionStore()
	shifts := schedule.NewShiftManager(agents, clk, log.Logger)
	shifts.Refresh(ctx)

	calc := dispatch.NewCapacityCalculator(agents, sessions, hours, clk, log.Logger)
	selector := dispatch.NewSelector(agents, roundrobin.New(), log.Logger)
	assigner := dispatch.NewAssigner(sessions, agents, calc, clk, log.Logger)

	timeouts := dispatch.NewTimeoutService(sessions, agents, clk, log.Logger)
	timeouts.SetArchive(archive)

	dispatcher := dispatch.NewDispatcher(sessions, agents, selector, assigner, hours, shifts, clk,
		dispatch.DispatcherOptions{
			Interval:     cfg.DispatchInterval,
			BatchSize:    cfg.DispatchBatchSize,
			PromoteBatch: cfg.OverflowPromotionBatch,
		}, log.Logger)
	go dispatcher.Start(ctx)

	monitor := dispatch.NewMonitor(timeouts, cfg.MonitorInterval, log.Logger)
	go monitor.Start(ctx)

	// Public API service
	service := chat.NewService(sessions, agents, calc, hours, clk, log.Logger)
	service.SetArchive(archive)

	// Dashboard websocket feed
	hub := ws.NewHub(log.Logger)
	go hub.Run()
	wsHandler := ws.NewHandler(hub, cfg, log.Logger)
	broadcaster := ws.NewBroadcaster(hub, service, cfg.SnapshotInterval, log.Logger)
	go broadcaster.Start(ctx)

	// HTTP handlers
	chatHandler := api.NewChatHandler(service, clk, log.Logger)
	adminHandler := api.NewAdminHandler(service, archive, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/Chat", func(r chi.Router) {
		r.Post("/create", chatHandler.HandleCreate)
		r.Post("/{sessionId}/poll", chatHandler.HandlePoll)
		r.Get("/{sessionId}/position", chatHandler.HandlePosition)
		r.Get("/health", chatHandler.HandleHealth)

		// Admin routes require a valid token with the admin role
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Middleware(cfg.AdminJWTSecret, log.Logger))
			r.Use(auth.RequireAdmin)
			r.Get("/sessions", adminHandler.GetSessions)
			r.Get("/sessions/active", adminHandler.GetActiveSessions)
			r.Get("/sessions/inactive", adminHandler.GetInactiveSessions)
			r.Get("/queue-status", adminHandler.GetQueueStatus)
			r.Get("/agents", adminHandler.GetAgents)
			r.Post("/sessions/{sessionId}/complete", adminHandler.CompleteSession)
			r.Get("/archive", adminHandler.GetArchivedSessions)
			r.Delete("/archive", adminHandler.TruncateArchive)
		})
	})

	// Dashboard feed shares the admin token check
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.AdminJWTSecret, log.Logger))
		r.Get("/ws", wsHandler.ServeHTTP)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop the background loops
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles liveness checks
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"chat-dispatch"}`)
}
