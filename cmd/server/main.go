// Supportbot - Customer Support Chatbot Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/crispdesk/supportbot/internal/api"
	"github.com/crispdesk/supportbot/internal/catalog"
	"github.com/crispdesk/supportbot/internal/chat"
	"github.com/crispdesk/supportbot/internal/config"
	"github.com/crispdesk/supportbot/internal/dialog"
	"github.com/crispdesk/supportbot/internal/intent"
	"github.com/crispdesk/supportbot/internal/middleware"
	"github.com/crispdesk/supportbot/internal/sentiment"
	"github.com/crispdesk/supportbot/internal/session"
	"github.com/crispdesk/supportbot/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("Failed to load response catalog", "error", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}
	slog.Info("Response catalog loaded", "intents", len(cat.Entries))

	// Train the intent model on first boot when artifacts are absent.
	if !intent.ArtifactsExist(cfg.ModelDir) {
		slog.Info("Training intent model", "model_dir", cfg.ModelDir)
		net, vocab, classes, err := intent.Train(cat, intent.DefaultTrainOptions())
		if err != nil {
			slog.Error("Failed to train intent model", "error", err)
			os.Exit(1)
		}
		if err := intent.SaveArtifacts(cfg.ModelDir, net, vocab, classes); err != nil {
			slog.Error("Failed to save intent model", "error", err)
			os.Exit(1)
		}
		slog.Info("Intent model trained", "vocabulary", len(vocab), "classes", len(classes))
	}

	classifier, err := intent.Load(cfg.ModelDir, cfg.ConfidenceThreshold)
	if err != nil {
		slog.Error("Failed to load intent model", "error", err, "model_dir", cfg.ModelDir)
		os.Exit(1)
	}
	slog.Info("Intent model loaded", "classes", len(classifier.Classes()))

	analyzer := sentiment.NewAnalyzer()
	contexts := dialog.NewContextStore(cfg.ContextTTL, cfg.HistoryCapacity)

	transcript, err := chat.NewTranscript(cfg.Transcript, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcript.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	svc := chat.NewService(analyzer, classifier, contexts, cat, repo, transcript)

	// Initialize handlers.
	baseHandler := api.NewHandler(svc, repo)
	chatHandler := api.NewChatHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := api.NewWSHandler(svc, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(session.Middleware(cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket chat connections stay open
		IdleTimeout:  120 * time.Second,
	}

	// Start background context sweeper.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialog.StartSweeper(ctx, contexts, cfg.SweepTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
