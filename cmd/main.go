package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/swara/adapters/stt"
	"github.com/satriahrh/swara/internal/api"
	"github.com/satriahrh/swara/internal/auth"
	"github.com/satriahrh/swara/internal/websocket"
	"github.com/satriahrh/swara/repository"
	"github.com/satriahrh/swara/usecase"
)

func main() {
	// Load .env if present; real deployments use actual environment
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize the transcriber adapter
	transcriber, err := newTranscriber(logger)
	if err != nil {
		logger.Fatal("initializing transcriber", zap.Error(err))
	}

	// Initialize WebSocket hub fanning pipeline events out to clients
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Initialize usecase services
	svc := usecase.NewTranscriptionService(
		usecase.NewServiceConfigFromEnv(),
		transcriber,
		hub,
		logger,
	)

	// Initialize API routes
	authenticator := auth.NewAuthenticatorFromEnv()
	api.InitRoutes(e, svc, hub, authenticator, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// Ask running sessions to stop and drain their queued chunks
	for _, session := range svc.Sessions() {
		if err := svc.StopSession(session.ID); err != nil {
			logger.Warn("stopping session", zap.String("session", session.ID), zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newTranscriber selects the speech-to-text backend from STT_PROVIDER:
// "lemonfox" (default) or "google".
func newTranscriber(logger *zap.Logger) (repository.Transcriber, error) {
	switch os.Getenv("STT_PROVIDER") {
	case "", "lemonfox":
		return stt.NewLemonfoxClient(stt.NewLemonfoxConfigFromEnv(), logger)
	case "google":
		return stt.NewGoogleClient(context.Background(), os.Getenv("GOOGLE_STT_LANGUAGE"), logger)
	default:
		return stt.NewLemonfoxClient(stt.NewLemonfoxConfigFromEnv(), logger)
	}
}
