package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/swara/domain/entities"
	"github.com/satriahrh/swara/internal/auth"
	"github.com/satriahrh/swara/internal/websocket"
	"github.com/satriahrh/swara/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, svc *usecase.TranscriptionService, hub *websocket.Hub, authenticator *auth.Authenticator, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "swara",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")
	if authenticator.Enabled() {
		v1.Use(bearerAuth(authenticator, logger))
	}

	v1.POST("/sessions", func(c echo.Context) error {
		return startSession(c, svc, logger)
	})
	v1.GET("/sessions", func(c echo.Context) error {
		return listSessions(c, svc)
	})
	v1.GET("/sessions/:id", func(c echo.Context) error {
		return getSession(c, svc)
	})
	v1.DELETE("/sessions/:id", func(c echo.Context) error {
		return stopSession(c, svc, logger)
	})
	v1.GET("/sessions/:id/transcript", func(c echo.Context) error {
		return getTranscript(c, svc)
	})

	// WebSocket endpoint streaming pipeline events
	e.GET("/ws", func(c echo.Context) error {
		if authenticator.Enabled() {
			token := c.QueryParam("token")
			if _, err := authenticator.ValidateToken(token); err != nil {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "A valid token query parameter is required",
				})
			}
		}
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

// bearerAuth validates the Authorization header on API requests.
func bearerAuth(authenticator *auth.Authenticator, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization bearer token is required",
				})
			}
			claims, err := authenticator.ValidateToken(token)
			if err != nil {
				logger.Warn("token validation failed", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Token is expired or invalid",
				})
			}
			c.Set("client_id", claims.ClientID)
			return next(c)
		}
	}
}

func startSession(c echo.Context, svc *usecase.TranscriptionService, logger *zap.Logger) error {
	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind start session request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	opts := entities.RecognitionOptions{
		SpeakerCount:       req.SpeakerCount,
		Prompt:             req.Prompt,
		AutoDetectLanguage: req.AutoDetectLanguage,
	}
	if opts.SpeakerCount == 0 {
		opts.SpeakerCount = 2
	}

	var (
		session *usecase.Session
		err     error
	)
	switch req.Source {
	case "file":
		if req.Path == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "missing_fields",
				Message: "Path is required for file sessions",
			})
		}
		// The session outlives this request; do not tie it to the
		// request context.
		session, err = svc.StartFileSession(context.Background(), req.Path, opts)
	case "capture":
		session, err = svc.StartCaptureSession(context.Background(), opts)
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_source",
			Message: "Source must be \"file\" or \"capture\"",
		})
	}
	if err != nil {
		logger.Error("Failed to start session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_start_failed",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, toSessionResponse(session))
}

func listSessions(c echo.Context, svc *usecase.TranscriptionService) error {
	sessions := svc.Sessions()
	out := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionResponse(session))
	}
	return c.JSON(http.StatusOK, out)
}

func getSession(c echo.Context, svc *usecase.TranscriptionService) error {
	session, err := svc.Session(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func stopSession(c echo.Context, svc *usecase.TranscriptionService, logger *zap.Logger) error {
	id := c.Param("id")
	if err := svc.StopSession(id); err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: err.Error(),
		})
	}
	logger.Info("session stop requested", zap.String("session", id))
	return c.JSON(http.StatusAccepted, map[string]string{"status": "stopping"})
}

func getTranscript(c echo.Context, svc *usecase.TranscriptionService) error {
	session, err := svc.Session(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, TranscriptResponse{
		SessionID: session.ID,
		State:     session.State(),
		Segments:  session.Transcript(),
	})
}

func toSessionResponse(session *usecase.Session) SessionResponse {
	return SessionResponse{
		ID:        session.ID,
		Source:    session.Source,
		State:     session.State(),
		StartedAt: session.StartedAt,
	}
}
