package route

import (
	"net/http"

	"facewatch/internal/config"
	"facewatch/internal/handler"
	"facewatch/internal/logger"
	"facewatch/internal/middleware"
	"facewatch/internal/repository"
	wshub "facewatch/internal/service/websocket"
)

// SetupRoutes registers the status API and wraps the mux with token auth.
// captures and signals may be nil when no ledger is configured.
func SetupRoutes(status handler.StatusSource, hub *wshub.HubService, cfg *config.Config, logger *logger.Logger,
	captures repository.CaptureRepository, signals repository.SignalRepository) http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("GET /api/status", handler.StatusWebsocketHandler(status, hub, logger))
	mux.HandleFunc("GET /api/captures", handler.GetCapturesHandler(cfg, logger, captures))
	mux.HandleFunc("GET /api/signals", handler.GetSignalsHandler(logger, signals))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	return middleware.TokenAuth(cfg.StatusToken, mux)
}
