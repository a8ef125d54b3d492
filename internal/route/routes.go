package route

import (
	"net/http"

	"blurcam/internal/handler"
	"blurcam/internal/logger"
	"blurcam/internal/middleware"
	"blurcam/internal/service"
)

// SetupRoutes registers the control API and wraps the mux with the
// loopback-only middleware.
func SetupRoutes(manager *service.Manager, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Pipeline
	mux.HandleFunc("GET /api/status", handler.StatusHandler(manager))
	mux.HandleFunc("POST /api/pipeline/start", handler.StartHandler(manager))
	mux.HandleFunc("POST /api/pipeline/stop", handler.StopHandler(manager))
	mux.HandleFunc("GET /api/events", handler.EventsWebsocketHandler(manager, logger))

	// Settings
	mux.HandleFunc("GET /api/settings", handler.GetSettingsHandler(manager))
	mux.HandleFunc("POST /api/settings", handler.PatchSettingsHandler(manager, logger))
	mux.HandleFunc("GET /api/classes", handler.ClassesHandler())

	// Log endpoints
	mux.HandleFunc("GET /api/logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /api/logs/{level}/clear", handler.ClearLogsHandler(logger))

	return middleware.LocalOnly(logger, mux)
}
