package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"blurcam/internal/logger"
	"blurcam/internal/service"
	"blurcam/internal/service/ai"
	"blurcam/internal/service/pipeline"
)

// maxBody bounds control request bodies.
const maxBody = 64 << 10

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status  string         `json:"status"`
	Running bool           `json:"running"`
	Stats   pipeline.Stats `json:"stats"`
	Clients int            `json:"clients"`
}

// ClassesResponse is the body of GET /api/classes.
type ClassesResponse struct {
	Common []ai.Class `json:"common"`
	Count  int        `json:"count"`
}

// StatusHandler reports the latest status text and run counters.
func StatusHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{
			Status:  manager.Status(),
			Running: manager.Running(),
			Stats:   manager.Stats(),
			Clients: manager.GetWebsocketService().GetClientCount(),
		})
	}
}

// GetSettingsHandler returns the current settings.
func GetSettingsHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.Settings().Get())
	}
}

// PatchSettingsHandler applies a partial JSON object of setting keys and
// returns the resulting settings.
func PatchSettingsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]interface{}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&patch); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		if err := manager.Settings().Patch(patch); err != nil {
			logger.Warning("Rejected settings patch: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, manager.Settings().Get())
	}
}

// ClassesHandler lists the common redaction targets of the fixed model.
func ClassesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ClassesResponse{Common: ai.CommonTargets, Count: ai.ClassCount()})
	}
}

// StartHandler starts a pipeline run.
func StartHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := manager.Start()
		switch {
		case errors.Is(err, service.ErrAlreadyRunning):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusAccepted)
		}
	}
}

// StopHandler stops the active run and waits for it to finish.
func StopHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.Stop()
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
