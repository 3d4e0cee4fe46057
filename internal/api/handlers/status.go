package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/estrenarr/estrenarr/internal/controllers"
	"github.com/sirupsen/logrus"
)

// StatusHandler reports store counters and sync state
type StatusHandler struct {
	syncCtrl *controllers.SyncController
	logger   *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(syncCtrl *controllers.SyncController, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		syncCtrl: syncCtrl,
		logger:   logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalContent     int                  `json:"total_content"`
	AvailableContent int                  `json:"available_content"`
	LastFullSync     time.Time            `json:"last_full_sync"`
	ProviderLastSync map[string]time.Time `json:"provider_last_sync"`
	Syncing          bool                 `json:"syncing"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.syncCtrl.SyncStats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get store stats")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalContent:     stats.TotalContent,
		AvailableContent: stats.AvailableContent,
		LastFullSync:     stats.LastFullSync,
		ProviderLastSync: stats.ProviderLastSync,
		Syncing:          h.syncCtrl.IsSyncing(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
