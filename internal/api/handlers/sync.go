package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/estrenarr/estrenarr/internal/controllers"
	"github.com/sirupsen/logrus"
)

// SyncHandler triggers sync passes over HTTP. Concurrent triggers attach to
// the in-flight pass, so hammering this endpoint cannot start parallel runs.
type SyncHandler struct {
	syncCtrl *controllers.SyncController
	logger   *logrus.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncCtrl *controllers.SyncController, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncCtrl: syncCtrl,
		logger:   logger,
	}
}

// ServeHTTP handles POST /api/sync?mode=full|incremental
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "incremental"
	}

	var (
		result *controllers.SyncResult
		err    error
	)
	switch mode {
	case "full":
		result, err = h.syncCtrl.FullSync(r.Context())
	case "incremental":
		result, err = h.syncCtrl.IncrementalSync(r.Context())
	default:
		http.Error(w, "Invalid mode, expected full or incremental", http.StatusBadRequest)
		return
	}

	if err != nil {
		h.logger.WithError(err).Error("Sync pass rejected")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
