package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/history"
	"github.com/amaumene/gowatcharr/internal/models"
)

// HistoryHandler serves the watch history
type HistoryHandler struct {
	history *history.Log
	logger  *logrus.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(hist *history.Log, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{history: hist, logger: logger}
}

// ServeHTTP handles GET (list) and DELETE (clear) on /api/history
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries := h.history.Entries()
		if entries == nil {
			entries = []models.HistoryEntry{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)

	case http.MethodDelete:
		if err := h.history.Clear(); err != nil {
			h.logger.WithError(err).Error("Failed to clear history")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
