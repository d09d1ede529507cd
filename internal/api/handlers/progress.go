package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/ledger"
	"github.com/amaumene/gowatcharr/internal/models"
)

// ProgressHandler receives playback progress reports from the player
type ProgressHandler struct {
	ledger *ledger.Ledger
	logger *logrus.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(ldg *ledger.Ledger, logger *logrus.Logger) *ProgressHandler {
	return &ProgressHandler{ledger: ldg, logger: logger}
}

// ProgressRequest represents one progress tick from the player
type ProgressRequest struct {
	models.WatchEntry
	TotalEpisodesInSeason int `json:"totalEpisodesInSeason,omitempty"`
	TotalSeasonCount      int `json:"totalSeasonCount,omitempty"`
}

// ServeHTTP handles the progress report endpoint
func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.ledger.SaveOrAdvance(req.WatchEntry, req.TotalEpisodesInSeason, req.TotalSeasonCount); err != nil {
		h.logger.WithError(err).Error("Failed to save progress")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Blocked or dropped reports look exactly like accepted ones: the
	// player has no use for the distinction
	w.WriteHeader(http.StatusNoContent)
}
