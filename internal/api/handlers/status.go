package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/history"
	"github.com/amaumene/gowatcharr/internal/ledger"
	"github.com/amaumene/gowatcharr/internal/models"
)

// StatusHandler handles status requests
type StatusHandler struct {
	ledger  *ledger.Ledger
	history *history.Log
	logger  *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(ldg *ledger.Ledger, hist *history.Log, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		ledger:  ldg,
		history: hist,
		logger:  logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Watching        int            `json:"watching"`
	Movies          int            `json:"movies"`
	Shows           int            `json:"shows"`
	HistoryEntries  int            `json:"history_entries"`
	HistoryByReason map[string]int `json:"history_by_reason"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := h.ledger.GetList()
	historyEntries := h.history.Entries()

	response := StatusResponse{
		Watching:        len(entries),
		HistoryEntries:  len(historyEntries),
		HistoryByReason: make(map[string]int),
	}

	for _, e := range entries {
		switch e.MediaType {
		case models.MediaTypeMovie:
			response.Movies++
		case models.MediaTypeShow:
			response.Shows++
		}
	}

	for _, e := range historyEntries {
		response.HistoryByReason[string(e.Reason)]++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
