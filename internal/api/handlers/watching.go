package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/ledger"
	"github.com/amaumene/gowatcharr/internal/models"
)

// WatchingHandler serves the continue-watching list and its removal
// operations
type WatchingHandler struct {
	ledger *ledger.Ledger
	logger *logrus.Logger
}

// NewWatchingHandler creates a new continue-watching handler
func NewWatchingHandler(ldg *ledger.Ledger, logger *logrus.Logger) *WatchingHandler {
	return &WatchingHandler{ledger: ldg, logger: logger}
}

// ServeHTTP handles GET (list) and DELETE (remove one identity) on
// /api/watching
func (h *WatchingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries := h.ledger.GetList()
		if entries == nil {
			entries = []models.WatchEntry{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)

	case http.MethodDelete:
		contentID := r.URL.Query().Get("id")
		mediaType := models.MediaType(r.URL.Query().Get("type"))
		if contentID == "" || !mediaType.Valid() {
			http.Error(w, "id and type query parameters are required", http.StatusBadRequest)
			return
		}
		if err := h.ledger.Remove(contentID, mediaType); err != nil {
			h.logger.WithError(err).Error("Failed to remove entry")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ServeClearAll handles DELETE /api/watching/all
func (h *WatchingHandler) ServeClearAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.ledger.ClearAll(); err != nil {
		h.logger.WithError(err).Error("Failed to clear continue-watching list")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestartRequest asks for an explicit restart of one episode
type RestartRequest struct {
	ContentID string  `json:"id"`
	Season    int     `json:"season"`
	Episode   int     `json:"episode"`
	Duration  float64 `json:"duration,omitempty"`
	Title     string  `json:"title,omitempty"`
	Poster    string  `json:"poster,omitempty"`
}

// ServeRestart handles POST /api/watching/restart
func (h *WatchingHandler) ServeRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RestartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContentID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := h.ledger.RestartEpisode(req.ContentID, req.Season, req.Episode, req.Duration, req.Title, req.Poster); err != nil {
		h.logger.WithError(err).Error("Failed to restart episode")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryInt reads an integer query parameter, returning 0 when absent or
// malformed.
func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}
