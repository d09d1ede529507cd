package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/ledger"
)

// EpisodesHandler serves per-episode watched state for shows
type EpisodesHandler struct {
	ledger *ledger.Ledger
	logger *logrus.Logger
}

// NewEpisodesHandler creates a new episodes handler
func NewEpisodesHandler(ldg *ledger.Ledger, logger *logrus.Logger) *EpisodesHandler {
	return &EpisodesHandler{ledger: ldg, logger: logger}
}

// WatchedResponse lists the watched episodes of one season
type WatchedResponse struct {
	ContentID string `json:"id"`
	Season    int    `json:"season"`
	Episodes  []int  `json:"episodes"`
}

// ServeWatched handles GET /api/episodes/watched and DELETE of per-episode
// or per-show progress
func (h *EpisodesHandler) ServeWatched(w http.ResponseWriter, r *http.Request) {
	contentID := r.URL.Query().Get("id")
	if contentID == "" {
		http.Error(w, "id query parameter is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		season := queryInt(r, "season")
		episodes := h.ledger.GetWatchedEpisodes(contentID, season)
		if episodes == nil {
			episodes = []int{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(WatchedResponse{
			ContentID: contentID,
			Season:    season,
			Episodes:  episodes,
		})

	case http.MethodDelete:
		var err error
		if r.URL.Query().Get("episode") == "" {
			err = h.ledger.RemoveAllWatchedEpisodes(contentID)
		} else {
			err = h.ledger.RemoveEpisodeProgress(contentID, queryInt(r, "season"), queryInt(r, "episode"))
		}
		if err != nil {
			h.logger.WithError(err).Error("Failed to remove watched state")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// AccessedRequest marks one episode as deliberately opened by the user
type AccessedRequest struct {
	ContentID string `json:"id"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
}

// ServeAccessed handles POST /api/episodes/accessed
func (h *EpisodesHandler) ServeAccessed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AccessedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContentID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	h.ledger.MarkEpisodeAsAccessed(req.ContentID, req.Season, req.Episode)
	w.WriteHeader(http.StatusNoContent)
}
