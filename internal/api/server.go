package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/api/handlers"
	"github.com/amaumene/gowatcharr/internal/api/middleware"
	"github.com/amaumene/gowatcharr/internal/config"
	"github.com/amaumene/gowatcharr/internal/history"
	"github.com/amaumene/gowatcharr/internal/ledger"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	ledger  *ledger.Ledger
	history *history.Log
	logger  *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, ldg *ledger.Ledger, hist *history.Log, logger *logrus.Logger) *Server {
	s := &Server{
		ledger:  ldg,
		history: hist,
		logger:  logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health check
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	// Status endpoint
	statusHandler := handlers.NewStatusHandler(s.ledger, s.history, s.logger)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)

	// Player progress reports
	progressHandler := handlers.NewProgressHandler(s.ledger, s.logger)
	mux.HandleFunc("/api/progress", progressHandler.ServeHTTP)

	// Continue-watching list
	watchingHandler := handlers.NewWatchingHandler(s.ledger, s.logger)
	mux.HandleFunc("/api/watching", watchingHandler.ServeHTTP)
	mux.HandleFunc("/api/watching/all", watchingHandler.ServeClearAll)
	mux.HandleFunc("/api/watching/restart", watchingHandler.ServeRestart)

	// Per-episode watched state
	episodesHandler := handlers.NewEpisodesHandler(s.ledger, s.logger)
	mux.HandleFunc("/api/episodes/watched", episodesHandler.ServeWatched)
	mux.HandleFunc("/api/episodes/accessed", episodesHandler.ServeAccessed)

	// Watch history
	historyHandler := handlers.NewHistoryHandler(s.history, s.logger)
	mux.HandleFunc("/api/history", historyHandler.ServeHTTP)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
