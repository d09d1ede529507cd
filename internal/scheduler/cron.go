package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/history"
	"github.com/amaumene/gowatcharr/internal/ledger"
)

// Scheduler manages scheduled maintenance tasks
type Scheduler struct {
	cron           *cron.Cron
	ledger         *ledger.Ledger
	history        *history.Log
	sessionMaxIdle time.Duration
	logger         *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(ldg *ledger.Ledger, hist *history.Log, sessionMaxIdle time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:           cron.New(),
		ledger:         ldg,
		history:        hist,
		sessionMaxIdle: sessionMaxIdle,
		logger:         logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every hour: collect episode sessions idle past the cutoff
	_, err := s.cron.AddFunc("0 * * * *", func() {
		s.runSessionCleanup()
	})
	if err != nil {
		return fmt.Errorf("failed to add session cleanup job: %w", err)
	}

	// Every day: log tracker stats
	_, err = s.cron.AddFunc("0 4 * * *", func() {
		s.runStats()
	})
	if err != nil {
		return fmt.Errorf("failed to add stats job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Run an initial cleanup immediately; sessions may have gone stale
	// while the process was down
	go s.runSessionCleanup()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runSessionCleanup executes the session garbage collection job
func (s *Scheduler) runSessionCleanup() {
	s.logger.Debug("Running session cleanup")

	removed := s.ledger.CleanupSessions(s.sessionMaxIdle)
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Session cleanup completed")
	}
}

// runStats executes the daily stats job
func (s *Scheduler) runStats() {
	s.logger.WithFields(logrus.Fields{
		"watching": len(s.ledger.GetList()),
		"history":  len(s.history.Entries()),
	}).Info("Tracker stats")
}
