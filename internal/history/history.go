// Package history keeps the capped watch-history log: a record of every
// entry that left the continue-watching list, with the reason it left.
package history

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/models"
)

// Log owns the watchHistory key. Entries are newest first and the log is
// trimmed FIFO past the cap.
type Log struct {
	store  *models.Store
	max    int
	logger *logrus.Logger

	now func() time.Time
}

// NewLog creates a new history log with the given cap.
func NewLog(store *models.Store, max int, logger *logrus.Logger) *Log {
	return &Log{
		store:  store,
		max:    max,
		logger: logger,
		now:    time.Now,
	}
}

// Add appends a snapshot of a watch entry to the history. A prior entry
// with the same identity (content, type, season, episode) is replaced, so
// the log holds at most one current record per identity. No-op when the
// history feature is disabled.
func (l *Log) Add(entry models.WatchEntry, reason models.Reason) error {
	if !models.LoadSettings(l.store).HistoryEnabled() {
		return nil
	}

	record := models.HistoryEntry{
		WatchEntry:        entry,
		DeletedAt:         l.now().Unix(),
		WatchedPercentage: entry.WatchedPercentage(),
		Reason:            reason,
	}

	entries := l.load()

	// Dedupe by full identity including season/episode
	kept := entries[:0]
	for _, e := range entries {
		if e.ContentID == entry.ContentID && e.MediaType == entry.MediaType &&
			e.Season == entry.Season && e.Episode == entry.Episode {
			continue
		}
		kept = append(kept, e)
	}

	entries = append([]models.HistoryEntry{record}, kept...)
	if len(entries) > l.max {
		entries = entries[:l.max]
	}

	l.logger.WithFields(logrus.Fields{
		"content_id": entry.ContentID,
		"media_type": entry.MediaType,
		"reason":     reason,
	}).Debug("Recorded history entry")

	return l.store.SetJSON(models.KeyWatchHistory, entries)
}

// Entries returns the history, newest first. Returns an empty slice when
// the history feature is disabled or the stored value is unreadable.
func (l *Log) Entries() []models.HistoryEntry {
	if !models.LoadSettings(l.store).HistoryEnabled() {
		return nil
	}
	return l.load()
}

// Clear removes the entire history.
func (l *Log) Clear() error {
	return l.store.Delete(models.KeyWatchHistory)
}

// load reads the stored log, self-healing on corruption.
func (l *Log) load() []models.HistoryEntry {
	var entries []models.HistoryEntry
	if !l.store.GetJSON(models.KeyWatchHistory, &entries) {
		return nil
	}
	return entries
}
