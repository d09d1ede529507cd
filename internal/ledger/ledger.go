// Package ledger implements the continue-watching list: the ordered set of
// in-progress items, the per-show high-water-mark of furthest episode
// reached, and the session heuristic that protects saved progress from
// stray backward seeks.
package ledger

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/history"
	"github.com/amaumene/gowatcharr/internal/models"
)

const (
	// Durations below these are treated as not yet measured
	minShowDuration  = 900.0
	minMovieDuration = 1800.0

	listCacheKey     = "list"
	settingsCacheKey = "settings"
	settingsTTL      = 5 * time.Second
)

// Ledger owns the continueWatching key and the per-show bookkeeping keys
// (cw_highest, ep_session_*, watched_episodes_*). No other component
// writes those keys.
type Ledger struct {
	store   *models.Store
	history *history.Log
	logger  *logrus.Logger

	maxEntries int
	listTTL    time.Duration

	cache    *cache.Cache // read-through cache for the list and settings
	sessions *cache.Cache // in-memory mirror of episode session records

	now func() time.Time
}

// New creates a ledger over the given store. maxEntries caps the list
// length; listTTL bounds how stale a cached GetList result may be.
func New(store *models.Store, hist *history.Log, maxEntries int, listTTL time.Duration, logger *logrus.Logger) *Ledger {
	return &Ledger{
		store:      store,
		history:    hist,
		logger:     logger,
		maxEntries: maxEntries,
		listTTL:    listTTL,
		cache:      cache.New(listTTL, 5*time.Minute),
		sessions:   cache.New(24*time.Hour, time.Hour),
		now:        time.Now,
	}
}

// GetList returns the filtered, de-duplicated continue-watching list,
// newest first. Results are cached for the list TTL; any write invalidates
// the cache. Returns an empty list when the feature is disabled or the
// stored value is unreadable.
func (l *Ledger) GetList() []models.WatchEntry {
	if !l.settings().ContinueWatchingEnabled() {
		return nil
	}

	if cached, ok := l.cache.Get(listCacheKey); ok {
		return cached.([]models.WatchEntry)
	}

	entries := l.load()
	filtered := make([]models.WatchEntry, 0, len(entries))
	seen := make(map[string]bool)
	for _, e := range entries {
		key := e.ContentID + "|" + string(e.MediaType)
		if seen[key] {
			continue
		}
		seen[key] = true
		// Finished movies drop out of the rail; finished show episodes are
		// advanced by SaveOrAdvance instead.
		if e.MediaType == models.MediaTypeMovie && e.Duration > 0 && e.CurrentTime > 0 && e.CurrentTime >= e.Duration {
			continue
		}
		filtered = append(filtered, e)
	}

	l.cache.Set(listCacheKey, filtered, l.listTTL)
	return filtered
}

// SaveOrAdvance is the central write path, called on every progress tick
// from the active player and once more on page unload. It upserts the
// entry, may reject the write via the regression gate, moves completed
// entries to history, and auto-advances shows to the next episode.
// totalEpisodesInSeason and totalSeasonCount may be 0 when unknown.
func (l *Ledger) SaveOrAdvance(entry models.WatchEntry, totalEpisodesInSeason, totalSeasonCount int) error {
	if !l.settings().ContinueWatchingEnabled() {
		return nil
	}
	if entry.ContentID == "" || !entry.MediaType.Valid() {
		l.logger.Debug("Dropping progress report without content identity")
		return nil
	}

	if entry.MediaType == models.MediaTypeShow {
		// Bookkeeping hygiene: earlier episodes of this season are behind us
		l.purgeEarlierSessions(entry.ContentID, entry.Season, entry.Episode)
	}

	entries := l.load()
	kept := make([]models.WatchEntry, 0, len(entries))
	for _, e := range entries {
		if e.SameIdentity(entry) {
			continue
		}
		kept = append(kept, e)
	}

	if entry.MediaType == models.MediaTypeShow && entry.Duration > gateMinDuration {
		if !l.gateAllows(entry) {
			l.logger.WithFields(logrus.Fields{
				"content_id": entry.ContentID,
				"season":     entry.Season,
				"episode":    entry.Episode,
			}).Debug("Progress report blocked by regression gate")
			return nil
		}
	}

	entry.UpdatedAt = l.now().Unix()

	if l.ShouldRemove(entry) {
		if err := l.history.Add(entry, models.ReasonCompleted); err != nil {
			l.logger.WithError(err).Warn("Failed to record completed entry in history")
		}
		if entry.MediaType == models.MediaTypeShow {
			l.noteShowProgress(entry)
			if next, ok := nextEpisode(entry, totalEpisodesInSeason, totalSeasonCount); ok {
				kept = append([]models.WatchEntry{next}, kept...)
				l.logger.WithFields(logrus.Fields{
					"content_id": entry.ContentID,
					"season":     next.Season,
					"episode":    next.Episode,
				}).Debug("Auto-advanced to next episode")
			}
		}
	} else {
		kept = append([]models.WatchEntry{entry}, kept...)
		if entry.MediaType == models.MediaTypeShow {
			l.noteShowProgress(entry)
		}
	}

	kept = l.evictOverflow(kept)

	if err := l.store.SetJSON(models.KeyContinueWatching, kept); err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// ShouldRemove reports whether an entry counts as finished. Durations below
// the per-type minimum are treated as not yet measured and never finish,
// except a short movie that has been played to its measured end.
func (l *Ledger) ShouldRemove(entry models.WatchEntry) bool {
	if entry.CurrentTime == 0 {
		// Explicit restart signal
		return false
	}

	minDuration := minShowDuration
	if entry.MediaType == models.MediaTypeMovie {
		minDuration = minMovieDuration
	}
	if entry.Duration < minDuration {
		if entry.MediaType == models.MediaTypeMovie && entry.Duration > 0 && entry.CurrentTime >= entry.Duration {
			return true
		}
		return false
	}

	return entry.CurrentTime >= entry.Duration
}

// RemoveEntry removes the entry at the given list index. Out-of-range
// indexes are ignored.
func (l *Ledger) RemoveEntry(index int) error {
	if !l.settings().ContinueWatchingEnabled() {
		return nil
	}
	entries := l.load()
	if index < 0 || index >= len(entries) {
		return nil
	}

	if err := l.history.Add(entries[index], models.ReasonManual); err != nil {
		l.logger.WithError(err).Warn("Failed to record removed entry in history")
	}
	entries = append(entries[:index], entries[index+1:]...)

	if err := l.store.SetJSON(models.KeyContinueWatching, entries); err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// Remove removes every entry matching the given content identity.
func (l *Ledger) Remove(contentID string, mediaType models.MediaType) error {
	if !l.settings().ContinueWatchingEnabled() {
		return nil
	}
	entries := l.load()
	kept := entries[:0]
	removed := 0
	for _, e := range entries {
		if e.ContentID == contentID && e.MediaType == mediaType {
			if err := l.history.Add(e, models.ReasonManual); err != nil {
				l.logger.WithError(err).Warn("Failed to record removed entry in history")
			}
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return nil
	}

	if err := l.store.SetJSON(models.KeyContinueWatching, kept); err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// ClearAll empties the continue-watching list. Every entry is logged to
// history as a manual removal first.
func (l *Ledger) ClearAll() error {
	if !l.settings().ContinueWatchingEnabled() {
		return nil
	}
	for _, e := range l.load() {
		if err := l.history.Add(e, models.ReasonManual); err != nil {
			l.logger.WithError(err).Warn("Failed to record removed entry in history")
		}
	}
	if err := l.store.Delete(models.KeyContinueWatching); err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// RestartEpisode is an explicit user-initiated restart of one episode. It
// bypasses the regression gate, discards the episode's session record, and
// writes a fresh zero-progress entry. Watched markers and the
// high-water-mark are left alone: a replayed episode stays watched.
func (l *Ledger) RestartEpisode(contentID string, season, episode int, duration float64, title, poster string) error {
	if !l.settings().ContinueWatchingEnabled() {
		return nil
	}
	if contentID == "" {
		return nil
	}

	l.clearSession(contentID, season, episode)

	fresh := models.WatchEntry{
		ContentID:   contentID,
		MediaType:   models.MediaTypeShow,
		Season:      season,
		Episode:     episode,
		CurrentTime: 0,
		Duration:    duration,
		Title:       title,
		Poster:      poster,
		UpdatedAt:   l.now().Unix(),
	}

	entries := l.load()
	kept := make([]models.WatchEntry, 0, len(entries)+1)
	kept = append(kept, fresh)
	for _, e := range entries {
		if e.SameIdentity(fresh) {
			continue
		}
		kept = append(kept, e)
	}
	kept = l.evictOverflow(kept)

	if err := l.store.SetJSON(models.KeyContinueWatching, kept); err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// CleanupSessions drops episode session records idle for longer than
// maxIdle and returns how many were removed. Run hourly by the scheduler
// and callable directly.
func (l *Ledger) CleanupSessions(maxIdle time.Duration) int {
	removed := 0
	cutoff := l.now().Add(-maxIdle).Unix()
	for _, key := range l.store.Keys(models.SessionKeyPrefix) {
		var sess models.EpisodeSession
		if !l.store.GetJSON(key, &sess) {
			// Corrupted records were already deleted by the read; drop any
			// mirrored copy too so a cache hit cannot resurrect them
			l.sessions.Delete(key)
			removed++
			continue
		}
		if sess.LastUpdate < cutoff {
			l.store.Delete(key)
			l.sessions.Delete(key)
			removed++
		}
	}
	if removed > 0 {
		l.logger.WithField("removed", removed).Info("Cleaned up stale episode sessions")
	}
	return removed
}

// nextEpisode synthesizes the zero-progress entry that follows a completed
// episode: the next episode of the season, or episode 1 of the next season
// when the season is done and another exists.
func nextEpisode(entry models.WatchEntry, totalEpisodesInSeason, totalSeasonCount int) (models.WatchEntry, bool) {
	next := entry
	next.CurrentTime = 0
	next.Duration = 0

	switch {
	case totalEpisodesInSeason > 0 && entry.Episode < totalEpisodesInSeason:
		next.Episode = entry.Episode + 1
		return next, true
	case totalSeasonCount > 0 && entry.Season < totalSeasonCount:
		next.Season = entry.Season + 1
		next.Episode = 1
		return next, true
	}
	return models.WatchEntry{}, false
}

// evictOverflow trims the list to the cap, logging each evicted tail entry
// to history.
func (l *Ledger) evictOverflow(entries []models.WatchEntry) []models.WatchEntry {
	for len(entries) > l.maxEntries {
		tail := entries[len(entries)-1]
		entries = entries[:len(entries)-1]
		if err := l.history.Add(tail, models.ReasonOverflow); err != nil {
			l.logger.WithError(err).Warn("Failed to record evicted entry in history")
		}
	}
	return entries
}

// load reads the stored list, self-healing on corruption.
func (l *Ledger) load() []models.WatchEntry {
	var entries []models.WatchEntry
	if !l.store.GetJSON(models.KeyContinueWatching, &entries) {
		return nil
	}
	return entries
}

// settings reads the app settings through a short-lived cache.
func (l *Ledger) settings() models.Settings {
	if cached, ok := l.cache.Get(settingsCacheKey); ok {
		return cached.(models.Settings)
	}
	settings := models.LoadSettings(l.store)
	l.cache.Set(settingsCacheKey, settings, settingsTTL)
	return settings
}

// invalidate drops the cached list after any write.
func (l *Ledger) invalidate() {
	l.cache.Delete(listCacheKey)
}
