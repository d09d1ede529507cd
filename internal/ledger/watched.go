package ledger

import (
	"fmt"
	"sort"

	"github.com/amaumene/gowatcharr/internal/models"
)

// Watched-episode queries reconcile three signals: the explicit watched
// set under watched_episodes_*, the season high-water-mark, and live list
// entries past the watched threshold. Any signal present means watched.

// IsEpisodeWatched reports whether an episode counts as watched.
func (l *Ledger) IsEpisodeWatched(contentID string, season, episode int) bool {
	if !l.settings().ContinueWatchingEnabled() {
		return false
	}
	if l.inWatchedSet(contentID, season, episode) {
		return true
	}
	if episode < l.highestFor(contentID, season) {
		return true
	}
	for _, e := range l.load() {
		if e.ContentID == contentID && e.MediaType == models.MediaTypeShow &&
			e.Season == season && e.Episode == episode && e.Progress() >= watchedThreshold {
			return true
		}
	}
	return false
}

// GetWatchedEpisodes returns the sorted episode numbers of one season that
// count as watched.
func (l *Ledger) GetWatchedEpisodes(contentID string, season int) []int {
	if !l.settings().ContinueWatchingEnabled() {
		return nil
	}
	watched := make(map[int]bool)

	for _, marker := range l.loadWatchedSet(contentID) {
		s, e, ok := parseEpisodeKey(marker)
		if ok && s == season {
			watched[e] = true
		}
	}

	// Everything strictly below the high-water-mark has been passed
	for ep := 1; ep < l.highestFor(contentID, season); ep++ {
		watched[ep] = true
	}

	for _, e := range l.load() {
		if e.ContentID == contentID && e.MediaType == models.MediaTypeShow &&
			e.Season == season && e.Progress() >= watchedThreshold {
			watched[e.Episode] = true
		}
	}

	episodes := make([]int, 0, len(watched))
	for ep := range watched {
		episodes = append(episodes, ep)
	}
	sort.Ints(episodes)
	return episodes
}

// GetEpisodeProgress returns the playback fraction for an episode: the
// live list entry when one exists, 1 for a watched episode, 0 otherwise.
func (l *Ledger) GetEpisodeProgress(contentID string, season, episode int) float64 {
	if !l.settings().ContinueWatchingEnabled() {
		return 0
	}
	for _, e := range l.load() {
		if e.ContentID == contentID && e.MediaType == models.MediaTypeShow &&
			e.Season == season && e.Episode == episode {
			return e.Progress()
		}
	}
	if l.inWatchedSet(contentID, season, episode) || episode < l.highestFor(contentID, season) {
		return 1
	}
	return 0
}

// MarkEpisodeAsAccessed records that the user deliberately opened an
// episode, advancing the season high-water-mark when it is ahead.
func (l *Ledger) MarkEpisodeAsAccessed(contentID string, season, episode int) {
	if !l.settings().ContinueWatchingEnabled() {
		return
	}
	l.advanceHighest(contentID, season, episode)
}

// RemoveEpisodeProgress forgets one episode entirely: watched marker,
// session record, high-water-mark position, and any live list entry.
func (l *Ledger) RemoveEpisodeProgress(contentID string, season, episode int) error {
	if !l.settings().ContinueWatchingEnabled() {
		return nil
	}
	l.removeWatchedMarker(contentID, season, episode)
	l.clearSession(contentID, season, episode)
	l.lowerHighest(contentID, season, episode)

	entries := l.load()
	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if e.ContentID == contentID && e.MediaType == models.MediaTypeShow &&
			e.Season == season && e.Episode == episode {
			if err := l.history.Add(e, models.ReasonManual); err != nil {
				l.logger.WithError(err).Warn("Failed to record removed entry in history")
			}
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return nil
	}

	if err := l.store.SetJSON(models.KeyContinueWatching, kept); err != nil {
		return err
	}
	l.invalidate()
	return nil
}

// RemoveAllWatchedEpisodes forgets every watched marker, session record,
// and high-water-mark for one show. Live list entries are left alone.
func (l *Ledger) RemoveAllWatchedEpisodes(contentID string) error {
	if !l.settings().ContinueWatchingEnabled() {
		return nil
	}
	if err := l.store.Delete(models.WatchedEpisodesKey(contentID)); err != nil {
		return err
	}
	l.dropHighestFor(contentID)
	l.clearContentSessions(contentID)
	return nil
}

// noteShowProgress applies the bookkeeping that follows every allowed show
// write: the high-water-mark advances past a new furthest episode, and
// progress past the watched threshold marks the episode watched and
// discards its session record.
func (l *Ledger) noteShowProgress(entry models.WatchEntry) {
	if entry.Episode > l.highestFor(entry.ContentID, entry.Season) {
		l.advanceHighest(entry.ContentID, entry.Season, entry.Episode)
	}
	if entry.Progress() >= watchedThreshold {
		l.markWatched(entry.ContentID, entry.Season, entry.Episode)
		l.clearSession(entry.ContentID, entry.Season, entry.Episode)
	}
}

func (l *Ledger) loadWatchedSet(contentID string) []string {
	var markers []string
	l.store.GetJSON(models.WatchedEpisodesKey(contentID), &markers)
	return markers
}

func (l *Ledger) inWatchedSet(contentID string, season, episode int) bool {
	marker := models.EpisodeKey(season, episode)
	for _, m := range l.loadWatchedSet(contentID) {
		if m == marker {
			return true
		}
	}
	return false
}

func (l *Ledger) markWatched(contentID string, season, episode int) {
	if l.inWatchedSet(contentID, season, episode) {
		return
	}
	markers := append(l.loadWatchedSet(contentID), models.EpisodeKey(season, episode))
	if err := l.store.SetJSON(models.WatchedEpisodesKey(contentID), markers); err != nil {
		l.logger.WithError(err).Warn("Failed to persist watched episodes")
	}
}

func (l *Ledger) removeWatchedMarker(contentID string, season, episode int) {
	markers := l.loadWatchedSet(contentID)
	marker := models.EpisodeKey(season, episode)
	kept := markers[:0]
	for _, m := range markers {
		if m != marker {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(markers) {
		return
	}
	key := models.WatchedEpisodesKey(contentID)
	if len(kept) == 0 {
		l.store.Delete(key)
		return
	}
	if err := l.store.SetJSON(key, kept); err != nil {
		l.logger.WithError(err).Warn("Failed to persist watched episodes")
	}
}

func parseEpisodeKey(marker string) (season, episode int, ok bool) {
	if _, err := fmt.Sscanf(marker, "s%de%d", &season, &episode); err != nil {
		return 0, 0, false
	}
	return season, episode, true
}
