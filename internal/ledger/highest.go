package ledger

import (
	"strconv"

	"github.com/amaumene/gowatcharr/internal/models"
)

// The high-water-mark under cw_highest records the furthest episode
// reached per show and season. It only moves forward, except for the
// explicit cleanup calls, and is a heuristic signal rather than a source
// of truth for playback position.

func (l *Ledger) loadHighest() models.HighestWatched {
	highest := models.HighestWatched{}
	if l.store.GetJSON(models.KeyHighestWatched, &highest) && highest == nil {
		// JSON null parses cleanly into a nil map, so the store's own
		// corruption check does not catch it
		l.logger.WithField("key", models.KeyHighestWatched).Warn("Null value in store, resetting key")
		l.store.Delete(models.KeyHighestWatched)
		highest = models.HighestWatched{}
	}
	return highest
}

func (l *Ledger) saveHighest(highest models.HighestWatched) {
	if err := l.store.SetJSON(models.KeyHighestWatched, highest); err != nil {
		l.logger.WithError(err).Warn("Failed to persist highest-watched marks")
	}
}

// highestFor returns the furthest episode reached for a season, or 0.
func (l *Ledger) highestFor(contentID string, season int) int {
	return l.loadHighest().Get(contentID, season)
}

// advanceHighest raises the high-water-mark to episode if it is ahead of
// the current mark.
func (l *Ledger) advanceHighest(contentID string, season, episode int) {
	highest := l.loadHighest()
	if episode <= highest.Get(contentID, season) {
		return
	}
	highest.Set(contentID, season, episode)
	l.saveHighest(highest)
}

// lowerHighest drops the high-water-mark below a removed episode. Used by
// the explicit per-episode cleanup call only.
func (l *Ledger) lowerHighest(contentID string, season, episode int) {
	highest := l.loadHighest()
	if highest.Get(contentID, season) != episode {
		return
	}
	if episode-1 > 0 {
		highest.Set(contentID, season, episode-1)
	} else if seasons, ok := highest[contentID]; ok {
		delete(seasons, strconv.Itoa(season))
		if len(seasons) == 0 {
			delete(highest, contentID)
		}
	}
	l.saveHighest(highest)
}

// dropHighestFor removes all high-water-marks for one show.
func (l *Ledger) dropHighestFor(contentID string) {
	highest := l.loadHighest()
	if _, ok := highest[contentID]; !ok {
		return
	}
	delete(highest, contentID)
	l.saveHighest(highest)
}
