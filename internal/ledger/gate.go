package ledger

import (
	"time"

	"github.com/amaumene/gowatcharr/internal/models"
)

// Regression-protection tuning. The gate blocks brief accidental visits to
// already-surpassed episodes from overwriting saved progress, while a
// bounded grace window guarantees a deliberate rewatch eventually lands.
const (
	// Durations at or below this look unmeasured; the gate does not run
	gateMinDuration = 30.0

	// Progress at or past this marks an episode watched
	watchedThreshold = 0.9

	// Wall-clock window after first observation during which low-engagement
	// backward writes are blocked
	graceWindow = 10 * time.Minute

	// Accumulated active watch time that unlocks the write early
	requiredWatchTime = 120.0

	// Per-tick credit cap, so an idle tab cannot inflate watch time
	maxTickCredit = 30.0
)

// gateAllows decides whether a progress report for a show episode may be
// written. It only ever blocks reports that look like a stray backward
// visit: an episode below the season's high-water-mark, partial progress,
// and no improvement over what is already recorded. Blocked reports still
// advance the episode's session counters toward eventual allowance.
func (l *Ledger) gateAllows(entry models.WatchEntry) bool {
	highest := l.highestFor(entry.ContentID, entry.Season)
	if entry.Episode >= highest {
		return true
	}

	progress := entry.Progress()
	if progress >= watchedThreshold {
		return true
	}

	existing := l.GetEpisodeProgress(entry.ContentID, entry.Season, entry.Episode)
	if progress >= existing {
		return true
	}

	if entry.CurrentTime == 0 {
		// Explicit restart: always allowed, session starts over
		l.clearSession(entry.ContentID, entry.Season, entry.Episode)
		return true
	}

	now := l.now().Unix()
	key := models.SessionKey(entry.ContentID, entry.Season, entry.Episode)
	sess, ok := l.loadSession(key)
	if !ok {
		sess = models.EpisodeSession{
			StartTime:       now,
			LastUpdate:      now,
			InitialProgress: existing,
		}
	}

	credit := float64(now - sess.LastUpdate)
	if credit > maxTickCredit {
		credit = maxTickCredit
	}
	if credit > 0 {
		sess.TotalWatchTime += credit
	}
	sess.LastUpdate = now

	allowed := sess.TotalWatchTime >= requiredWatchTime ||
		progress > sess.InitialProgress ||
		now-sess.StartTime >= int64(graceWindow/time.Second)

	// Counters persist either way so elapsed and accumulated time keep
	// advancing toward eventual allowance
	l.saveSession(key, sess)

	return allowed
}
