package ledger

import "github.com/amaumene/gowatcharr/internal/models"

// Episode session records live in the store under ep_session_* keys and
// are mirrored in memory so the 5-second progress ticks do not hit the
// database twice per decision. The store copy is authoritative.

func (l *Ledger) loadSession(key string) (models.EpisodeSession, bool) {
	if cached, ok := l.sessions.Get(key); ok {
		return cached.(models.EpisodeSession), true
	}

	var sess models.EpisodeSession
	if !l.store.GetJSON(key, &sess) {
		return models.EpisodeSession{}, false
	}
	l.sessions.SetDefault(key, sess)
	return sess, true
}

func (l *Ledger) saveSession(key string, sess models.EpisodeSession) {
	if err := l.store.SetJSON(key, sess); err != nil {
		l.logger.WithError(err).WithField("key", key).Warn("Failed to persist episode session")
	}
	l.sessions.SetDefault(key, sess)
}

func (l *Ledger) clearSession(contentID string, season, episode int) {
	key := models.SessionKey(contentID, season, episode)
	l.store.Delete(key)
	l.sessions.Delete(key)
}

// purgeEarlierSessions drops session records for episodes 1..episode-1 of
// the same season. Hygiene only; losing a session record is harmless.
func (l *Ledger) purgeEarlierSessions(contentID string, season, episode int) {
	for ep := 1; ep < episode; ep++ {
		l.clearSession(contentID, season, ep)
	}
}

// clearContentSessions drops every session record for one show.
func (l *Ledger) clearContentSessions(contentID string) {
	for _, key := range l.store.Keys(models.SessionKeyPrefix + contentID + "_") {
		l.store.Delete(key)
		l.sessions.Delete(key)
	}
}
