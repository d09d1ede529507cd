package models

import "encoding/json"

// Settings mirrors the appSettings key written by the settings UI. The
// tracker only reads it; absent or corrupted settings enable everything.
type Settings struct {
	EnableContinueWatching *bool `json:"enableContinueWatching,omitempty"`
	EnableHistory          *bool `json:"enableHistory,omitempty"`
}

// ContinueWatchingEnabled reports whether the continue-watching feature is
// on. Defaults to true when the setting is absent.
func (s Settings) ContinueWatchingEnabled() bool {
	return s.EnableContinueWatching == nil || *s.EnableContinueWatching
}

// HistoryEnabled reports whether the watch history feature is on.
// Defaults to true when the setting is absent.
func (s Settings) HistoryEnabled() bool {
	return s.EnableHistory == nil || *s.EnableHistory
}

// LoadSettings reads the appSettings key. Corrupted settings are treated as
// absent rather than deleted: the key belongs to the settings UI, not to
// this tracker.
func LoadSettings(store *Store) Settings {
	var settings Settings
	raw, ok := store.Get(KeySettings)
	if !ok {
		return settings
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}
	}
	return settings
}
