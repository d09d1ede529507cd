package models

import (
	"fmt"
	"strconv"
)

// MediaType represents the type of media (movie or tv show)
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeShow  MediaType = "show"
)

// Valid reports whether the media type is one of the known values.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeShow
}

// Reason explains why an entry was moved to the watch history
type Reason string

const (
	ReasonCompleted Reason = "completed" // playback reached the end
	ReasonManual    Reason = "manual"    // removed by the user
	ReasonOverflow  Reason = "overflow"  // evicted past the list cap
)

// WatchEntry is one in-progress item on the continue-watching list.
// There is at most one entry per (ContentID, MediaType) at any time.
type WatchEntry struct {
	ContentID string    `json:"id"`
	MediaType MediaType `json:"mediaType"`

	// Season/Episode are meaningful for shows only
	Season  int `json:"season,omitempty"`
	Episode int `json:"episode,omitempty"`

	// Playback position in seconds. Duration 0 means not yet measured.
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`

	// Display metadata, advisory only
	Poster string `json:"poster,omitempty"`
	Title  string `json:"title,omitempty"`

	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// SameIdentity reports whether two entries refer to the same content item.
func (e WatchEntry) SameIdentity(other WatchEntry) bool {
	return e.ContentID == other.ContentID && e.MediaType == other.MediaType
}

// Progress returns the playback position as a fraction of the duration,
// or 0 when the duration is not yet measured.
func (e WatchEntry) Progress() float64 {
	if e.Duration <= 0 {
		return 0
	}
	return e.CurrentTime / e.Duration
}

// WatchedPercentage returns the playback position as a whole percentage,
// clamped to 0-100.
func (e WatchEntry) WatchedPercentage() int {
	if e.Duration <= 0 {
		return 0
	}
	pct := int(e.CurrentTime / e.Duration * 100)
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// HistoryEntry is a snapshot of a watch entry at the moment it left the
// continue-watching list. Duplicates across time are intentional.
type HistoryEntry struct {
	WatchEntry
	DeletedAt         int64  `json:"deletedAt"`
	WatchedPercentage int    `json:"watchedPercentage"`
	Reason            Reason `json:"reason"`
}

// HighestWatched maps content ID to season (as a decimal string) to the
// furthest episode number reached in that season.
type HighestWatched map[string]map[string]int

// Get returns the high-water-mark episode for a season, or 0 if none.
func (h HighestWatched) Get(contentID string, season int) int {
	seasons, ok := h[contentID]
	if !ok {
		return 0
	}
	return seasons[strconv.Itoa(season)]
}

// Set records the high-water-mark episode for a season. A nil inner map
// (left behind by a null season object in the stored JSON) is replaced.
func (h HighestWatched) Set(contentID string, season, episode int) {
	seasons := h[contentID]
	if seasons == nil {
		seasons = make(map[string]int)
		h[contentID] = seasons
	}
	seasons[strconv.Itoa(season)] = episode
}

// EpisodeSession tracks how long the current player session has lingered
// on one episode. Purely advisory; safe to lose.
type EpisodeSession struct {
	StartTime       int64   `json:"startTime"`       // unix seconds, first observation
	TotalWatchTime  float64 `json:"totalWatchTime"`  // accumulated active seconds
	LastUpdate      int64   `json:"lastUpdate"`      // unix seconds
	InitialProgress float64 `json:"initialProgress"` // fraction at first observation
}

// Persisted key layout. Every key holds a UTF-8 JSON value.
const (
	KeyContinueWatching = "continueWatching"
	KeyWatchHistory     = "watchHistory"
	KeyHighestWatched   = "cw_highest"
	KeySettings         = "appSettings"

	SessionKeyPrefix      = "ep_session_"
	WatchedEpisodesPrefix = "watched_episodes_"
)

// SessionKey returns the store key for an episode's session record.
func SessionKey(contentID string, season, episode int) string {
	return fmt.Sprintf("%s%s_s%d_e%d", SessionKeyPrefix, contentID, season, episode)
}

// WatchedEpisodesKey returns the store key for a show's watched-episode set.
func WatchedEpisodesKey(contentID string) string {
	return WatchedEpisodesPrefix + contentID
}

// EpisodeKey returns the "s{season}e{episode}" marker used inside the
// watched-episode set.
func EpisodeKey(season, episode int) string {
	return fmt.Sprintf("s%de%d", season, episode)
}
