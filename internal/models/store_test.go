package models

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSetGetDelete(t *testing.T) {
	store := newTestStore(t)

	if _, ok := store.Get("missing"); ok {
		t.Error("Get on a missing key should report absence")
	}

	if err := store.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, ok := store.Get("k")
	if !ok || string(got) != "v" {
		t.Errorf("Get(k) = %q, %v, want v, true", got, ok)
	}

	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok := store.Get("k"); ok {
		t.Error("key should be gone after delete")
	}

	// Deleting again is fine
	if err := store.Delete("k"); err != nil {
		t.Errorf("Delete() on absent key error: %v", err)
	}
}

func TestKeysPrefix(t *testing.T) {
	store := newTestStore(t)

	store.Set("ep_session_a_s1_e1", []byte("{}"))
	store.Set("ep_session_a_s1_e2", []byte("{}"))
	store.Set("ep_session_b_s1_e1", []byte("{}"))
	store.Set("continueWatching", []byte("[]"))

	keys := store.Keys("ep_session_a_")
	if len(keys) != 2 {
		t.Fatalf("Keys(ep_session_a_) = %v, want 2 keys", keys)
	}
	if got := len(store.Keys("ep_session_")); got != 3 {
		t.Errorf("Keys(ep_session_) returned %d keys, want 3", got)
	}
	if got := len(store.Keys("nope_")); got != 0 {
		t.Errorf("Keys(nope_) returned %d keys, want 0", got)
	}
}

func TestGetJSONRoundTrip(t *testing.T) {
	store := newTestStore(t)

	in := WatchEntry{
		ContentID:   "m1",
		MediaType:   MediaTypeMovie,
		CurrentTime: 100,
		Duration:    7200,
		Title:       "Some Movie",
	}
	if err := store.SetJSON("entry", in); err != nil {
		t.Fatalf("SetJSON() error: %v", err)
	}

	var out WatchEntry
	if !store.GetJSON("entry", &out) {
		t.Fatal("GetJSON() reported absence for a stored value")
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestGetJSONSelfHealsCorruption(t *testing.T) {
	store := newTestStore(t)

	store.Set("bad", []byte("{definitely not json"))

	var out WatchEntry
	if store.GetJSON("bad", &out) {
		t.Fatal("GetJSON() should fail on a corrupted value")
	}
	if _, ok := store.Get("bad"); ok {
		t.Error("corrupted key should have been deleted")
	}
}

func TestSettingsDefaults(t *testing.T) {
	store := newTestStore(t)

	settings := LoadSettings(store)
	if !settings.ContinueWatchingEnabled() || !settings.HistoryEnabled() {
		t.Error("absent settings should enable both features")
	}

	// Corrupted settings fall back to defaults without deleting the key:
	// it belongs to the settings UI
	store.Set(KeySettings, []byte("oops"))
	settings = LoadSettings(store)
	if !settings.ContinueWatchingEnabled() || !settings.HistoryEnabled() {
		t.Error("corrupted settings should fall back to enabled")
	}
	if _, ok := store.Get(KeySettings); !ok {
		t.Error("settings key must not be deleted by the tracker")
	}

	off := false
	store.SetJSON(KeySettings, Settings{EnableContinueWatching: &off})
	settings = LoadSettings(store)
	if settings.ContinueWatchingEnabled() {
		t.Error("explicit false should disable continue watching")
	}
	if !settings.HistoryEnabled() {
		t.Error("unset history flag should stay enabled")
	}
}
