package ledger

import (
	"testing"
	"time"

	"github.com/amaumene/gowatcharr/internal/models"
)

// watchAhead finishes episodes 1..n of season 1 so the high-water-mark
// lands on n and the ledger holds the auto-advanced next episode.
func watchAhead(t *testing.T, l *Ledger, id string, n int) {
	t.Helper()
	for ep := 1; ep <= n; ep++ {
		if err := l.SaveOrAdvance(showEntry(id, 1, ep, 1200, 1200), 10, 1); err != nil {
			t.Fatalf("SaveOrAdvance(e%d) error: %v", ep, err)
		}
	}
}

func TestGateBlocksStrayBackwardVisit(t *testing.T) {
	l, _, _, _ := newTestLedger(t)
	watchAhead(t, l, "s1", 3)

	// Accidental visit to episode 1 at 15% progress
	if err := l.SaveOrAdvance(showEntry("s1", 1, 1, 300, 2000), 10, 1); err != nil {
		t.Fatalf("SaveOrAdvance() error: %v", err)
	}

	for _, e := range l.GetList() {
		if e.ContentID == "s1" && e.Episode == 1 {
			t.Fatalf("stray backward visit should not have written episode 1: %+v", e)
		}
	}
}

func TestGateBlockedWriteStillAdvancesSession(t *testing.T) {
	l, _, store, clk := newTestLedger(t)
	watchAhead(t, l, "s1", 3)

	l.SaveOrAdvance(showEntry("s1", 1, 1, 300, 2000), 10, 1)

	var sess models.EpisodeSession
	if !store.GetJSON(models.SessionKey("s1", 1, 1), &sess) {
		t.Fatal("blocked write should have persisted a session record")
	}
	if sess.TotalWatchTime != 0 {
		t.Errorf("first tick watch time = %v, want 0", sess.TotalWatchTime)
	}

	clk.advance(30 * time.Second)
	l.SaveOrAdvance(showEntry("s1", 1, 1, 330, 2000), 10, 1)

	if !store.GetJSON(models.SessionKey("s1", 1, 1), &sess) {
		t.Fatal("session record missing after second tick")
	}
	if sess.TotalWatchTime != 30 {
		t.Errorf("accumulated watch time = %v, want 30", sess.TotalWatchTime)
	}
}

func TestGateAllowsAfterAccumulatedWatchTime(t *testing.T) {
	l, _, _, clk := newTestLedger(t)
	watchAhead(t, l, "s1", 3)

	// Keep watching episode 1: 5s ticks for a bit over two minutes

	for i := 0; i <= 25; i++ {
		l.SaveOrAdvance(showEntry("s1", 1, 1, 300+float64(5*i), 2000), 10, 1)
		clk.advance(5 * time.Second)
	}

	found := false
	for _, e := range l.GetList() {
		if e.ContentID == "s1" && e.Episode == 1 {
			found = true
		}
	}
	if !found {
		t.Error("sustained rewatch should eventually be written")
	}
}

func TestGateAllowsAfterGraceWindow(t *testing.T) {
	l, _, _, clk := newTestLedger(t)
	watchAhead(t, l, "s1", 3)

	// First visit: blocked
	l.SaveOrAdvance(showEntry("s1", 1, 1, 300, 2000), 10, 1)

	// Ten minutes later the grace window has lapsed
	clk.advance(10 * time.Minute)
	l.SaveOrAdvance(showEntry("s1", 1, 1, 300, 2000), 10, 1)

	found := false
	for _, e := range l.GetList() {
		if e.ContentID == "s1" && e.Episode == 1 {
			found = true
		}
	}
	if !found {
		t.Error("write after grace window should be accepted")
	}
}

func TestGateZeroTimeBypass(t *testing.T) {
	l, _, store, _ := newTestLedger(t)
	watchAhead(t, l, "s1", 3)

	// Block once so a session exists
	l.SaveOrAdvance(showEntry("s1", 1, 1, 300, 2000), 10, 1)
	if _, ok := store.Get(models.SessionKey("s1", 1, 1)); !ok {
		t.Fatal("expected a session record after the blocked write")
	}

	// Explicit restart at time zero goes straight through
	if err := l.SaveOrAdvance(showEntry("s1", 1, 1, 0, 2000), 10, 1); err != nil {
		t.Fatalf("SaveOrAdvance() error: %v", err)
	}

	found := false
	for _, e := range l.GetList() {
		if e.ContentID == "s1" && e.Episode == 1 && e.CurrentTime == 0 {
			found = true
		}
	}
	if !found {
		t.Error("zero-time write should always be accepted")
	}
	if _, ok := store.Get(models.SessionKey("s1", 1, 1)); ok {
		t.Error("zero-time bypass should clear the session record")
	}
}

func TestGateYieldsToProgressImprovement(t *testing.T) {
	l, _, _, _ := newTestLedger(t)
	watchAhead(t, l, "s1", 3)

	// Restart episode 1, then report forward progress: the live entry is
	// now the recorded progress, so each improvement passes the gate
	l.SaveOrAdvance(showEntry("s1", 1, 1, 0, 2000), 10, 1)
	if err := l.SaveOrAdvance(showEntry("s1", 1, 1, 400, 2000), 10, 1); err != nil {
		t.Fatalf("SaveOrAdvance() error: %v", err)
	}

	found := false
	for _, e := range l.GetList() {
		if e.ContentID == "s1" && e.Episode == 1 && e.CurrentTime == 400 {
			found = true
		}
	}
	if !found {
		t.Error("forward progress over the recorded position should be accepted")
	}
}

func TestGateIgnoresEpisodesAtOrAboveHighWaterMark(t *testing.T) {
	l, _, _, _ := newTestLedger(t)
	watchAhead(t, l, "s1", 3)

	// Episode 5 is ahead of the mark; low progress is fine
	if err := l.SaveOrAdvance(showEntry("s1", 1, 5, 60, 2000), 10, 1); err != nil {
		t.Fatalf("SaveOrAdvance() error: %v", err)
	}

	found := false
	for _, e := range l.GetList() {
		if e.ContentID == "s1" && e.Episode == 5 {
			found = true
		}
	}
	if !found {
		t.Error("write ahead of the high-water-mark should never be gated")
	}
}

func TestGateSkipsUnmeasuredDurations(t *testing.T) {
	l, _, _, _ := newTestLedger(t)
	watchAhead(t, l, "s1", 3)

	// Duration 0 means the player has not measured it yet; no gating
	if err := l.SaveOrAdvance(showEntry("s1", 1, 1, 0, 0), 10, 1); err != nil {
		t.Fatalf("SaveOrAdvance() error: %v", err)
	}

	found := false
	for _, e := range l.GetList() {
		if e.ContentID == "s1" && e.Episode == 1 {
			found = true
		}
	}
	if !found {
		t.Error("unmeasured-duration write should not be gated")
	}
}
