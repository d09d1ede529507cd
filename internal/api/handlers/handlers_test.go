package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gowatcharr/internal/history"
	"github.com/amaumene/gowatcharr/internal/ledger"
	"github.com/amaumene/gowatcharr/internal/models"
)

func newTestHandlers(t *testing.T) (*ProgressHandler, *WatchingHandler, *HistoryHandler) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := models.NewStore(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hist := history.NewLog(store, 100, logger)
	ldg := ledger.New(store, hist, 30, 30*time.Second, logger)

	return NewProgressHandler(ldg, logger), NewWatchingHandler(ldg, logger), NewHistoryHandler(hist, logger)
}

func TestProgressThenList(t *testing.T) {
	progress, watching, _ := newTestHandlers(t)

	body := `{"id":"m1","mediaType":"movie","currentTime":1800,"duration":7200,"title":"Some Movie"}`
	req := httptest.NewRequest(http.MethodPost, "/api/progress", strings.NewReader(body))
	rec := httptest.NewRecorder()
	progress.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("progress status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/watching", nil)
	rec = httptest.NewRecorder()
	watching.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("watching status = %d, want 200", rec.Code)
	}

	var entries []models.WatchEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(entries) != 1 || entries[0].ContentID != "m1" {
		t.Fatalf("list = %+v, want one m1 entry", entries)
	}
}

func TestProgressCompletionLandsInHistory(t *testing.T) {
	progress, _, historyHandler := newTestHandlers(t)

	body := `{"id":"m1","mediaType":"movie","currentTime":4200,"duration":4200}`
	req := httptest.NewRequest(http.MethodPost, "/api/progress", strings.NewReader(body))
	rec := httptest.NewRecorder()
	progress.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("progress status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec = httptest.NewRecorder()
	historyHandler.ServeHTTP(rec, req)

	var entries []models.HistoryEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(entries) != 1 || entries[0].Reason != models.ReasonCompleted {
		t.Fatalf("history = %+v, want one completed entry", entries)
	}
}

func TestProgressRejectsBadBody(t *testing.T) {
	progress, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/progress", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	progress.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWatchingDeleteRequiresIdentity(t *testing.T) {
	_, watching, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/watching?id=m1", nil)
	rec := httptest.NewRecorder()
	watching.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRestartEndpoint(t *testing.T) {
	progress, watching, _ := newTestHandlers(t)

	body := `{"id":"s1","mediaType":"show","season":1,"episode":2,"currentTime":600,"duration":1200,"totalEpisodesInSeason":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/progress", strings.NewReader(body))
	progress.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/api/watching/restart", strings.NewReader(`{"id":"s1","season":1,"episode":2,"duration":1200}`))
	rec := httptest.NewRecorder()
	watching.ServeRestart(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("restart status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/watching", nil)
	rec = httptest.NewRecorder()
	watching.ServeHTTP(rec, req)

	var entries []models.WatchEntry
	json.NewDecoder(rec.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].CurrentTime != 0 {
		t.Fatalf("list after restart = %+v, want one zero-progress entry", entries)
	}
}
