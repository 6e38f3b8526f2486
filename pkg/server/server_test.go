package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MilesGuan/NewsDistill/internal/config"
	"github.com/MilesGuan/NewsDistill/internal/store"
	"github.com/MilesGuan/NewsDistill/pkg/source"
)

func seededServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Dir = t.TempDir()

	db, err := store.Open(cfg.Database.Dir, "2026-08-25", store.Opts{RefreshOnSeen: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	snap := source.NewSnapshot(time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC))
	snap.Items["zhihu"] = []source.Item{
		{Title: "问题一", Rank: 1, URL: "https://z/1"},
		{Title: "问题二", Rank: 2, URL: "https://z/2"},
	}
	snap.Items["weibo"] = []source.Item{
		{Title: "热搜", Rank: 1, URL: "https://w/1"},
	}
	if _, _, err := db.Ingest(context.Background(), snap); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	registry, err := source.NewRegistry(nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return New(cfg, nil, registry, 0, nil)
}

func TestHandleNews(t *testing.T) {
	t.Parallel()
	s := seededServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/news?date=2026-08-25&source=zhihu", nil)
	rec := httptest.NewRecorder()
	s.handleNews(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Data  []store.Record `json:"data"`
		Count int            `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want the two zhihu rows", resp.Count)
	}
	for _, rec := range resp.Data {
		if rec.SourceKey != "zhihu" {
			t.Errorf("row from %q leaked into source-filtered listing", rec.SourceKey)
		}
	}
}

func TestHandleNewsSearch(t *testing.T) {
	t.Parallel()
	s := seededServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/news?date=2026-08-25&q=热搜", nil)
	rec := httptest.NewRecorder()
	s.handleNews(rec, req)

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1 title match", resp.Count)
	}
}

func TestHandleStats(t *testing.T) {
	t.Parallel()
	s := seededServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats?date=2026-08-25", nil)
	rec := httptest.NewRecorder()
	s.handleStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var stats store.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalItems != 3 || stats.BySource["zhihu"] != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestHandleSources(t *testing.T) {
	t.Parallel()
	s := seededServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sources", nil)
	rec := httptest.NewRecorder()
	s.handleSources(rec, req)

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count == 0 {
		t.Fatal("no sources listed")
	}
}

func TestHandleRunWithoutRunner(t *testing.T) {
	t.Parallel()
	s := seededServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/run", nil)
	rec := httptest.NewRecorder()
	s.handleRun(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when no runner is wired", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	s := seededServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/news", nil)
	rec := httptest.NewRecorder()
	s.handleNews(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
