package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MilesGuan/NewsDistill/internal/config"
	"github.com/MilesGuan/NewsDistill/pkg/alert"
	"github.com/MilesGuan/NewsDistill/pkg/distill"
	"github.com/MilesGuan/NewsDistill/pkg/source"
)

// scriptedBackend answers the filter call first and the categorize call
// second, counting invocations.
type scriptedBackend struct {
	calls     int
	responses []string
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) Run(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.responses[(s.calls-1)%len(s.responses)], nil
}

func TestRunOnceEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "items": [
			{"title": "头条新闻", "url": "https://news/1", "mobileUrl": "https://m.news/1"}
		]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Database.Dir = t.TempDir()
	cfg.Crawler.Sources = []string{"zhihu"}
	cfg.Crawler.APIURL = srv.URL

	registry, err := source.NewRegistry(nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	client := source.NewClient(registry, source.ClientOpts{
		APIURL:     srv.URL,
		MaxRetries: -1,
		MinWait:    time.Millisecond,
		MaxWait:    2 * time.Millisecond,
	})
	fetcher := source.NewFetcher(registry, client, nil, nil)

	backend := &scriptedBackend{responses: []string{
		`{"items": [{"title": "头条新闻", "ids": [1]}]}`,
		`{"digest": "摘要", "items": [{"category": "时政", "items": [{"title": "头条新闻", "ids": [1]}]}]}`,
	}}
	distiller, err := distill.NewPipeline([]distill.Backend{backend}, distill.PipelineOpts{})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	runner := NewRunner(cfg, fetcher, nil, distiller, alert.NewManager(nil), nil)
	ctx := context.Background()

	rep, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if rep.NewItems != 1 || !rep.Distilled {
		t.Fatalf("first report = %+v, want 1 new item distilled", rep)
	}
	if rep.Result == nil || rep.Result.Digest != "摘要" {
		t.Fatalf("result = %+v", rep.Result)
	}
	if backend.calls != 2 {
		t.Errorf("backend calls = %d, want one per stage", backend.calls)
	}

	// Same headline again: nothing new, so the models stay untouched.
	rep, err = runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if rep.NewItems != 0 || rep.UpdatedItems != 1 || rep.Distilled {
		t.Fatalf("second report = %+v, want pure refresh without distillation", rep)
	}
	if backend.calls != 2 {
		t.Errorf("backend calls = %d after no-op run, want still 2", backend.calls)
	}
}

func TestCrawlReportsFailedSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "weibo" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status": "success", "items": [{"title": "条目", "url": "https://a/1"}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Database.Dir = t.TempDir()
	cfg.Crawler.Sources = []string{"zhihu", "weibo"}

	registry, err := source.NewRegistry(nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	client := source.NewClient(registry, source.ClientOpts{
		APIURL:     srv.URL,
		MaxRetries: -1,
		MinWait:    time.Millisecond,
		MaxWait:    2 * time.Millisecond,
	})
	runner := NewRunner(cfg, source.NewFetcher(registry, client, nil, nil), nil, nil, nil, nil)

	snap, increment, rep, err := runner.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(snap.Failed) != 1 || snap.Failed[0].Key != "weibo" {
		t.Fatalf("failed = %+v", snap.Failed)
	}
	if len(rep.FailedSources) != 1 || rep.FailedSources[0] != "weibo" {
		t.Fatalf("report failed sources = %v", rep.FailedSources)
	}
	if increment == nil || increment.TotalItems() != 1 {
		t.Fatalf("increment = %+v, want the one fetched item", increment)
	}
	if rep.NewItems != 1 {
		t.Fatalf("report = %+v", rep)
	}
}
