package source

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// sourceFetcher is what the Fetcher needs from a per-kind client.
type sourceFetcher interface {
	Fetch(ctx context.Context, key string) (*ParsedSource, error)
}

// Fetcher fans one fetch per source key out over a bounded worker pool and
// aggregates results into a Snapshot.
type Fetcher struct {
	registry *Registry
	api      sourceFetcher
	rss      sourceFetcher
	log      *slog.Logger
}

// NewFetcher creates a fetcher. rss may be nil when no feeds are configured.
func NewFetcher(registry *Registry, api *Client, rss *RSSClient, log *slog.Logger) *Fetcher {
	f := &Fetcher{registry: registry, api: api, log: log}
	if rss != nil {
		f.rss = rss
	}
	if f.log == nil {
		f.log = slog.Default()
	}
	return f
}

// Crawl fetches all requested sources concurrently. Unknown keys fail fast
// before any dispatch. Task starts are staggered by index*requestInterval
// with small symmetric jitter so requests spread over time while workers
// still run in parallel. A per-source failure lands in Snapshot.Failed and
// never aborts the run.
func (f *Fetcher) Crawl(ctx context.Context, keys []string, maxWorkers int, requestInterval time.Duration) (*Snapshot, error) {
	if err := f.registry.Validate(keys); err != nil {
		return nil, err
	}

	snap := NewSnapshot(time.Now())

	workers := maxWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(keys) {
		workers = len(keys)
	}

	var mu sync.Mutex
	p := newPool(workers)
	for i, key := range keys {
		i, key := i, key
		p.submit(func() {
			if requestInterval > 0 && i > 0 {
				jitter := time.Duration(rand.Intn(31)-10) * time.Millisecond
				delay := time.Duration(i)*requestInterval + jitter
				if delay > 0 {
					if err := sleepCtx(ctx, delay); err != nil {
						mu.Lock()
						snap.Failed = append(snap.Failed, Failure{Key: key, Name: f.registry.Name(key), Err: err})
						mu.Unlock()
						return
					}
				}
			}

			parsed, err := f.fetchOne(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fail, ok := err.(*Failure)
				if !ok {
					fail = &Failure{Key: key, Name: f.registry.Name(key), Err: err}
				}
				snap.Failed = append(snap.Failed, *fail)
				f.log.Warn("source fetch failed", "key", key, "err", fail.Err)
				return
			}
			snap.Items[parsed.Key] = parsed.Items
			snap.SourceNames[parsed.Key] = parsed.Name
			f.log.Info("source fetched", "key", key, "items", len(parsed.Items), "status", parsed.Status)
		})
	}
	p.wait()

	return snap, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, key string) (*ParsedSource, error) {
	entry, _ := f.registry.Lookup(key)
	if entry.Kind == KindRSS && f.rss != nil {
		return f.rss.Fetch(ctx, key)
	}
	return f.api.Fetch(ctx, key)
}
