// Package pipeline wires the full fetch -> classify -> ingest -> distill ->
// notify run used by the CLI, the scheduler and the HTTP server.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MilesGuan/NewsDistill/internal/config"
	"github.com/MilesGuan/NewsDistill/internal/store"
	"github.com/MilesGuan/NewsDistill/pkg/alert"
	"github.com/MilesGuan/NewsDistill/pkg/distill"
	"github.com/MilesGuan/NewsDistill/pkg/report"
	"github.com/MilesGuan/NewsDistill/pkg/source"
)

// RunReport summarizes one pipeline invocation.
type RunReport struct {
	Date          string          `json:"date"`
	FetchedAt     string          `json:"fetched_at"`
	Sources       int             `json:"sources"`
	FailedSources []string        `json:"failed_sources,omitempty"`
	TotalItems    int             `json:"total_items"`
	NewItems      int             `json:"new_items"`
	UpdatedItems  int             `json:"updated_items"`
	Distilled     bool            `json:"distilled"`
	Result        *distill.Result `json:"result,omitempty"`
}

// Runner owns the end-to-end pipeline for one process.
type Runner struct {
	cfg      *config.Config
	fetcher  *source.Fetcher
	filter   *source.Filter
	distills *distill.Pipeline
	alerts   *alert.Manager
	log      *slog.Logger
}

// NewRunner assembles a runner from constructed components. distills may be
// nil (crawl-only mode); alerts may have zero notifiers.
func NewRunner(cfg *config.Config, fetcher *source.Fetcher, filter *source.Filter,
	distills *distill.Pipeline, alerts *alert.Manager, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:      cfg,
		fetcher:  fetcher,
		filter:   filter,
		distills: distills,
		alerts:   alerts,
		log:      log,
	}
}

// Crawl fetches all configured sources and persists the snapshot into
// today's store, returning the snapshot and the incremental subset (nil
// when nothing is new today).
func (r *Runner) Crawl(ctx context.Context) (*source.Snapshot, *source.Snapshot, *RunReport, error) {
	snap, err := r.fetcher.Crawl(ctx,
		r.cfg.Crawler.Sources, r.cfg.Crawler.MaxWorkers, r.cfg.Crawler.RequestInterval())
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := store.Open(r.cfg.Database.Dir, snap.Date, store.Opts{
		RefreshOnSeen: r.cfg.Database.RefreshOnSeen,
		Logger:        r.log,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	defer db.Close()

	increment, err := db.Classify(ctx, snap)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("classify snapshot: %w", err)
	}

	newCount, updatedCount, err := db.Ingest(ctx, snap)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ingest snapshot: %w", err)
	}
	r.log.Info("snapshot ingested", "db", db.Path(), "new", newCount, "updated", updatedCount)

	rep := &RunReport{
		Date:          snap.Date,
		FetchedAt:     snap.FetchedAt,
		Sources:       len(snap.Items),
		FailedSources: snap.FailedKeys(),
		TotalItems:    snap.TotalItems(),
		NewItems:      newCount,
		UpdatedItems:  updatedCount,
	}
	return snap, increment, rep, nil
}

// RunOnce executes the full pipeline: crawl, classify, distill the new-item
// subset, and broadcast the rendered result. When nothing is new or no
// distiller is configured the run stops after ingestion.
func (r *Runner) RunOnce(ctx context.Context) (*RunReport, error) {
	_, increment, rep, err := r.Crawl(ctx)
	if err != nil {
		return nil, err
	}

	if increment == nil {
		r.log.Info("no new items this run; skipping distillation")
		return rep, nil
	}
	if r.distills == nil {
		r.log.Info("no model backends configured; skipping distillation")
		return rep, nil
	}

	todo := r.filter.Apply(increment)
	if todo.TotalItems() == 0 {
		r.log.Info("keyword filter removed all new items; skipping distillation")
		return rep, nil
	}

	result, err := r.distills.Distill(ctx, todo)
	if err != nil {
		return rep, err
	}
	rep.Distilled = true
	rep.Result = result

	if r.alerts != nil && r.alerts.HasNotifiers() {
		title := fmt.Sprintf("新闻精读 %s %s", rep.Date, rep.FetchedAt)
		n := &alert.Notification{
			Title:  title,
			Digest: result.Digest,
			Text:   report.Text(result, title),
			HTML:   report.HTML(result, title),
		}
		if err := r.alerts.Broadcast(ctx, n); err != nil {
			// Delivery failures don't invalidate the computed result.
			r.log.Warn("notification delivery incomplete", "err", err)
		}
	}

	return rep, nil
}
