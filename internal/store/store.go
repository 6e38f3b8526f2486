// Package store persists crawled items into one SQLite database per calendar
// day and classifies snapshot items as new or previously seen using
// normalized URLs as the dedup key.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/MilesGuan/NewsDistill/pkg/source"
)

// Record is one persisted news item row.
type Record struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	SourceKey   string `db:"source_key" json:"source_key"`
	Rank        int    `db:"rank" json:"rank"`
	URL         string `db:"url" json:"url"`
	MobileURL   string `db:"mobile_url" json:"mobile_url"`
	FirstSeenAt string `db:"first_seen_at" json:"first_seen_at"` // HH:MM within the store's day
	LastSeenAt  string `db:"last_seen_at" json:"last_seen_at"`
	SeenCount   int    `db:"seen_count" json:"seen_count"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at"`
}

// Stats summarizes one day's store.
type Stats struct {
	TotalItems int            `json:"total_items"`
	BySource   map[string]int `json:"by_source"`
	LastSeenAt string         `json:"last_seen_at,omitempty"`
}

// Store is the per-day persistence layer. Ingestions against the same store
// serialize on an internal mutex to keep the upsert invariant under
// concurrent callers.
type Store struct {
	db            *sqlx.DB
	path          string
	refreshOnSeen bool
	log           *slog.Logger
	mu            sync.Mutex
}

// Opts configures a store.
type Opts struct {
	// RefreshOnSeen also refreshes rank/title/mobile_url when a seen item is
	// upserted again. Policy choice: titles can be corrected upstream.
	RefreshOnSeen bool
	Logger        *slog.Logger
}

// Open opens (creating if needed) the database for one calendar day under
// dir, named <date>.db.
func Open(dir, date string, opts Opts) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, date+".db")

	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, path: path, refreshOnSeen: opts.RefreshOnSeen, log: log}, nil
}

// OpenToday opens the store for the current calendar day.
func OpenToday(dir string, opts Opts) (*Store, error) {
	return Open(dir, time.Now().Format("2006-01-02"), opts)
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Classify splits a snapshot into seen and new. An item is new when its
// normalized URL is empty (never deduplicable) or is not yet stored for its
// source today. Returns nil when nothing is new. Source names and failures
// carry over so downstream reporting stays complete.
func (s *Store) Classify(ctx context.Context, snap *source.Snapshot) (*source.Snapshot, error) {
	existing, err := s.existingURLs(ctx)
	if err != nil {
		return nil, err
	}

	inc := &source.Snapshot{
		Date:        snap.Date,
		FetchedAt:   snap.FetchedAt,
		Items:       make(map[string][]source.Item),
		SourceNames: snap.SourceNames,
		Failed:      snap.Failed,
	}

	for key, items := range snap.Items {
		var fresh []source.Item
		for _, it := range items {
			norm := NormalizeURL(it.URL, key)
			if norm == "" || !existing[key][norm] {
				fresh = append(fresh, it)
			}
		}
		if len(fresh) > 0 {
			inc.Items[key] = fresh
		}
	}

	if len(inc.Items) == 0 {
		return nil, nil
	}
	return inc, nil
}

// existingURLs loads the set of stored normalized URLs per source key.
func (s *Store) existingURLs(ctx context.Context) (map[string]map[string]bool, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT source_key, url FROM news_items WHERE url != ''`)
	if err != nil {
		return nil, fmt.Errorf("load existing urls: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]map[string]bool)
	for rows.Next() {
		var key, u string
		if err := rows.Scan(&key, &u); err != nil {
			return nil, fmt.Errorf("scan existing url: %w", err)
		}
		if existing[key] == nil {
			existing[key] = make(map[string]bool)
		}
		existing[key][u] = true
	}
	return existing, rows.Err()
}

// Ingest upserts every snapshot item. Seen items get last_seen_at refreshed
// and seen_count incremented; new items insert with seen_count 1. Items with
// an empty normalized URL always insert fresh. A single bad row is logged
// and skipped, never aborting the rest of the snapshot.
func (s *Store) Ingest(ctx context.Context, snap *source.Snapshot) (newCount, updatedCount int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Format("2006-01-02 15:04:05")

	for key, items := range snap.Items {
		for _, it := range items {
			norm := NormalizeURL(it.URL, key)
			inserted, updated, rowErr := s.upsertItem(ctx, tx, it, key, norm, snap.FetchedAt, now)
			if rowErr != nil {
				s.log.Warn("store row skipped", "source", key, "title", truncate(it.Title, 30), "err", rowErr)
				continue
			}
			if inserted {
				newCount++
			}
			if updated {
				updatedCount++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit ingest tx: %w", err)
	}
	return newCount, updatedCount, nil
}

func (s *Store) upsertItem(ctx context.Context, tx *sqlx.Tx, it source.Item, key, norm, seenAt, now string) (inserted, updated bool, err error) {
	if norm != "" {
		var existingID int64
		err = tx.GetContext(ctx, &existingID,
			`SELECT id FROM news_items WHERE url = ? AND source_key = ?`, norm, key)
		if err == nil {
			if s.refreshOnSeen {
				_, err = tx.ExecContext(ctx, `
					UPDATE news_items SET
						title = ?, rank = ?, mobile_url = ?,
						last_seen_at = ?, seen_count = seen_count + 1, updated_at = ?
					WHERE id = ?`,
					it.Title, it.Rank, it.MobileURL, seenAt, now, existingID)
			} else {
				_, err = tx.ExecContext(ctx, `
					UPDATE news_items SET
						last_seen_at = ?, seen_count = seen_count + 1, updated_at = ?
					WHERE id = ?`,
					seenAt, now, existingID)
			}
			if err != nil {
				return false, false, fmt.Errorf("update row %d: %w", existingID, err)
			}
			return false, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return false, false, fmt.Errorf("lookup row: %w", err)
		}
		// Not found: fall through to insert with the normalized URL stored.
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO news_items
			(title, source_key, rank, url, mobile_url,
			 first_seen_at, last_seen_at, seen_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		it.Title, key, it.Rank, norm, it.MobileURL, seenAt, seenAt, now, now)
	if err != nil {
		return false, false, fmt.Errorf("insert row: %w", err)
	}
	return true, false, nil
}

// BySource returns stored records for one source, most recently seen first.
func (s *Store) BySource(ctx context.Context, sourceKey string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 200
	}
	var recs []Record
	err := s.db.SelectContext(ctx, &recs, `
		SELECT * FROM news_items WHERE source_key = ?
		ORDER BY last_seen_at DESC, rank ASC LIMIT ?`, sourceKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list by source %s: %w", sourceKey, err)
	}
	return recs, nil
}

// All returns stored records across sources, most recently seen first.
func (s *Store) All(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 500
	}
	var recs []Record
	err := s.db.SelectContext(ctx, &recs, `
		SELECT * FROM news_items
		ORDER BY last_seen_at DESC, rank ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return recs, nil
}

// Search matches stored titles by substring.
func (s *Store) Search(ctx context.Context, keyword string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []Record
	err := s.db.SelectContext(ctx, &recs, `
		SELECT * FROM news_items WHERE title LIKE ?
		ORDER BY last_seen_at DESC, rank ASC LIMIT ?`, "%"+keyword+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}
	return recs, nil
}

// GetStats summarizes the day's store.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	st := &Stats{BySource: make(map[string]int)}

	if err := s.db.GetContext(ctx, &st.TotalItems, `SELECT COUNT(*) FROM news_items`); err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT source_key, COUNT(*) FROM news_items GROUP BY source_key`)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var cnt int
		if err := rows.Scan(&key, &cnt); err != nil {
			return nil, err
		}
		st.BySource[key] = cnt
	}

	var last sql.NullString
	if err := s.db.GetContext(ctx, &last, `SELECT MAX(last_seen_at) FROM news_items`); err == nil && last.Valid {
		st.LastSeenAt = last.String
	}
	return st, rows.Err()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
