package source

import (
	"fmt"
	"time"
)

// Item is one ranked entry from a trending feed. Identity for dedup purposes
// is (normalized URL, source key); titles can be edited upstream and are not
// part of identity.
type Item struct {
	Title      string    `json:"title" db:"title"`
	SourceKey  string    `json:"source_key" db:"source_key"`
	SourceName string    `json:"source_name" db:"-"`
	Rank       int       `json:"rank" db:"rank"`
	URL        string    `json:"url" db:"url"`
	MobileURL  string    `json:"mobile_url" db:"mobile_url"`
	FetchedAt  time.Time `json:"fetched_at" db:"-"`
}

// ParsedSource is the result of one successful source fetch.
type ParsedSource struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Status string `json:"status"` // "success" (fresh) or "cache"
	Items  []Item `json:"items"`
}

// Failure is the typed error for one source that failed after all retries.
type Failure struct {
	Key  string
	Name string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("source %s (%s): %v", f.Key, f.Name, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Snapshot is the full set of items fetched from all requested sources in
// one crawl invocation.
type Snapshot struct {
	Date        string            `json:"date"`       // YYYY-MM-DD
	FetchedAt   string            `json:"fetched_at"` // HH:MM
	Items       map[string][]Item `json:"items"`
	SourceNames map[string]string `json:"source_names"`
	Failed      []Failure         `json:"-"`
}

// NewSnapshot creates an empty snapshot stamped with the given time.
func NewSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		Date:        now.Format("2006-01-02"),
		FetchedAt:   now.Format("15:04"),
		Items:       make(map[string][]Item),
		SourceNames: make(map[string]string),
	}
}

// TotalItems counts items across all sources.
func (s *Snapshot) TotalItems() int {
	n := 0
	for _, items := range s.Items {
		n += len(items)
	}
	return n
}

// FailedKeys returns the keys of sources that failed during the crawl.
func (s *Snapshot) FailedKeys() []string {
	keys := make([]string, 0, len(s.Failed))
	for _, f := range s.Failed {
		keys = append(keys, f.Key)
	}
	return keys
}
