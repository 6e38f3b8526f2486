package source

import "strings"

// Filter holds keyword lists applied to item titles before distillation.
// An empty include list keeps everything not excluded.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter creates a case-insensitive keyword filter. Returns nil when both
// lists are empty so callers can skip filtering entirely.
func NewFilter(include, exclude []string) *Filter {
	if len(include) == 0 && len(exclude) == 0 {
		return nil
	}
	f := &Filter{
		include: make([]string, len(include)),
		exclude: make([]string, len(exclude)),
	}
	for i, kw := range include {
		f.include[i] = strings.ToLower(kw)
	}
	for i, kw := range exclude {
		f.exclude[i] = strings.ToLower(kw)
	}
	return f
}

// Match reports whether a title survives the filter.
func (f *Filter) Match(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range f.exclude {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, kw := range f.include {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Apply returns a copy of the snapshot with non-matching items removed.
// Sources left with zero items are dropped from the item map but keep their
// name mapping. A nil filter returns the snapshot unchanged.
func (f *Filter) Apply(snap *Snapshot) *Snapshot {
	if f == nil || snap == nil {
		return snap
	}
	out := &Snapshot{
		Date:        snap.Date,
		FetchedAt:   snap.FetchedAt,
		Items:       make(map[string][]Item, len(snap.Items)),
		SourceNames: snap.SourceNames,
		Failed:      snap.Failed,
	}
	for key, items := range snap.Items {
		var kept []Item
		for _, it := range items {
			if f.Match(it.Title) {
				kept = append(kept, it)
			}
		}
		if len(kept) > 0 {
			out.Items[key] = kept
		}
	}
	return out
}
