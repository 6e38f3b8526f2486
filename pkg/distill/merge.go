package distill

import "github.com/MilesGuan/NewsDistill/pkg/source"

// MergedItem is one story with its original source items reattached.
type MergedItem struct {
	Title string        `json:"title"`
	Items []source.Item `json:"items"`
}

// MergedCategory is one category of merged stories.
type MergedCategory struct {
	Category string       `json:"category"`
	Items    []MergedItem `json:"items"`
}

// Merge maps model-returned ids back to original items and assembles the
// final category tree. Model id fidelity is not guaranteed: unknown ids are
// silently skipped, groups resolving to zero items are dropped, and
// categories left empty are dropped. Category and group order is preserved
// because it is presentation-meaningful.
func Merge(categories []Category, idToItem map[int]source.Item) []MergedCategory {
	var merged []MergedCategory
	for _, cat := range categories {
		var items []MergedItem
		for _, group := range cat.Items {
			var originals []source.Item
			for _, id := range group.IDs {
				if it, ok := idToItem[id]; ok {
					originals = append(originals, it)
				}
			}
			if len(originals) == 0 {
				continue
			}
			items = append(items, MergedItem{Title: group.Title, Items: originals})
		}
		if len(items) == 0 {
			continue
		}
		merged = append(merged, MergedCategory{Category: cat.Category, Items: items})
	}
	return merged
}
