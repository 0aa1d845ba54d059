// Package dedupe collapses repeated stories. Merge works on one fetch
// cycle; Seen remembers archived IDs across messages in the worker.
package dedupe

import (
	"strings"

	"github.com/sudandialogue/newsdesk/internal/models"
)

// Key identifies a story within one fetch cycle.
func Key(title, url string) string {
	return strings.ToLower(title + "::" + url)
}

// Merge folds batches into one set keyed by Key. When two items share a
// key the one encountered first is kept.
func Merge(batches ...[]models.NewsItem) map[string]models.NewsItem {
	size := 0
	for _, b := range batches {
		size += len(b)
	}
	out := make(map[string]models.NewsItem, size)
	for _, batch := range batches {
		for _, item := range batch {
			k := Key(item.Title, item.URL)
			if _, dup := out[k]; dup {
				continue
			}
			out[k] = item
		}
	}
	return out
}

// Values returns the items of set in unspecified order.
func Values(set map[string]models.NewsItem) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(set))
	for _, item := range set {
		out = append(out, item)
	}
	return out
}
