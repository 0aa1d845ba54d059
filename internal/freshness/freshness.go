// Package freshness picks the narrowest recency window that still yields
// enough stories.
package freshness

import (
	"time"

	"github.com/sudandialogue/newsdesk/internal/models"
)

// DefaultWindows is the escalating series of recency windows.
var DefaultWindows = []time.Duration{
	12 * time.Hour,
	24 * time.Hour,
	48 * time.Hour,
	72 * time.Hour,
	168 * time.Hour,
}

// DefaultMinimum is the item count a window must reach to be chosen.
const DefaultMinimum = 20

// Select returns the items of the first window, in ascending order, that
// holds at least minimum items, together with that window. When none does, the
// widest window's items are returned even if there are fewer than minimum.
// With no windows the input is returned unchanged and the window is zero.
func Select(items []models.NewsItem, now time.Time, windows []time.Duration, minimum int) ([]models.NewsItem, time.Duration) {
	if len(windows) == 0 {
		return items, 0
	}
	var selected []models.NewsItem
	for _, w := range windows {
		selected = Within(items, now, w)
		if len(selected) >= minimum {
			return selected, w
		}
	}
	return selected, windows[len(windows)-1]
}

// Within keeps the items published no earlier than now-window. Items
// dated slightly in the future count as fresh.
func Within(items []models.NewsItem, now time.Time, window time.Duration) []models.NewsItem {
	cutoff := now.Add(-window)
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if !item.PublishedAt.Before(cutoff) {
			out = append(out, item)
		}
	}
	return out
}
