package models

import "time"

// NewsItem is one parsed story as exposed by the news endpoint.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	SourceURL   string    `json:"sourceUrl"`
	PublishedAt time.Time `json:"publishedAt"`
	Summary     string    `json:"summary"`
	ImageURL    string    `json:"imageUrl"`
}

// ArchivedNews is the document stored in Elasticsearch by the archive worker.
type ArchivedNews struct {
	NewsItem
	Locale      string    `json:"locale"`
	RunID       string    `json:"runId"`
	CollectedAt time.Time `json:"collectedAt"`
	Keywords    []string  `json:"keywords"`
}
