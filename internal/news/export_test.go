package news

import "github.com/sudandialogue/newsdesk/internal/models"

// SetParser replaces the feed parser of a.
func (a *Aggregator) SetParser(parse func(string) []models.NewsItem) { a.parse = parse }
