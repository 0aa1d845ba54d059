// Package news runs the per-request aggregation pipeline: build feed URLs,
// fetch, parse, deduplicate, filter, select by freshness and rank.
package news

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sudandialogue/newsdesk/internal/archive"
	"github.com/sudandialogue/newsdesk/internal/dedupe"
	"github.com/sudandialogue/newsdesk/internal/feedparse"
	"github.com/sudandialogue/newsdesk/internal/feeds"
	"github.com/sudandialogue/newsdesk/internal/filter"
	"github.com/sudandialogue/newsdesk/internal/freshness"
	"github.com/sudandialogue/newsdesk/internal/models"
)

// DefaultMaxItems bounds the response size.
const DefaultMaxItems = 120

// Fetcher downloads feed payloads, one slot per URL.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []string
}

// Options tune the pipeline.
type Options struct {
	Windows  []time.Duration
	MinItems int
	MaxItems int
	Now      func() time.Time
}

// Result is the outcome of one aggregation.
type Result struct {
	RunID     string
	Locale    feeds.Locale
	UpdatedAt time.Time
	Window    time.Duration
	Items     []models.NewsItem
}

// Aggregator holds the immutable collaborators of the pipeline. It keeps
// no state between calls.
type Aggregator struct {
	builder   feeds.Builder
	fetcher   Fetcher
	rules     *filter.Rules
	publisher archive.Publisher
	opts      Options
	log       *slog.Logger
	parse     func(string) []models.NewsItem
}

// New creates an Aggregator. A nil publisher disables archiving.
func New(builder feeds.Builder, fetcher Fetcher, rules *filter.Rules, publisher archive.Publisher, opts Options, log *slog.Logger) *Aggregator {
	if publisher == nil {
		publisher = archive.Nop{}
	}
	if opts.Windows == nil {
		opts.Windows = freshness.DefaultWindows
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		builder:   builder,
		fetcher:   fetcher,
		rules:     rules,
		publisher: publisher,
		opts:      opts,
		log:       log,
		parse:     feedparse.Parse,
	}
}

// Aggregate runs the pipeline for locale. An empty Items slice means no
// story survived; it is not an error.
func (a *Aggregator) Aggregate(ctx context.Context, locale feeds.Locale) Result {
	runID := uuid.NewString()
	log := a.log.With(slog.String("run_id", runID), slog.String("locale", string(locale)))

	urls := a.builder.URLs(locale)
	payloads := a.fetcher.FetchAll(ctx, urls)

	batches := make([][]models.NewsItem, len(payloads))
	for i, payload := range payloads {
		batches[i] = a.parseFeed(log, urls[i], payload)
	}

	merged := dedupe.Values(dedupe.Merge(batches...))
	accepted, report := a.rules.Apply(merged)

	now := a.opts.Now().UTC()
	selected, window := freshness.Select(accepted, now, a.opts.Windows, a.opts.MinItems)
	items := Rank(selected, a.opts.MaxItems)

	log.Info("aggregated news",
		slog.Int("feeds", len(urls)),
		slog.Int("unique", len(merged)),
		slog.Any("filter", report),
		slog.Duration("window", window),
		slog.Int("items", len(items)),
	)

	res := Result{RunID: runID, Locale: locale, UpdatedAt: now, Window: window, Items: items}
	if len(items) > 0 {
		batch := archive.Batch{RunID: runID, Locale: string(locale), CollectedAt: now, Items: items}
		if err := a.publisher.Publish(ctx, batch); err != nil {
			log.Warn("archive publish failed", slog.Any("err", err))
		}
	}
	return res
}

// parseFeed isolates a panic in one feed from the others.
func (a *Aggregator) parseFeed(log *slog.Logger, url, payload string) (items []models.NewsItem) {
	if payload == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("feed parse panic", slog.String("url", url), slog.Any("err", fmt.Errorf("%v", r)))
			items = nil
		}
	}()
	return a.parse(payload)
}

// Rank orders items newest first, by ID on ties, and keeps at most limit.
// The input slice is not modified.
func Rank(items []models.NewsItem, limit int) []models.NewsItem {
	out := append([]models.NewsItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []models.NewsItem{}
	}
	return out
}
