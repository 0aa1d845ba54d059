package news_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sudandialogue/newsdesk/internal/archive"
	"github.com/sudandialogue/newsdesk/internal/feedparse"
	"github.com/sudandialogue/newsdesk/internal/feeds"
	"github.com/sudandialogue/newsdesk/internal/filter"
	"github.com/sudandialogue/newsdesk/internal/logger"
	"github.com/sudandialogue/newsdesk/internal/models"
	"github.com/sudandialogue/newsdesk/internal/news"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

// fakeFetcher serves payloads by position and records the URLs asked for.
type fakeFetcher struct {
	payloads []string
	urls     []string
}

func (f *fakeFetcher) FetchAll(_ context.Context, urls []string) []string {
	f.urls = urls
	out := make([]string, len(urls))
	copy(out, f.payloads)
	return out
}

type recordingPublisher struct {
	batches []archive.Batch
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, b archive.Batch) error {
	p.batches = append(p.batches, b)
	return p.err
}

type story struct {
	title  string
	source string
	host   string
	age    time.Duration
}

func feed(stories ...story) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel>`)
	for i, s := range stories {
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://%s/story/%d</link><pubDate>%s</pubDate><description>Update.</description><source url="https://%s">%s</source></item>`,
			s.title, s.host, i, now.Add(-s.age).Format(time.RFC1123Z), s.host, s.source)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func newAggregator(f news.Fetcher, pub archive.Publisher, minItems int) *news.Aggregator {
	return news.New(
		feeds.Builder{BaseURL: "https://feeds.example/rss"},
		f,
		filter.Default(),
		pub,
		news.Options{MinItems: minItems, MaxItems: 10, Now: func() time.Time { return now }},
		logger.Discard(),
	)
}

func TestAggregatePipeline(t *testing.T) {
	f := &fakeFetcher{payloads: []string{
		feed(
			story{title: "Sudan ceasefire talks resume", source: "Reuters", host: "www.reuters.com", age: time.Hour},
			story{title: "Darfur aid convoy arrives", source: "Radio Dabanga", host: "www.dabangasudan.org", age: 3 * time.Hour},
			story{title: "Sudan ceasefire on RT", source: "RT", host: "www.rt.com", age: 2 * time.Hour},
		),
		"",
		feed(
			story{title: "Sudan ceasefire talks resume", source: "Reuters", host: "www.reuters.com", age: time.Hour},
			story{title: "Football scores", source: "BBC", host: "www.bbc.co.uk", age: time.Hour},
			story{title: "Khartoum market reopens", source: "Sudan Tribune", host: "sudantribune.com", age: 30 * time.Hour},
		),
	}}
	pub := &recordingPublisher{}
	agg := newAggregator(f, pub, 3)

	res := agg.Aggregate(context.Background(), feeds.English)

	require.Len(t, f.urls, len(feeds.Queries(feeds.English)))
	require.Equal(t, feeds.English, res.Locale)
	require.Equal(t, now, res.UpdatedAt)
	require.NotEmpty(t, res.RunID)
	require.Equal(t, 48*time.Hour, res.Window)

	titles := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		titles = append(titles, it.Title)
	}
	require.Equal(t, []string{"Sudan ceasefire talks resume", "Darfur aid convoy arrives", "Khartoum market reopens"}, titles)

	require.Len(t, pub.batches, 1)
	require.Equal(t, res.RunID, pub.batches[0].RunID)
	require.Equal(t, "en", pub.batches[0].Locale)
	require.Len(t, pub.batches[0].Items, 3)
}

func TestAggregateEmptySkipsArchive(t *testing.T) {
	pub := &recordingPublisher{}
	res := newAggregator(&fakeFetcher{}, pub, 20).Aggregate(context.Background(), feeds.Arabic)
	require.NotNil(t, res.Items)
	require.Empty(t, res.Items)
	require.Empty(t, pub.batches)
}

func TestAggregatePublishErrorDoesNotFail(t *testing.T) {
	f := &fakeFetcher{payloads: []string{
		feed(story{title: "Sudan ceasefire talks resume", source: "Reuters", host: "reuters.com", age: time.Hour}),
	}}
	pub := &recordingPublisher{err: errors.New("broker down")}
	res := newAggregator(f, pub, 1).Aggregate(context.Background(), feeds.English)
	require.Len(t, res.Items, 1)
	require.Len(t, pub.batches, 1)
}

func TestAggregateRecoversParserPanic(t *testing.T) {
	good := feed(story{title: "Sudan ceasefire talks resume", source: "Reuters", host: "reuters.com", age: time.Hour})
	f := &fakeFetcher{payloads: []string{"explode", good}}

	agg := newAggregator(f, nil, 1)
	agg.SetParser(func(payload string) []models.NewsItem {
		if payload == "explode" {
			panic("unexpected markup")
		}
		return feedparse.Parse(payload)
	})

	res := agg.Aggregate(context.Background(), feeds.Norwegian)
	require.Len(t, res.Items, 1)
}

func TestRank(t *testing.T) {
	items := []models.NewsItem{
		{ID: "b", PublishedAt: now.Add(-time.Hour)},
		{ID: "c", PublishedAt: now},
		{ID: "a", PublishedAt: now.Add(-time.Hour)},
		{ID: "d", PublishedAt: now.Add(-2 * time.Hour)},
	}
	got := news.Rank(items, 3)
	require.Equal(t, []string{"c", "a", "b"}, []string{got[0].ID, got[1].ID, got[2].ID})
	require.Equal(t, "b", items[0].ID)

	require.Len(t, news.Rank(items, 0), 4)
	require.NotNil(t, news.Rank(nil, 5))
}
