// Package feedparse extracts news items from raw RSS payloads. Each <item>
// block is parsed on its own so a malformed story costs only itself.
package feedparse

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"

	"github.com/sudandialogue/newsdesk/internal/models"
	"github.com/sudandialogue/newsdesk/internal/processing"
)

const (
	// SummaryLimit bounds the summary length in runes, before the ellipsis.
	SummaryLimit = 220

	// Placeholder is the summary of an item whose description is empty.
	Placeholder = "Open the article to read the full story."

	envelopeOpen = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/"` +
		` xmlns:content="http://purl.org/rss/1.0/modules/content/"><channel><item>`
	envelopeClose = `</item></channel></rss>`
)

var (
	itemBlock       = regexp.MustCompile(`(?is)<item\b[^>]*>(.*?)</item>`)
	descriptionBody = regexp.MustCompile(`(?is)<description\b[^>]*>(.*?)</description>`)

	errNoItem = errors.New("feedparse: no item in block")
)

// Parse returns every valid item found in payload. Blocks that fail to
// parse or lack a title, link or valid publish date are skipped.
func Parse(payload string) []models.NewsItem {
	if payload == "" {
		return nil
	}
	blocks := itemBlock.FindAllStringSubmatch(payload, -1)
	items := make([]models.NewsItem, 0, len(blocks))
	for _, m := range blocks {
		if item, ok := ParseBlock(m[1]); ok {
			items = append(items, item)
		}
	}
	return items
}

// ParseBlock converts the inner markup of one <item> element. A block with
// raw markup in its description that does not parse is retried once with
// the description wrapped in CDATA.
func ParseBlock(inner string) (models.NewsItem, bool) {
	it, err := parseItem(inner)
	if err != nil {
		wrapped, ok := cdataDescription(inner)
		if !ok {
			return models.NewsItem{}, false
		}
		if it, err = parseItem(wrapped); err != nil {
			return models.NewsItem{}, false
		}
	}
	return fromItem(it)
}

func parseItem(inner string) (*rss.Item, error) {
	doc := envelopeOpen + processing.SanitizeEntities(inner) + envelopeClose

	var p rss.Parser
	feed, err := p.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, errNoItem
	}
	return feed.Items[0], nil
}

// cdataDescription wraps the description body of inner in a CDATA section.
// It reports false when there is nothing to wrap.
func cdataDescription(inner string) (string, bool) {
	loc := descriptionBody.FindStringSubmatchIndex(inner)
	if loc == nil {
		return "", false
	}
	body := inner[loc[2]:loc[3]]
	if strings.TrimSpace(body) == "" || strings.Contains(body, "<![CDATA[") {
		return "", false
	}
	body = strings.ReplaceAll(body, "]]>", "]]]]><![CDATA[>")
	return inner[:loc[2]] + "<![CDATA[" + body + "]]>" + inner[loc[3]:], true
}

func fromItem(it *rss.Item) (models.NewsItem, bool) {
	title := processing.CleanText(it.Title)
	link := strings.TrimSpace(it.Link)
	if title == "" || link == "" || strings.TrimSpace(it.PubDate) == "" || it.PubDateParsed == nil {
		return models.NewsItem{}, false
	}
	published := it.PubDateParsed.UTC()
	if published.IsZero() {
		return models.NewsItem{}, false
	}

	summary := processing.Summarize(processing.CleanText(it.Description), SummaryLimit)
	if summary == "" {
		summary = Placeholder
	}

	source, sourceURL := sourceOf(it, link)

	return models.NewsItem{
		ID:          processing.BuildItemID(published, title, link),
		Title:       title,
		URL:         link,
		Source:      source,
		SourceURL:   sourceURL,
		PublishedAt: published,
		Summary:     summary,
		ImageURL:    imageOf(it),
	}, true
}

func sourceOf(it *rss.Item, link string) (string, string) {
	name, sourceURL := "", link
	if it.Source != nil {
		name = processing.CleanText(it.Source.Title)
		if u := strings.TrimSpace(it.Source.URL); isHTTPURL(u) {
			sourceURL = u
		}
	}
	if name == "" {
		name = HostOf(link)
	}
	return name, sourceURL
}

// HostOf returns the lowercase host of raw without a leading "www.".
func HostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// imageOf walks the candidate locations in order: an <img> inside the
// description, media:content, media:thumbnail and an image enclosure.
func imageOf(it *rss.Item) string {
	candidates := []string{descriptionImage(it.Description)}
	candidates = append(candidates, mediaURLs(it.Extensions, "content")...)
	candidates = append(candidates, mediaURLs(it.Extensions, "thumbnail")...)
	if enc := it.Enclosure; enc != nil {
		if t := strings.ToLower(enc.Type); t == "" || strings.HasPrefix(t, "image/") {
			candidates = append(candidates, enc.URL)
		}
	}
	for _, c := range candidates {
		c = strings.TrimSpace(processing.DecodeEntities(c))
		if isHTTPURL(c) {
			return c
		}
	}
	return ""
}

func descriptionImage(description string) string {
	if !strings.Contains(strings.ToLower(description), "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}

func mediaURLs(exts ext.Extensions, name string) []string {
	media, ok := exts["media"]
	if !ok {
		return nil
	}
	var out []string
	for _, e := range media[name] {
		if u := e.Attrs["url"]; u != "" {
			out = append(out, u)
		}
	}
	// media:group wraps content elements in some feeds.
	if name == "content" {
		for _, g := range media["group"] {
			for _, e := range g.Children[name] {
				if u := e.Attrs["url"]; u != "" {
					out = append(out, u)
				}
			}
		}
	}
	return out
}

func isHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
