// Package fetch downloads feed payloads concurrently. A failed feed yields
// an empty payload in its slot and never fails the batch.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTimeout bounds a single feed request.
	DefaultTimeout = 9 * time.Second

	// MaxBodyBytes caps a single feed payload.
	MaxBodyBytes = 4 << 20

	acceptHeader = "application/rss+xml, application/xml;q=0.9, */*;q=0.8"
)

// Fetcher issues one GET per feed URL.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the default HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// New creates a Fetcher that logs failures to logger.
func New(logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll returns one payload per URL, aligned with urls. Slots of feeds
// that failed, timed out or answered non-2xx hold "".
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []string {
	out := make([]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			body, err := f.fetchOne(gctx, u)
			if err != nil {
				f.logger.Warn("feed fetch failed", slog.String("url", u), slog.Any("err", err))
				return nil
			}
			out[i] = body
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
