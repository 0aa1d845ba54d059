package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sudandialogue/newsdesk/internal/config"
	"github.com/sudandialogue/newsdesk/internal/elasticsearch"
	"github.com/sudandialogue/newsdesk/internal/feeds"
	"github.com/sudandialogue/newsdesk/internal/models"
	"github.com/sudandialogue/newsdesk/internal/news"
)

const unavailableMessage = "No news items are available right now. Please try again shortly."

type newsAggregator interface {
	Aggregate(ctx context.Context, locale feeds.Locale) news.Result
}

type archiveSearcher interface {
	SearchNews(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
	Health(ctx context.Context) error
}

type server struct {
	log     *slog.Logger
	cfg     *config.API
	news    newsAggregator
	archive archiveSearcher
}

type errorResponse struct {
	Error string `json:"error"`
}

type newsResponse struct {
	OK        bool              `json:"ok"`
	Locale    feeds.Locale      `json:"locale"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Items     []models.NewsItem `json:"items"`
}

type unavailableResponse struct {
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	Items   []models.NewsItem `json:"items"`
}

// handleHealth reports liveness. The archive is optional, so its state is
// reported without failing the check.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.archive != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		body["archive"] = "ok"
		if err := s.archive.Health(ctx); err != nil {
			body["archive"] = "unavailable"
			s.log.Warn("archive health", slog.Any("err", err))
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *server) handleSudanNews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.FetchTimeout+5*time.Second)
	defer cancel()

	locale := feeds.ParseLocale(r.URL.Query().Get("locale"))
	res := s.news.Aggregate(ctx, locale)

	w.Header().Set("Cache-Control", "no-store, max-age=0")
	if len(res.Items) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, unavailableResponse{
			OK:      false,
			Message: unavailableMessage,
			Items:   []models.NewsItem{},
		})
		return
	}

	writeJSON(w, http.StatusOK, newsResponse{
		OK:        true,
		Locale:    res.Locale,
		UpdatedAt: res.UpdatedAt,
		Items:     res.Items,
	})
}

func (s *server) handleArchiveSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:    strings.TrimSpace(q.Get("q")),
		Keywords: parseCSV(q.Get("keywords")),
		Source:   strings.TrimSpace(q.Get("source")),
		From:     clampInt(q.Get("from"), 0, 10_000),
		Size:     clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:     strings.TrimSpace(q.Get("sort")),
		Start:    parseTime(q.Get("start")),
		End:      parseTime(q.Get("end")),
	}
	if raw := strings.TrimSpace(q.Get("locale")); raw != "" {
		params.Locale = string(feeds.ParseLocale(raw))
	}

	result, err := s.archive.SearchNews(ctx, params)
	if err != nil {
		s.log.Error("archive search", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampInt(raw string, fallback, limit int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > limit {
		return limit
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
