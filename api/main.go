package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/sudandialogue/newsdesk/internal/archive"
	"github.com/sudandialogue/newsdesk/internal/config"
	"github.com/sudandialogue/newsdesk/internal/elasticsearch"
	"github.com/sudandialogue/newsdesk/internal/feeds"
	"github.com/sudandialogue/newsdesk/internal/fetch"
	"github.com/sudandialogue/newsdesk/internal/filter"
	"github.com/sudandialogue/newsdesk/internal/logger"
	"github.com/sudandialogue/newsdesk/internal/news"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("api")
	if err := run(log); err != nil {
		log.Error("api stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

// run wires the server and blocks until a signal or a listener failure.
// Deferred cleanup runs on both paths.
func run(log *slog.Logger) error {
	cfg, err := config.LoadAPI()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rules, err := filter.Load(cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("load news policy: %w", err)
	}

	var publisher archive.Publisher = archive.Nop{}
	if cfg.ArchiveEnabled() {
		kp := archive.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("close archive publisher", slog.Any("err", err))
			}
		}()
		publisher = kp
		log.Info("archive publishing enabled", slog.String("topic", cfg.KafkaTopic))
	}

	fetcher := fetch.New(log,
		fetch.WithTimeout(cfg.FetchTimeout),
		fetch.WithUserAgent(cfg.UserAgent),
	)
	aggregator := news.New(
		feeds.Builder{BaseURL: cfg.BaseURL},
		fetcher,
		rules,
		publisher,
		news.Options{
			Windows:  cfg.FreshnessWindows,
			MinItems: cfg.MinItems,
			MaxItems: cfg.MaxItems,
		},
		log,
	)

	srv := &server{log: log, cfg: cfg, news: aggregator}
	if cfg.SearchEnabled() {
		esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			return fmt.Errorf("init elasticsearch: %w", err)
		}
		srv.archive = esClient
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + 15*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return serve(ctx, log, httpServer, 10*time.Second)
}

// serve runs httpServer until ctx is done, then shuts it down within grace.
// A listener failure is returned instead.
func serve(ctx context.Context, log *slog.Logger, httpServer *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/api/news/sudan", s.handleSudanNews)
	if s.archive != nil {
		r.Get("/api/news/archive", s.handleArchiveSearch)
	}
	return r
}
