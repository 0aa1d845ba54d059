package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/sudandialogue/newsdesk/internal/archive"
	"github.com/sudandialogue/newsdesk/internal/config"
	"github.com/sudandialogue/newsdesk/internal/dedupe"
	"github.com/sudandialogue/newsdesk/internal/elasticsearch"
	"github.com/sudandialogue/newsdesk/internal/logger"
	"github.com/sudandialogue/newsdesk/internal/models"
	"github.com/sudandialogue/newsdesk/internal/processing"
)

type newsIndexer interface {
	IndexNews(ctx context.Context, doc models.ArchivedNews) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	_ = godotenv.Load()

	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := esClient.EnsureIndex(initCtx); err != nil {
		log.Warn("ensure archive index", slog.Any("err", err))
	}
	cancel()

	seen := dedupe.NewSeen(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        dlqTopic,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, seen, cfg, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !sendToDLQ(ctx, log, dlqWriter, msg, err, time.Second) {
				if ctx.Err() != nil {
					return
				}
				// Leave uncommitted so it is redelivered after a restart.
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage indexes one archive event. Repeats of an already indexed
// item are skipped without error.
func processMessage(ctx context.Context, log *slog.Logger, indexer newsIndexer, seen *dedupe.Seen, cfg *config.Worker, msg kafka.Message) error {
	ev, err := archive.Decode(msg.Value)
	if err != nil {
		return err
	}

	item := ev.Item
	item.Title = strings.TrimSpace(item.Title)
	item.URL = strings.TrimSpace(item.URL)
	if item.Title == "" || item.URL == "" {
		return errors.New("event without title or url")
	}
	if item.PublishedAt.IsZero() {
		return errors.New("event without publish date")
	}
	if item.ID == "" {
		item.ID = processing.BuildItemID(item.PublishedAt, item.Title, item.URL)
	}

	if seen.Has(item.ID) {
		log.Debug("duplicate news", slog.String("id", item.ID))
		return nil
	}

	collected := ev.CollectedAt
	if collected.IsZero() {
		collected = time.Now().UTC()
	}

	doc := models.ArchivedNews{
		NewsItem:    item,
		Locale:      ev.Locale,
		RunID:       ev.RunID,
		CollectedAt: collected,
		Keywords:    processing.ExtractKeywords(item.Title+" "+item.Summary, cfg.KeywordLimit, cfg.KeywordMinLength),
	}

	if err := indexer.IndexNews(ctx, doc); err != nil {
		return err
	}

	seen.Mark(item.ID)
	log.Info("indexed news", slog.String("id", doc.ID), slog.String("locale", doc.Locale), slog.String("title", doc.Title))
	return nil
}

// sendToDLQ forwards msg with its failure context, retrying with
// exponential backoff. It reports whether the write succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error, backoff time.Duration) bool {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(append([]kafka.Header(nil), msg.Headers...),
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range 5 {
		err := w.WriteMessages(ctx, dlqMsg)
		if err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		wait := backoff << uint(attempt)
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}

	log.Error("DLQ write exhausted retries, message left uncommitted",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}
