package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains archive Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Kafka identifies the archive topic.
type Kafka struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// Feeds configures the news aggregation pipeline.
type Feeds struct {
	BaseURL          string
	FetchTimeout     time.Duration
	UserAgent        string
	MinItems         int
	MaxItems         int
	FreshnessWindows []time.Duration
	PolicyPath       string
}

// API describes HTTP-layer configuration. Kafka and Elasticsearch are
// optional for the API; empty values switch the archive off.
type API struct {
	Common
	Kafka
	Feeds
	BindAddr    string
	DefaultPage int
	MaxPage     int
}

// ArchiveEnabled reports whether accepted items should be published.
func (c *API) ArchiveEnabled() bool { return len(c.KafkaBrokers) > 0 }

// SearchEnabled reports whether the archive search endpoint is served.
func (c *API) SearchEnabled() bool { return c.ElasticsearchAddr != "" }

// Worker holds configuration for the Kafka -> Elasticsearch archive worker.
type Worker struct {
	Common
	Kafka
	KafkaConsumer    string
	KeywordLimit     int
	KeywordMinLength int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
}

// Retention configures the archive cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

const (
	defaultIndex    = "sudan_news"
	defaultTopic    = "sudan_news"
	defaultESAddr   = "http://elasticsearch:9200"
	defaultFeedURL  = "https://news.google.com/rss/search"
	defaultAgent    = "SudanNewsDesk/1.0 (+https://sudandialogue.org)"
	defaultWindows  = "12h,24h,48h,72h,168h"
	defaultMinItems = 20
	defaultMaxItems = 120
)

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	windows, err := parseDurations(getEnv("NEWS_FRESHNESS_WINDOWS", defaultWindows))
	if err != nil {
		return nil, fmt.Errorf("NEWS_FRESHNESS_WINDOWS: %w", err)
	}

	c := &API{
		Common: Common{
			ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", ""),
			ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", defaultIndex),
		},
		Kafka: Kafka{
			KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "")),
			KafkaTopic:   getEnv("KAFKA_TOPIC", defaultTopic),
		},
		Feeds: Feeds{
			BaseURL:          getEnv("NEWS_FEED_BASE_URL", defaultFeedURL),
			FetchTimeout:     getDuration("NEWS_FETCH_TIMEOUT", "9s"),
			UserAgent:        getEnv("NEWS_USER_AGENT", defaultAgent),
			MinItems:         getInt("NEWS_MIN_ITEMS", defaultMinItems),
			MaxItems:         getInt("NEWS_MAX_ITEMS", defaultMaxItems),
			FreshnessWindows: windows,
			PolicyPath:       getEnv("NEWS_POLICY_PATH", ""),
		},
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage: getInt("API_PAGE_SIZE", 20),
		MaxPage:     getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.FetchTimeout <= 0 {
		return nil, fmt.Errorf("NEWS_FETCH_TIMEOUT must be positive")
	}
	if c.MinItems < 0 {
		return nil, fmt.Errorf("NEWS_MIN_ITEMS cannot be negative")
	}
	if c.MaxItems <= 0 {
		return nil, fmt.Errorf("NEWS_MAX_ITEMS must be positive")
	}
	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common: Common{
			ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", defaultESAddr),
			ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", defaultIndex),
		},
		Kafka: Kafka{
			KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
			KafkaTopic:   getEnv("KAFKA_TOPIC", defaultTopic),
		},
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "news-archiver"),
		KeywordLimit:     getInt("WORKER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("WORKER_KEYWORD_MIN_LEN", 4),
		DedupeCapacity:   getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:        getInt("WORKER_BATCH_SIZE", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_MIN_LEN cannot be negative")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common: Common{
			ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", defaultESAddr),
			ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", defaultIndex),
		},
		Interval:  getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, fallback)); err == nil {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, err))
	}
	return d
}

// parseDurations reads a comma-separated, strictly ascending list of
// positive durations.
func parseDurations(raw string) ([]time.Duration, error) {
	parts := splitAndTrim(raw)
	if len(parts) == 0 {
		return nil, fmt.Errorf("at least one window is required")
	}
	out := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("window %q must be positive", part)
		}
		if n := len(out); n > 0 && d <= out[n-1] {
			return nil, fmt.Errorf("windows must be ascending, %q follows %s", part, out[n-1])
		}
		out = append(out, d)
	}
	return out, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
