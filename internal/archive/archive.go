// Package archive publishes accepted stories to Kafka for the archive
// worker. Publishing never affects the live response.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sudandialogue/newsdesk/internal/models"
)

// Event is the payload of one archive message.
type Event struct {
	RunID       string          `json:"runId"`
	Locale      string          `json:"locale"`
	CollectedAt time.Time       `json:"collectedAt"`
	Item        models.NewsItem `json:"item"`
}

// Batch is the result of one aggregation run.
type Batch struct {
	RunID       string
	Locale      string
	CollectedAt time.Time
	Items       []models.NewsItem
}

// Events expands b into one Event per item.
func (b Batch) Events() []Event {
	out := make([]Event, 0, len(b.Items))
	for _, item := range b.Items {
		out = append(out, Event{
			RunID:       b.RunID,
			Locale:      b.Locale,
			CollectedAt: b.CollectedAt.UTC(),
			Item:        item,
		})
	}
	return out
}

// Publisher ships batches to the archive.
type Publisher interface {
	Publish(ctx context.Context, b Batch) error
}

// Nop discards every batch.
type Nop struct{}

func (Nop) Publish(context.Context, Batch) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per item, keyed by the item ID so
// repeats of a story land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates an asynchronous publisher for topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

// Publish encodes and writes b. With an async writer delivery errors are
// only visible in the writer's own logs.
func (p *KafkaPublisher) Publish(ctx context.Context, b Batch) error {
	events := b.Events()
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.Item.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.Item.ID),
			Value: value,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(b.RunID)},
				{Key: "locale", Value: []byte(b.Locale)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d archive messages: %w", len(msgs), err)
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Decode parses an archive message value.
func Decode(value []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(value, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
