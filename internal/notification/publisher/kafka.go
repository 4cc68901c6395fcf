// Package publisher provides notification publisher implementations.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"fleetcomply/internal/notification"
)

// Kafka publishes notification events to a Kafka topic, keyed by tenant so
// per-tenant ordering is preserved.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects a producer to the given brokers.
func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

// Publish produces the event asynchronously. Delivery failures are logged;
// callers treat emission as best-effort.
func (k *Kafka) Publish(ctx context.Context, event notification.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.TenantID.String()),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && k.logger != nil {
			k.logger.ErrorContext(ctx, "notification delivery failed",
				"event", event.Kind,
				"entity_kind", event.EntityKind,
				"entity_ref", event.EntityRef,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes pending records and shuts the producer down.
func (k *Kafka) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := k.client.Flush(ctx); err != nil {
		return err
	}
	k.client.Close()
	return nil
}
