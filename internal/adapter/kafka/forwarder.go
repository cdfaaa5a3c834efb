// Package kafka mirrors lookup events from the in-process bus onto a Kafka
// topic so the rest of the platform can observe resolution outcomes.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/geo-resolver-service/internal/config"
	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/couchcryptid/geo-resolver-service/internal/eventbus"
	"github.com/couchcryptid/geo-resolver-service/internal/observability"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Forwarder is an event bus subscriber that produces lookup events to Kafka.
// Delivery is best-effort: a write failure is logged by the bus and never
// reaches the resolver.
type Forwarder struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewForwarder creates a Kafka producer for the configured events topic.
func NewForwarder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Forwarder {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.GeoEventsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}
	return &Forwarder{
		writer:  w,
		metrics: metrics,
		logger:  logger.With("component", "kafka_forwarder"),
	}
}

// Attach subscribes the forwarder to both lookup topics on bus.
func (f *Forwarder) Attach(bus *eventbus.Bus) {
	bus.Subscribe(domain.TopicLookupSuccess, f.forward(domain.TopicLookupSuccess))
	bus.Subscribe(domain.TopicLookupError, f.forward(domain.TopicLookupError))
}

func (f *Forwarder) forward(topic string) eventbus.Handler {
	return func(ctx context.Context, payload any) error {
		msg, err := serializeToMessage(topic, payload)
		if err != nil {
			f.metrics.ForwardErrors.Inc()
			return err
		}
		if err := f.writer.WriteMessages(ctx, msg); err != nil {
			f.metrics.ForwardErrors.Inc()
			return fmt.Errorf("write lookup event: %w", err)
		}
		f.metrics.EventsForwarded.Inc()
		return nil
	}
}

// Close flushes and closes the underlying writer.
func (f *Forwarder) Close() error {
	return f.writer.Close()
}

// serializeToMessage marshals a lookup event payload, keyed by postcode so
// one postcode's events stay ordered within a partition.
func serializeToMessage(topic string, payload any) (kafkago.Message, error) {
	var key string
	switch p := payload.(type) {
	case domain.LookupSucceeded:
		key = p.Postcode
	case domain.LookupFailed:
		key = p.Postcode
	default:
		return kafkago.Message{}, fmt.Errorf("unexpected payload type %T for topic %s", payload, topic)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize lookup event: %w", err)
	}

	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(topic)},
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "emitted_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
