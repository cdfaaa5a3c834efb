// Package eventbus is a synchronous in-process publish/subscribe channel.
// It decouples the resolver from side effects (logging, metrics, Kafka
// forwarding) without queuing or persistence: delivery happens on the
// publisher's call stack, in-process only.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler consumes a published payload. A returned error is logged by the
// bus and never propagated to the publisher.
type Handler func(ctx context.Context, payload any) error

// Subscription identifies one registered handler for later removal.
type Subscription struct {
	ID    uuid.UUID
	Topic string
}

// Bus fans published payloads out to all subscribers of a topic. A
// misbehaving subscriber (error or panic) never fails the publish.
type Bus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[string]map[uuid.UUID]Handler
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger.With("component", "eventbus"),
		subs:   make(map[string]map[uuid.UUID]Handler),
	}
}

// Subscribe registers handler for topic and returns its handle.
func (b *Bus) Subscribe(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uuid.UUID]Handler)
	}
	sub := Subscription{ID: uuid.New(), Topic: topic}
	b.subs[topic][sub.ID] = handler
	b.logger.Debug("handler subscribed", "topic", topic, "subscription_id", sub.ID)
	return sub
}

// Unsubscribe removes the handler identified by sub. Unknown handles are a
// no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs[sub.Topic], sub.ID)
}

// Publish delivers payload to every subscriber of topic, synchronously and
// on the caller's goroutine. Publish itself never fails.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no subscribers for topic", "topic", topic)
		return
	}

	for _, h := range handlers {
		b.dispatch(ctx, topic, payload, h)
	}
}

// dispatch invokes one handler, containing errors and panics.
func (b *Bus) dispatch(ctx context.Context, topic string, payload any, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked", "topic", topic, "panic", r)
		}
	}()

	if err := h(ctx, payload); err != nil {
		b.logger.Error("subscriber failed", "topic", topic, "error", err)
	}
}
