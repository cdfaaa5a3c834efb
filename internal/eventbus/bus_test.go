package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	bus := testBus()

	var first, second []any
	bus.Subscribe(domain.TopicLookupSuccess, func(_ context.Context, p any) error {
		first = append(first, p)
		return nil
	})
	bus.Subscribe(domain.TopicLookupSuccess, func(_ context.Context, p any) error {
		second = append(second, p)
		return nil
	})

	payload := domain.LookupSucceeded{Postcode: "10001", Latitude: 40.7506, Longitude: -73.9971, Direction: domain.DirectionNE}
	bus.Publish(context.Background(), domain.TopicLookupSuccess, payload)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, payload, first[0])
	assert.Equal(t, payload, second[0])
}

func TestPublish_TopicIsolation(t *testing.T) {
	bus := testBus()

	calls := 0
	bus.Subscribe(domain.TopicLookupError, func(context.Context, any) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), domain.TopicLookupSuccess, domain.LookupSucceeded{Postcode: "10001"})
	assert.Equal(t, 0, calls)

	bus.Publish(context.Background(), domain.TopicLookupError, domain.LookupFailed{Postcode: "10001"})
	assert.Equal(t, 1, calls)
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	bus := testBus()

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), domain.TopicLookupSuccess, domain.LookupSucceeded{Postcode: "10001"})
	})
}

func TestPublish_SubscriberErrorDoesNotStopFanOut(t *testing.T) {
	bus := testBus()

	bus.Subscribe(domain.TopicLookupError, func(context.Context, any) error {
		return errors.New("listener bug")
	})

	delivered := false
	bus.Subscribe(domain.TopicLookupError, func(context.Context, any) error {
		delivered = true
		return nil
	})

	bus.Publish(context.Background(), domain.TopicLookupError, domain.LookupFailed{Postcode: "00000"})
	assert.True(t, delivered, "healthy subscriber must still receive the event")
}

func TestPublish_SubscriberPanicIsContained(t *testing.T) {
	bus := testBus()

	bus.Subscribe(domain.TopicLookupSuccess, func(context.Context, any) error {
		panic("listener bug")
	})

	delivered := 0
	bus.Subscribe(domain.TopicLookupSuccess, func(context.Context, any) error {
		delivered++
		return nil
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), domain.TopicLookupSuccess, domain.LookupSucceeded{Postcode: "10001"})
	})
	assert.Equal(t, 1, delivered)
}

func TestUnsubscribe(t *testing.T) {
	bus := testBus()

	calls := 0
	sub := bus.Subscribe(domain.TopicLookupSuccess, func(context.Context, any) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), domain.TopicLookupSuccess, domain.LookupSucceeded{Postcode: "10001"})
	assert.Equal(t, 1, calls)

	bus.Unsubscribe(sub)
	bus.Publish(context.Background(), domain.TopicLookupSuccess, domain.LookupSucceeded{Postcode: "10001"})
	assert.Equal(t, 1, calls, "unsubscribed handler must not be invoked")

	// Unsubscribing twice is harmless.
	assert.NotPanics(t, func() { bus.Unsubscribe(sub) })
}
