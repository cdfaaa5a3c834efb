package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() *Policy {
	p := NewPolicy(clockwork.NewRealClock(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.BaseDelay = time.Millisecond
	p.Jitter = false
	return p
}

func TestExecute_SucceedsFirstAttempt(t *testing.T) {
	p := testPolicy()

	calls := 0
	err := p.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_RetryableFailureBoundedAttempts(t *testing.T) {
	p := testPolicy()

	calls := 0
	lastErr := errors.New("sentinel")
	err := p.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls == p.MaxAttempts {
			return &domain.TransportError{Err: lastErr}
		}
		return &domain.TransportError{Err: errors.New("intermediate")}
	})

	require.Error(t, err)
	assert.Equal(t, p.MaxAttempts, calls)

	var exhausted *domain.RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, p.MaxAttempts, exhausted.Attempts)
	assert.ErrorIs(t, exhausted.Err, lastErr, "the last attempt's error must propagate")
}

func TestExecute_TerminalFailureShortCircuits(t *testing.T) {
	p := testPolicy()

	calls := 0
	err := p.Execute(context.Background(), func(context.Context) error {
		calls++
		return &domain.NoDataError{Postcode: "00000"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "terminal errors must not be retried")
	assert.Equal(t, domain.KindNoData, domain.ErrKind(err))
}

func TestExecute_TerminalStatusShortCircuits(t *testing.T) {
	p := testPolicy()

	calls := 0
	err := p.Execute(context.Background(), func(context.Context) error {
		calls++
		return &domain.UpstreamStatusError{Status: 404}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecute_RetryableStatusRetried(t *testing.T) {
	p := testPolicy()

	calls := 0
	err := p.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &domain.UpstreamStatusError{Status: 503}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_ContextCancelledDuringBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewPolicy(clock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Jitter = false

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- p.Execute(ctx, func(context.Context) error {
			return &domain.TransportError{Err: errors.New("down")}
		})
	}()

	// Let the first attempt fail and enter the backoff sleep, then cancel.
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	cancel()

	err := <-done
	require.Error(t, err)
	assert.Equal(t, domain.KindTransport, domain.ErrKind(err))
}

func TestBackoff_ExponentialGrowth(t *testing.T) {
	p := testPolicy()
	p.BaseDelay = time.Second
	p.BackoffFactor = 2.0

	assert.Equal(t, time.Second, p.backoff(1))
	assert.Equal(t, 2*time.Second, p.backoff(2))
	assert.Equal(t, 4*time.Second, p.backoff(3))
}

func TestBackoff_JitterWithinBounds(t *testing.T) {
	p := testPolicy()
	p.BaseDelay = time.Second
	p.Jitter = true

	for i := 0; i < 200; i++ {
		wait := p.backoff(1)
		assert.GreaterOrEqual(t, wait, 500*time.Millisecond)
		assert.Less(t, wait, 1500*time.Millisecond)
	}
}
