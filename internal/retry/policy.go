// Package retry implements bounded retries with exponential backoff and
// jitter around any fallible operation.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Policy configures how an operation is retried. The zero value is not
// usable; construct via NewPolicy.
type Policy struct {
	// MaxAttempts bounds total invocations, first attempt included.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration

	// BackoffFactor multiplies the delay after each failed attempt.
	BackoffFactor float64

	// Jitter scales each wait by a uniform random factor in [0.5, 1.5) to
	// avoid synchronized retry storms.
	Jitter bool

	// RetryableStatuses is the set of upstream HTTP statuses worth retrying.
	RetryableStatuses map[int]bool

	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPolicy creates a Policy with the platform defaults: 3 attempts, 1s base
// delay, factor 2.0, jitter on, 5xx/429 retryable.
func NewPolicy(clock clockwork.Clock, logger *slog.Logger) *Policy {
	return &Policy{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		BackoffFactor:     2.0,
		Jitter:            true,
		RetryableStatuses: domain.DefaultRetryableStatuses,
		clock:             clock,
		logger:            logger,
	}
}

// Execute runs op until it succeeds, fails terminally, or MaxAttempts is
// reached. On give-up the last attempt's error (never an intermediate one)
// is returned wrapped in a domain.RetriesExhaustedError carrying the attempt
// count. A non-retryable failure short-circuits: op runs exactly once.
func (p *Policy) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !domain.Retryable(lastErr, p.RetryableStatuses) {
			p.logger.Warn("terminal failure, not retrying",
				"attempt", attempt,
				"error_kind", domain.ErrKind(lastErr),
				"error", lastErr,
			)
			return &domain.RetriesExhaustedError{Attempts: attempt, Err: lastErr}
		}

		if attempt == p.MaxAttempts {
			break
		}

		wait := p.backoff(attempt)
		p.logger.Warn("attempt failed, backing off",
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"wait", wait,
			"error", lastErr,
		)
		if !p.sleep(ctx, wait) {
			return &domain.RetriesExhaustedError{Attempts: attempt, Err: lastErr}
		}
	}

	p.logger.Warn("all attempts failed",
		"attempts", p.MaxAttempts,
		"error", lastErr,
	)
	return &domain.RetriesExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}

// backoff computes base * factor^(attempt-1), optionally jittered.
func (p *Policy) backoff(attempt int) time.Duration {
	wait := float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt-1))
	if p.Jitter {
		wait *= 0.5 + rand.Float64()
	}
	return time.Duration(wait)
}

// sleep waits for d or until ctx is cancelled. Returns false on cancellation.
func (p *Policy) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	select {
	case <-ctx.Done():
		return false
	case <-p.clock.After(d):
		return true
	}
}
