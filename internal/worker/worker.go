// Package worker runs the background loop that re-attempts previously
// failed geocode lookups out of band.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/couchcryptid/geo-resolver-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Resolver is the slice of the geo resolver the worker needs.
type Resolver interface {
	Resolve(ctx context.Context, postcode string) (domain.Coordinates, error)
	Direction(coords domain.Coordinates) domain.Direction
}

// ResultSink receives resolved coordinates for items that carry a
// correlation ID, typically to update the owning entity's stored geo fields.
type ResultSink interface {
	UpdateGeo(ctx context.Context, correlationID string, coords domain.Coordinates, direction domain.Direction) error
}

// Config tunes the worker loop.
type Config struct {
	// PollInterval is the sleep between drain iterations.
	PollInterval time.Duration

	// BatchSize bounds how many due items one iteration drains.
	BatchSize int

	// MaxRetries is the per-item ceiling; an item that reaches it is
	// dropped without another resolution attempt.
	MaxRetries int

	// StopTimeout bounds how long Stop waits for the in-flight iteration.
	StopTimeout time.Duration
}

// DefaultConfig returns the platform defaults: 60s polling, batches of 10,
// ceiling of 5, 5s stop timeout.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Minute,
		BatchSize:    10,
		MaxRetries:   5,
		StopTimeout:  5 * time.Second,
	}
}

// Worker periodically drains the retry queue and re-attempts each due item
// through the resolver. One item's failure never aborts the batch.
type Worker struct {
	queue    Queue
	resolver Resolver
	sink     ResultSink
	clock    clockwork.Clock
	cfg      Config
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	cancel  context.CancelFunc
}

// New creates a stopped Worker. sink may be nil when no caller needs results
// delivered back.
func New(
	queue Queue,
	resolver Resolver,
	sink ResultSink,
	clock clockwork.Clock,
	cfg Config,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		queue:    queue,
		resolver: resolver,
		sink:     sink,
		clock:    clock,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.With("component", "retry_worker"),
	}
}

// EnqueueRetry hands a failed lookup to the worker's queue for out-of-band
// re-attempting. This is the seam item-management flows call after Resolve
// fails.
func (w *Worker) EnqueueRetry(postcode, correlationID string) {
	w.queue.Enqueue(Item{
		Postcode:      postcode,
		CorrelationID: correlationID,
		NextRetryAt:   w.clock.Now(),
	})
	w.metrics.QueueDepth.Set(float64(w.queue.Len()))
	w.logger.Info("lookup queued for retry", "postcode", postcode, "correlation_id", correlationID)
}

// Start transitions Stopped→Running and begins the poll loop. Starting a
// running worker is an error.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("retry worker already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.cancel = cancel

	go w.run(ctx, w.stopCh, w.doneCh)

	w.logger.Info("retry worker started",
		"poll_interval", w.cfg.PollInterval,
		"batch_size", w.cfg.BatchSize,
		"max_retries", w.cfg.MaxRetries,
	)
	return nil
}

// Stop signals the loop to exit at its next iteration boundary and waits,
// bounded by StopTimeout, for in-flight work. On timeout the shutdown
// proceeds anyway with the in-flight context cancelled. Stop is idempotent.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	cancel := w.cancel
	w.mu.Unlock()

	select {
	case <-done:
		w.logger.Info("retry worker stopped")
	case <-w.clock.After(w.cfg.StopTimeout):
		cancel()
		w.logger.Warn("retry worker stop timed out, forcing shutdown")
	}
}

// Running reports whether the worker loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// CheckReadiness satisfies the ops server's readiness probe: the service is
// ready once the worker loop is running.
func (w *Worker) CheckReadiness(_ context.Context) error {
	if !w.Running() {
		return errors.New("retry worker is not running")
	}
	return nil
}

func (w *Worker) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	w.metrics.WorkerRunning.Set(1)
	defer w.metrics.WorkerRunning.Set(0)

	for {
		w.processBatch(ctx)

		select {
		case <-stopCh:
			return
		case <-w.clock.After(w.cfg.PollInterval):
		}
	}
}

// processBatch drains one bounded batch of due items.
func (w *Worker) processBatch(ctx context.Context) {
	due := w.queue.DequeueDue(w.clock.Now(), w.cfg.BatchSize)
	if len(due) == 0 {
		w.logger.Debug("no due retry items")
		return
	}

	w.logger.Info("processing retry batch", "count", len(due))
	for _, item := range due {
		w.processItem(ctx, item)
	}
	w.metrics.QueueDepth.Set(float64(w.queue.Len()))
}

func (w *Worker) processItem(ctx context.Context, item Item) {
	if item.RetryCount >= w.cfg.MaxRetries {
		w.metrics.ItemsDropped.Inc()
		w.logger.Warn("max retries exceeded, dropping item",
			"postcode", item.Postcode,
			"correlation_id", item.CorrelationID,
			"retry_count", item.RetryCount,
			"last_error", item.LastError,
		)
		return
	}

	coords, err := w.resolver.Resolve(ctx, item.Postcode)
	if err != nil {
		item.RetryCount++
		item.LastError = err.Error()
		item.NextRetryAt = w.clock.Now().Add(w.retryDelay(err))
		w.queue.Enqueue(item)

		w.metrics.ItemsRetried.WithLabelValues("failure").Inc()
		w.logger.Warn("re-attempt failed, item rescheduled",
			"postcode", item.Postcode,
			"retry_count", item.RetryCount,
			"next_retry_at", item.NextRetryAt,
			"error", err,
		)
		return
	}

	w.metrics.ItemsRetried.WithLabelValues("success").Inc()

	if item.CorrelationID != "" && w.sink != nil {
		direction := w.resolver.Direction(coords)
		if err := w.sink.UpdateGeo(ctx, item.CorrelationID, coords, direction); err != nil {
			// Delivery is best-effort; the coordinates are cached, so the
			// owner can re-read them.
			w.logger.Error("result delivery failed",
				"postcode", item.Postcode,
				"correlation_id", item.CorrelationID,
				"error", err,
			)
		}
	}

	w.logger.Info("queued lookup resolved",
		"postcode", item.Postcode,
		"correlation_id", item.CorrelationID,
	)
}

// retryDelay picks the re-schedule delay by failure kind: genuinely absent
// data waits 30 minutes, upstream trouble a full hour, anything unexpected
// 15 minutes.
func (w *Worker) retryDelay(err error) time.Duration {
	switch domain.ErrKind(err) {
	case domain.KindNoData:
		return 30 * time.Minute
	case domain.KindTransport, domain.KindUpstreamStatus:
		return time.Hour
	default:
		return 15 * time.Minute
	}
}
