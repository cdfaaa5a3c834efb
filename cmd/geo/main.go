package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/geo-resolver-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/geo-resolver-service/internal/adapter/kafka"
	"github.com/couchcryptid/geo-resolver-service/internal/adapter/zippopotam"
	"github.com/couchcryptid/geo-resolver-service/internal/cache"
	"github.com/couchcryptid/geo-resolver-service/internal/config"
	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/couchcryptid/geo-resolver-service/internal/eventbus"
	"github.com/couchcryptid/geo-resolver-service/internal/observability"
	"github.com/couchcryptid/geo-resolver-service/internal/resolver"
	"github.com/couchcryptid/geo-resolver-service/internal/retry"
	"github.com/couchcryptid/geo-resolver-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	bus := eventbus.New(logger)
	registerLogSubscribers(bus, logger)

	// Kafka forwarding is feature-flagged via GEO_EVENTS_TOPIC.
	var forwarder *kafkaadapter.Forwarder
	if cfg.KafkaEnabled() {
		forwarder = kafkaadapter.NewForwarder(cfg, metrics, logger)
		forwarder.Attach(bus)
		logger.Info("kafka event forwarding enabled", "topic", cfg.GeoEventsTopic)
	} else {
		logger.Info("kafka event forwarding disabled")
	}

	policy := retry.NewPolicy(clock, logger)
	policy.MaxAttempts = cfg.RetryMaxAttempts
	policy.BaseDelay = cfg.RetryBaseDelay
	policy.BackoffFactor = cfg.RetryBackoffFactor
	policy.Jitter = cfg.RetryJitter

	coordCache := cache.New(clock)
	client := zippopotam.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeTimeout, metrics, logger)
	ref := domain.ReferencePoint{Latitude: cfg.ReferenceLat, Longitude: cfg.ReferenceLon}
	res := resolver.New(client, coordCache, policy, bus, ref, metrics, logger)

	queue := worker.NewMemoryQueue()
	w := worker.New(queue, res, nil, clock, worker.Config{
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.WorkerBatchSize,
		MaxRetries:   cfg.WorkerMaxRetries,
		StopTimeout:  cfg.ShutdownTimeout,
	}, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, w, pipelineStatus{w, queue, coordCache}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(); err != nil {
		logger.Error("failed to start retry worker", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	w.Stop()
	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			logger.Error("kafka forwarder close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// registerLogSubscribers attaches the structured-log listeners every
// deployment gets, regardless of Kafka forwarding.
func registerLogSubscribers(bus *eventbus.Bus, logger *slog.Logger) {
	bus.Subscribe(domain.TopicLookupSuccess, func(_ context.Context, payload any) error {
		if p, ok := payload.(domain.LookupSucceeded); ok {
			logger.Info("geo lookup succeeded",
				"postcode", p.Postcode,
				"lat", p.Latitude,
				"lon", p.Longitude,
				"direction", p.Direction,
			)
		}
		return nil
	})
	bus.Subscribe(domain.TopicLookupError, func(_ context.Context, payload any) error {
		if p, ok := payload.(domain.LookupFailed); ok {
			logger.Error("geo lookup failed",
				"postcode", p.Postcode,
				"error_kind", p.ErrorKind,
				"message", p.Message,
			)
		}
		return nil
	})
}

// pipelineStatus feeds the /statusz endpoint.
type pipelineStatus struct {
	worker *worker.Worker
	queue  *worker.MemoryQueue
	cache  *cache.CoordinateCache
}

func (p pipelineStatus) Status() (running bool, queueDepth, cachedPostcodes int) {
	return p.worker.Running(), p.queue.Len(), p.cache.Len()
}
