// Package resolver turns postcodes into coordinates, shielding callers from
// upstream unreliability with cache-aside lookup and bounded retries.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/geo-resolver-service/internal/cache"
	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/couchcryptid/geo-resolver-service/internal/eventbus"
	"github.com/couchcryptid/geo-resolver-service/internal/observability"
	"github.com/couchcryptid/geo-resolver-service/internal/retry"
)

// GeoResolver is the primary entry point for postcode resolution, consumed
// by item-creation flows and the retry worker.
type GeoResolver struct {
	geocoder domain.Geocoder
	cache    *cache.CoordinateCache
	policy   *retry.Policy
	bus      *eventbus.Bus
	ref      domain.ReferencePoint
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a GeoResolver.
func New(
	geocoder domain.Geocoder,
	coordCache *cache.CoordinateCache,
	policy *retry.Policy,
	bus *eventbus.Bus,
	ref domain.ReferencePoint,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *GeoResolver {
	return &GeoResolver{
		geocoder: geocoder,
		cache:    coordCache,
		policy:   policy,
		bus:      bus,
		ref:      ref,
		metrics:  metrics,
		logger:   logger.With("component", "resolver"),
	}
}

// Resolve returns the coordinates for postcode. Cache hits return
// immediately with no upstream call and no event; misses go upstream through
// the retry policy. Success populates the cache and publishes
// geo.lookup.success; exhausted retries publish geo.lookup.error and return
// the wrapped failure.
//
// Concurrent calls for the same uncached postcode are not deduplicated, so
// both may reach the upstream. The cache converges on one entry either way.
func (r *GeoResolver) Resolve(ctx context.Context, postcode string) (domain.Coordinates, error) {
	if entry, ok := r.cache.Get(postcode); ok {
		r.metrics.Lookups.WithLabelValues("cache_hit").Inc()
		r.logger.Debug("cache hit", "postcode", postcode)
		return entry.Coordinates, nil
	}

	var coords domain.Coordinates
	err := r.policy.Execute(ctx, func(ctx context.Context) error {
		c, err := r.geocoder.Lookup(ctx, postcode)
		if err != nil {
			return err
		}
		coords = c
		return nil
	})
	if err != nil {
		kind := domain.ErrKind(err)
		r.metrics.Lookups.WithLabelValues("error").Inc()
		r.metrics.LookupErrors.WithLabelValues(string(kind)).Inc()
		r.logger.Error("resolution failed",
			"postcode", postcode,
			"error_kind", kind,
			"error", err,
		)
		r.bus.Publish(ctx, domain.TopicLookupError, domain.LookupFailed{
			Postcode:  postcode,
			ErrorKind: kind,
			Message:   err.Error(),
		})
		return domain.Coordinates{}, fmt.Errorf("resolve %s: %w", postcode, err)
	}

	direction := domain.DirectionFrom(coords, r.ref)
	r.cache.Put(postcode, coords)
	r.metrics.CacheEntries.Set(float64(r.cache.Len()))
	r.metrics.Lookups.WithLabelValues("success").Inc()

	r.logger.Info("postcode resolved",
		"postcode", postcode,
		"lat", coords.Latitude,
		"lon", coords.Longitude,
		"direction", direction,
	)
	r.bus.Publish(ctx, domain.TopicLookupSuccess, domain.LookupSucceeded{
		Postcode:  postcode,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Direction: direction,
	})

	return coords, nil
}

// Direction classifies coords against the resolver's reference point.
func (r *GeoResolver) Direction(coords domain.Coordinates) domain.Direction {
	return domain.DirectionFrom(coords, r.ref)
}
