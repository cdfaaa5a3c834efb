// Package zippopotam implements domain.Geocoder against the zippopotam.us
// postcode API.
package zippopotam

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/geo-resolver-service/internal/domain"
	"github.com/couchcryptid/geo-resolver-service/internal/observability"
)

// Client issues postcode lookups against the zippopotam.us API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a zippopotam geocoding client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger.With("component", "zippopotam"),
	}
}

// Lookup fetches coordinates for postcode with a single GET request. The
// first place record wins; lat/lon arrive as JSON strings and are parsed to
// float64.
func (c *Client) Lookup(ctx context.Context, postcode string) (domain.Coordinates, error) {
	u := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(postcode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("transport_error").Inc()
		return domain.Coordinates{}, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.UpstreamRequests.WithLabelValues("status_error").Inc()
		c.logger.Warn("upstream returned non-success status",
			"postcode", postcode,
			"status", resp.StatusCode,
		)
		return domain.Coordinates{}, &domain.UpstreamStatusError{Status: resp.StatusCode}
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("malformed").Inc()
		return domain.Coordinates{}, &domain.MalformedResponseError{Err: err}
	}

	if len(body.Places) == 0 {
		c.metrics.UpstreamRequests.WithLabelValues("no_data").Inc()
		return domain.Coordinates{}, &domain.NoDataError{Postcode: postcode}
	}

	coords, err := body.Places[0].coordinates()
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("malformed").Inc()
		return domain.Coordinates{}, &domain.MalformedResponseError{Err: err}
	}

	c.metrics.UpstreamRequests.WithLabelValues("success").Inc()
	return coords, nil
}

// zippopotam.us response types. Coordinates are string-encoded floats.

type response struct {
	Places []place `json:"places"`
}

type place struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

func (p place) coordinates() (domain.Coordinates, error) {
	lat, err := strconv.ParseFloat(p.Latitude, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse latitude %q: %w", p.Latitude, err)
	}
	lon, err := strconv.ParseFloat(p.Longitude, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse longitude %q: %w", p.Longitude, err)
	}
	return domain.Coordinates{Latitude: lat, Longitude: lon}, nil
}
