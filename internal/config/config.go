package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream geocoding API.
	GeocodeBaseURL string
	GeocodeTimeout time.Duration

	// Inline retry policy.
	RetryMaxAttempts   int
	RetryBaseDelay     time.Duration
	RetryBackoffFactor float64
	RetryJitter        bool

	// Direction reference point (New York City by default).
	ReferenceLat float64
	ReferenceLon float64

	// Retry worker.
	PollInterval     time.Duration
	WorkerBatchSize  int
	WorkerMaxRetries int

	// Optional Kafka event forwarding. Empty topic disables it.
	KafkaBrokers   []string
	GeoEventsTopic string
}

// KafkaEnabled reports whether lookup events are forwarded to Kafka.
func (c *Config) KafkaEnabled() bool {
	return c.GeoEventsTopic != ""
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocodeTimeout, err := parseDuration("GEOCODE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	pollInterval, err := parseDuration("POLL_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}

	retryBaseDelay, err := parseDuration("RETRY_BASE_DELAY", "1s")
	if err != nil {
		return nil, err
	}

	retryMaxAttempts, err := parseInt("RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	workerBatchSize, err := parseInt("WORKER_BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}

	workerMaxRetries, err := parseInt("WORKER_MAX_RETRIES", 5)
	if err != nil {
		return nil, err
	}

	backoffFactor, err := parseFloat("RETRY_BACKOFF_FACTOR", 2.0)
	if err != nil {
		return nil, err
	}

	refLat, err := parseFloat("REFERENCE_LAT", 40.7506)
	if err != nil {
		return nil, err
	}

	refLon, err := parseFloat("REFERENCE_LON", -73.9971)
	if err != nil {
		return nil, err
	}

	retryJitter, err := parseBool("RETRY_JITTER", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeocodeBaseURL: sharedcfg.EnvOrDefault("GEOCODE_BASE_URL", "https://api.zippopotam.us/us"),
		GeocodeTimeout: geocodeTimeout,

		RetryMaxAttempts:   retryMaxAttempts,
		RetryBaseDelay:     retryBaseDelay,
		RetryBackoffFactor: backoffFactor,
		RetryJitter:        retryJitter,

		ReferenceLat: refLat,
		ReferenceLon: refLon,

		PollInterval:     pollInterval,
		WorkerBatchSize:  workerBatchSize,
		WorkerMaxRetries: workerMaxRetries,

		GeoEventsTopic: sharedcfg.EnvOrDefault("GEO_EVENTS_TOPIC", ""),
	}

	if brokers := sharedcfg.EnvOrDefault("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if cfg.GeocodeBaseURL == "" {
		return nil, errors.New("GEOCODE_BASE_URL is required")
	}
	if cfg.RetryMaxAttempts < 1 {
		return nil, errors.New("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.RetryBackoffFactor < 1 {
		return nil, errors.New("RETRY_BACKOFF_FACTOR must be at least 1")
	}
	if cfg.WorkerBatchSize < 1 {
		return nil, errors.New("WORKER_BATCH_SIZE must be at least 1")
	}
	if cfg.WorkerMaxRetries < 0 {
		return nil, errors.New("WORKER_MAX_RETRIES must not be negative")
	}
	if cfg.KafkaEnabled() && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("GEO_EVENTS_TOPIC is set but KAFKA_BROKERS is not")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, "")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := sharedcfg.EnvOrDefault(key, "")
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return b, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := sharedcfg.EnvOrDefault(key, "")
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}
