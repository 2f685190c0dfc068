package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingTable is returned when TABLE_NAME is not set.
var ErrMissingTable = errors.New("TABLE_NAME is required")

const (
	defaultRegion           = "us-east-1"
	defaultValidatorTimeout = 3 * time.Second
	defaultIdempotencyTTL   = 48 * time.Hour
	defaultMetricsNamespace = "OrderPipeline"
)

// Config holds everything the create-order entrypoints read from the environment.
type Config struct {
	Environment      string
	TableName        string
	Region           string
	EndpointOverride string // e.g. http://localhost:4566 for localstack

	IdempotencyTable string
	IdempotencyTTL   time.Duration
	EventsQueueURL   string
	MetricsNamespace string

	ValidatorTimeout time.Duration
	LogLevel         string
	RunLocal         bool
}

// Load reads the configuration. When RUN_LOCAL=true a .env file in the working
// directory is loaded first; variables already present in the environment win.
func Load() (Config, error) {
	runLocal := os.Getenv("RUN_LOCAL") == "true"
	if runLocal {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := Config{
		Environment:      getenv("ENVIRONMENT", "dev"),
		TableName:        os.Getenv("TABLE_NAME"),
		Region:           getenv("AWS_REGION", defaultRegion),
		EndpointOverride: os.Getenv("AWS_ENDPOINT_OVERRIDE"),
		IdempotencyTable: os.Getenv("IDEMPOTENCY_TABLE"),
		EventsQueueURL:   os.Getenv("ORDER_EVENTS_QUEUE_URL"),
		MetricsNamespace: getenv("METRICS_NAMESPACE", defaultMetricsNamespace),
		LogLevel:         strings.ToLower(getenv("LOG_LEVEL", "info")),
		RunLocal:         runLocal,
	}
	if cfg.TableName == "" {
		return Config{}, ErrMissingTable
	}

	var err error
	if cfg.ValidatorTimeout, err = duration("VALIDATOR_TIMEOUT", defaultValidatorTimeout); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = duration("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}
