// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreKind selects the persisted configuration backend.
type StoreKind string

// Supported store backends.
const (
	StoreFile     StoreKind = "file"
	StorePostgres StoreKind = "postgres"
	StoreSQLite   StoreKind = "sqlite"
	StoreMemory   StoreKind = "memory"
)

// ErrInvalid is wrapped by every LoadFromEnv error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the process configuration shared by every binary.
type Config struct {
	Env      string
	LogLevel string
	Port     string

	// RequireTLS makes the API reject requests that did not arrive over TLS.
	RequireTLS bool

	Store      StoreKind
	ConfigFile string
	SQLitePath string

	FetchTimeout time.Duration
	FetchRetries int
	Limit        int
	ParseMode    string
	Language     string

	// TermWidth overrides terminal detection when positive.
	TermWidth int

	RefreshInterval    time.Duration
	PubSubProjectID    string
	PubSubSubscription string
	MQTTBroker         string
	MQTTTopicPrefix    string

	OTelEnabled     bool
	OTLPEndpoint    string
	OTelSampleRatio float64
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Env:             "development",
		LogLevel:        "info",
		Port:            "8080",
		Store:           StoreFile,
		ConfigFile:      "data/config.json",
		SQLitePath:      "data/meteoboard.db",
		FetchTimeout:    10 * time.Second,
		FetchRetries:    2,
		Limit:           1000,
		ParseMode:       "lenient",
		Language:        "fr",
		RefreshInterval: 15 * time.Minute,
		MQTTTopicPrefix: "meteoboard/stations",
		OTLPEndpoint:    "localhost:4317",
		OTelSampleRatio: 1,
	}
}

// IsDevelopment reports whether APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// LoadFromEnv reads the configuration from environment variables.
// Unset or empty variables keep their defaults; malformed values are errors.
func LoadFromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	str(&cfg.Env, "APP_ENV")
	str(&cfg.LogLevel, "LOG_LEVEL")
	str(&cfg.Port, "APP_PORT")
	str(&cfg.ConfigFile, "METEO_CONFIG_FILE")
	str(&cfg.SQLitePath, "SQLITE_PATH")
	str(&cfg.ParseMode, "METEO_PARSE_MODE")
	str(&cfg.Language, "METEO_LANG")
	str(&cfg.PubSubProjectID, "PUBSUB_PROJECT_ID")
	str(&cfg.PubSubSubscription, "PUBSUB_SUBSCRIPTION")
	str(&cfg.MQTTBroker, "MQTT_BROKER")
	str(&cfg.MQTTTopicPrefix, "MQTT_TOPIC_PREFIX")
	str(&cfg.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := os.Getenv("METEO_STORE"); v != "" {
		switch kind := StoreKind(strings.ToLower(v)); kind {
		case StoreFile, StorePostgres, StoreSQLite, StoreMemory:
			cfg.Store = kind
		default:
			errs = append(errs, fmt.Errorf("METEO_STORE: unknown backend %q", v))
		}
	}

	errs = appendErr(errs, duration(&cfg.FetchTimeout, "METEO_FETCH_TIMEOUT"))
	errs = appendErr(errs, duration(&cfg.RefreshInterval, "METEO_REFRESH_INTERVAL"))
	errs = appendErr(errs, integer(&cfg.FetchRetries, "METEO_FETCH_RETRIES", 0))
	errs = appendErr(errs, integer(&cfg.Limit, "METEO_LIMIT", 1))
	errs = appendErr(errs, integer(&cfg.TermWidth, "METEO_TERM_WIDTH", 1))
	errs = appendErr(errs, boolean(&cfg.OTelEnabled, "OTEL_ENABLED"))
	errs = appendErr(errs, boolean(&cfg.RequireTLS, "REQUIRE_TLS"))
	errs = appendErr(errs, ratio(&cfg.OTelSampleRatio, "OTEL_SAMPLE_RATIO"))

	switch cfg.ParseMode {
	case "lenient", "strict":
	default:
		errs = append(errs, fmt.Errorf("METEO_PARSE_MODE: unknown mode %q", cfg.ParseMode))
	}

	if err := errors.Join(errs...); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func duration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		secs, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive", key)
	}
	*dst = d
	return nil
}

func integer(dst *int, key string, minimum int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if n < minimum {
		return fmt.Errorf("%s: must be at least %d", key, minimum)
	}
	*dst = n
	return nil
}

func boolean(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func ratio(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("%s: must be between 0 and 1", key)
	}
	*dst = f
	return nil
}
