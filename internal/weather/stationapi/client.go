// Package stationapi fetches raw JSON payloads from weather station endpoints.
package stationapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meteoboard/meteoboard/internal/provider/resilience"
	"github.com/meteoboard/meteoboard/internal/weather"
)

const (
	// MaxBodySize caps how much of a station response is read.
	MaxBodySize = 10 << 20

	tracerName = "github.com/meteoboard/meteoboard/internal/weather/stationapi"
)

var (
	ErrInvalidURL   = errors.New("invalid station url")
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// ClientConfig holds configuration for the station client.
type ClientConfig struct {
	// Registry holds one resilient client per station host (optional).
	Registry *resilience.Registry

	// HTTP is the per-host client template.
	// Default: resilience.DefaultClientConfig
	HTTP *resilience.ClientConfig

	// UserAgent is sent with every request.
	UserAgent string

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client fetches station payloads.
type Client struct {
	registry  *resilience.Registry
	base      resilience.ClientConfig
	userAgent string
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewClient creates a new station client.
func NewClient(cfg ClientConfig) *Client {
	registry := cfg.Registry
	if registry == nil {
		registry = resilience.NewRegistry()
	}

	base := resilience.DefaultClientConfig("")
	if cfg.HTTP != nil {
		base = *cfg.HTTP
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "meteoboard"
	}

	return &Client{
		registry:  registry,
		base:      base,
		userAgent: userAgent,
		tracer:    otel.Tracer(tracerName),
		logger:    cfg.Logger,
	}
}

// Registry returns the per-host client registry.
func (c *Client) Registry() *resilience.Registry {
	return c.registry
}

// Fetch GETs rawURL and decodes the JSON body into generic values.
// Every error wraps weather.ErrStationUnavailable.
func (c *Client) Fetch(ctx context.Context, rawURL string) (any, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %w: %q", weather.ErrStationUnavailable, ErrInvalidURL, rawURL)
	}

	ctx, span := c.tracer.Start(ctx, "stationapi.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("server.address", u.Host),
			attribute.String("url.path", u.Path),
		),
	)
	defer span.End()

	start := time.Now()
	decoded, err := c.fetch(ctx, u)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug().
			Err(err).
			Str("host", u.Host).
			Dur("duration", time.Since(start)).
			Msg("station fetch failed")
		return nil, fmt.Errorf("%w: %w", weather.ErrStationUnavailable, err)
	}

	c.logger.Debug().
		Str("host", u.Host).
		Dur("duration", time.Since(start)).
		Msg("station fetch completed")
	return decoded, nil
}

func (c *Client) fetch(ctx context.Context, u *url.URL) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.registry.Client(u.Host, c.base).Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: u.Redacted(), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(body) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return decoded, nil
}
