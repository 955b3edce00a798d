// Package mqttpub publishes the latest station measurements to an MQTT broker.
package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/weather"
)

const (
	// DefaultTopicPrefix is prepended to every station topic.
	DefaultTopicPrefix = "meteoboard/stations"

	// DefaultPublishTimeout bounds a single publish.
	DefaultPublishTimeout = 5 * time.Second
)

var (
	// ErrNotConnected is returned when publishing without a broker connection.
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrNoMeasurements is returned for stations without timed measurements.
	ErrNoMeasurements = errors.New("station has no measurements")

	// ErrPublishTimeout is returned when the broker does not acknowledge in time.
	ErrPublishTimeout = errors.New("mqtt publish timeout")
)

// Config holds configuration for the publisher.
type Config struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker   string
	ClientID string

	// TopicPrefix defaults to DefaultTopicPrefix.
	TopicPrefix string

	// Retain marks published messages as retained.
	Retain bool

	// Timeout bounds each publish (default: 5s).
	Timeout time.Duration

	Logger zerolog.Logger
}

// Payload is the JSON message published for a station.
type Payload struct {
	StationID    string    `json:"station_id"`
	Station      string    `json:"station"`
	City         string    `json:"city,omitempty"`
	Country      string    `json:"country,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Temperature  *float64  `json:"temperature_c,omitempty"`
	Humidity     *int      `json:"humidity_pct,omitempty"`
	Pressure     *float64  `json:"pressure_hpa,omitempty"`
	Measurements int       `json:"measurements"`
}

// Publisher sends station payloads to <prefix>/<station id>.
type Publisher struct {
	client  mqtt.Client
	prefix  string
	retain  bool
	timeout time.Duration
	logger  zerolog.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a publisher connected to cfg.Broker. Call Connect before publishing.
func New(cfg Config) *Publisher {
	p := newPublisher(cfg)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "meteoboard-worker"
	}
	opts.SetClientID(clientID)

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		p.logger.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn().Err(err).Msg("mqtt connection lost")
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// NewWithClient wraps an existing client, which is assumed to be connected.
func NewWithClient(client mqtt.Client, cfg Config) *Publisher {
	p := newPublisher(cfg)
	p.client = client
	p.connected = true
	return p
}

func newPublisher(cfg Config) *Publisher {
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Publisher{
		prefix:  prefix,
		retain:  cfg.Retain,
		timeout: timeout,
		logger:  cfg.Logger,
		stopCh:  make(chan struct{}),
	}
}

// Connect waits for the initial broker connection, honouring ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return errors.New("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			p.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return errors.New("publisher stopped")
		default:
		}
	}
}

// Topic returns the topic a station is published on.
func (p *Publisher) Topic(st *weather.Station) string {
	id := st.ID
	if id == "" {
		id = st.Name
	}
	return p.prefix + "/" + id
}

// Publish sends the station's most recent timed measurement.
func (p *Publisher) Publish(ctx context.Context, st *weather.Station) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	payload, err := NewPayload(st)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	topic := p.Topic(st)
	token := p.client.Publish(topic, 1, p.retain, data)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.Debug().Str("topic", topic).Str("station", st.Name).Msg("published station")
	return nil
}

// NewPayload builds the message for a station's latest timed measurement.
func NewPayload(st *weather.Station) (Payload, error) {
	sorted := st.SortedMeasurements()
	if len(sorted) == 0 {
		return Payload{}, fmt.Errorf("%w: %s", ErrNoMeasurements, st.Name)
	}
	latest := sorted[len(sorted)-1]
	at, _ := latest.Time()

	payload := Payload{
		StationID:    st.ID,
		Station:      st.Name,
		City:         st.CityName(),
		Country:      st.CountryName(),
		Timestamp:    at,
		Measurements: st.MeasurementCount(),
	}
	if t := latest.Temperature(); t.HasValue {
		payload.Temperature = &t.Value
	}
	if h := latest.Humidity(); h.HasValue {
		payload.Humidity = &h.Value
	}
	if pr := latest.Pressure(); pr.HasValue {
		v := weather.Hectopascals(pr.Value)
		payload.Pressure = &v
	}
	return payload, nil
}

// IsConnected reports whether the broker connection is up.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher. It is safe to call more than once.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
	p.logger.Info().Msg("mqtt disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
