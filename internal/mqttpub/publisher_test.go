package mqttpub_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoboard/meteoboard/internal/mqttpub"
	"github.com/meteoboard/meteoboard/internal/weather"
)

// fakeToken completes immediately with err, or never when pending.
type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error, pending bool) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	if !pending {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes. Unused mqtt.Client methods panic.
type fakeClient struct {
	mqtt.Client

	mu        sync.Mutex
	messages  []published
	err       error
	pending   bool
	connected bool
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Disconnect(uint) { c.connected = false }

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return newToken(c.err, c.pending)
}

func station() *weather.Station {
	country := &weather.Country{ID: "fr", Name: "France"}
	st := &weather.Station{
		ID:   "s-1",
		Name: "Montaudran",
		URL:  "http://m",
		City: &weather.City{ID: "tls", Name: "Toulouse", Country: country},
	}
	st.ReplaceMeasurements([]weather.Measurement{
		weather.NewMeasurement("2025-01-01T11:00:00+00:00", weather.Float(16), weather.NullInt{}, weather.Float(101500)),
		weather.NewMeasurement("2025-01-01T10:00:00+00:00", weather.Float(15.2), weather.Int(70), weather.Float(1013)),
		weather.NewMeasurement("garbage", weather.Float(99), weather.NullInt{}, weather.NullFloat64{}),
	})
	return st
}

func TestPublisher_Publish(t *testing.T) {
	client := &fakeClient{connected: true}
	pub := mqttpub.NewWithClient(client, mqttpub.Config{TopicPrefix: "weather/", Retain: true, Logger: zerolog.Nop()})

	require.NoError(t, pub.Publish(context.Background(), station()))

	require.Len(t, client.messages, 1)
	msg := client.messages[0]
	assert.Equal(t, "weather/s-1", msg.topic)
	assert.True(t, msg.retained)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &payload))
	assert.Equal(t, "Montaudran", payload["station"])
	assert.Equal(t, "Toulouse", payload["city"])
	assert.Equal(t, "France", payload["country"])
	assert.Equal(t, 16.0, payload["temperature_c"])
	assert.Equal(t, 1015.0, payload["pressure_hpa"])
	assert.NotContains(t, payload, "humidity_pct")
	assert.Equal(t, 3.0, payload["measurements"])
}

func TestPublisher_DefaultTopic(t *testing.T) {
	pub := mqttpub.NewWithClient(&fakeClient{connected: true}, mqttpub.Config{})

	assert.Equal(t, mqttpub.DefaultTopicPrefix+"/s-1", pub.Topic(station()))
	assert.Equal(t, mqttpub.DefaultTopicPrefix+"/Nameless", pub.Topic(&weather.Station{Name: "Nameless"}))
}

func TestPublisher_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not connected", func(t *testing.T) {
		pub := mqttpub.NewWithClient(&fakeClient{}, mqttpub.Config{})
		assert.ErrorIs(t, pub.Publish(ctx, station()), mqttpub.ErrNotConnected)
	})

	t.Run("no measurements", func(t *testing.T) {
		client := &fakeClient{connected: true}
		pub := mqttpub.NewWithClient(client, mqttpub.Config{})
		assert.ErrorIs(t, pub.Publish(ctx, &weather.Station{ID: "x", Name: "x"}), mqttpub.ErrNoMeasurements)
		assert.Empty(t, client.messages)
	})

	t.Run("broker error", func(t *testing.T) {
		client := &fakeClient{connected: true, err: errors.New("not authorized")}
		pub := mqttpub.NewWithClient(client, mqttpub.Config{})
		assert.ErrorContains(t, pub.Publish(ctx, station()), "not authorized")
	})

	t.Run("timeout", func(t *testing.T) {
		client := &fakeClient{connected: true, pending: true}
		pub := mqttpub.NewWithClient(client, mqttpub.Config{Timeout: 10 * time.Millisecond})
		assert.ErrorIs(t, pub.Publish(ctx, station()), mqttpub.ErrPublishTimeout)
	})
}

func TestPublisher_Disconnect(t *testing.T) {
	pub := mqttpub.NewWithClient(&fakeClient{connected: true}, mqttpub.Config{Logger: zerolog.Nop()})
	require.True(t, pub.IsConnected())

	pub.Disconnect()
	pub.Disconnect()
	assert.False(t, pub.IsConnected())
	assert.Error(t, pub.Connect(context.Background()))
}

func TestNewPayload_UsesLatestTimedMeasurement(t *testing.T) {
	payload, err := mqttpub.NewPayload(station())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC), payload.Timestamp.UTC())
	require.NotNil(t, payload.Temperature)
	assert.Equal(t, 16.0, *payload.Temperature)
	assert.Nil(t, payload.Humidity)
}
