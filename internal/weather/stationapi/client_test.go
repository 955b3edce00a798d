package stationapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoboard/meteoboard/internal/provider/resilience"
	"github.com/meteoboard/meteoboard/internal/weather"
	"github.com/meteoboard/meteoboard/internal/weather/stationapi"
)

func newClient(timeout time.Duration) *stationapi.Client {
	httpCfg := resilience.ClientConfig{Timeout: timeout}
	return stationapi.NewClient(stationapi.ClientConfig{HTTP: &httpCfg})
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "meteoboard", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count": 1, "results": [{"temperature": 12.5}]}`))
	}))
	defer server.Close()

	decoded, err := newClient(time.Second).Fetch(context.Background(), server.URL+"/records")
	require.NoError(t, err)

	doc, ok := decoded.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, doc["total_count"])
	assert.Len(t, doc["results"], 1)
}

func TestClient_FetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newClient(time.Second).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrStationUnavailable)

	var statusErr *stationapi.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestClient_FetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newClient(time.Second).Fetch(context.Background(), server.URL)

	var statusErr *stationapi.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestClient_FetchMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": [`))
	}))
	defer server.Close()

	_, err := newClient(time.Second).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrStationUnavailable)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestClient_FetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := newClient(50*time.Millisecond).Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, weather.ErrStationUnavailable)
}

func TestClient_FetchBodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`"`))
		_, _ = w.Write([]byte(strings.Repeat("a", stationapi.MaxBodySize)))
		_, _ = w.Write([]byte(`"`))
	}))
	defer server.Close()

	_, err := newClient(5*time.Second).Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, stationapi.ErrBodyTooLarge)
}

func TestClient_FetchInvalidURL(t *testing.T) {
	client := newClient(time.Second)

	for _, raw := range []string{"", "not a url", "ftp://example.test/data", "http://"} {
		_, err := client.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, stationapi.ErrInvalidURL, raw)
		assert.ErrorIs(t, err, weather.ErrStationUnavailable, raw)
	}
}

func TestClient_PerHostRegistry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := stationapi.NewClient(stationapi.ClientConfig{Registry: registry})

	_, err := client.Fetch(context.Background(), server.URL+"/a")
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), server.URL+"/b")
	require.NoError(t, err)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	assert.Equal(t, []string{u.Host}, registry.Names())
	health := registry.Health(u.Host)
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.Same(t, registry, client.Registry())
}
