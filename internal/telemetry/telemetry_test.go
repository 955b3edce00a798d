package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/meteoboard/meteoboard/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "meteo-api",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		Enabled:        false,
	})

	require.NoError(t, err)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)

	// Disabled telemetry installs no SDK providers.
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestInit_Enabled(t *testing.T) {
	ctx := context.Background()

	// The gRPC exporters connect lazily, so no collector is needed.
	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "meteo-worker",
		Enabled:     true,
		SampleRatio: 0.25,
	})
	require.NoError(t, err)
	assert.NotNil(t, provider.TracerProvider)
	assert.NotNil(t, provider.MeterProvider)

	_, span := provider.Tracer.Start(ctx, "test")
	span.End()

	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	_ = provider.Shutdown(shutdownCtx) //nolint:errcheck // no collector to flush to
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestTracerAndMeter(t *testing.T) {
	assert.NotNil(t, telemetry.Tracer("meteoboard"))
	assert.NotNil(t, telemetry.Meter("meteoboard"))
}

func TestRegisterStationGauge(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(ctx) }()

	stations := 2
	reg, err := telemetry.RegisterStationGauge(mp.Meter("test"), func() int { return stations })
	require.NoError(t, err)

	collect := func() int64 {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		require.Len(t, rm.ScopeMetrics, 1)
		require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
		m := rm.ScopeMetrics[0].Metrics[0]
		assert.Equal(t, "meteo.stations", m.Name)
		gauge, ok := m.Data.(metricdata.Gauge[int64])
		require.True(t, ok)
		require.Len(t, gauge.DataPoints, 1)
		return gauge.DataPoints[0].Value
	}

	assert.Equal(t, int64(2), collect())
	stations = 5
	assert.Equal(t, int64(5), collect())

	require.NoError(t, reg.Unregister())
}
