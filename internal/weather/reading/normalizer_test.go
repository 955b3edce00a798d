package reading_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoboard/meteoboard/internal/weather"
	"github.com/meteoboard/meteoboard/internal/weather/reading"
)

func newNormalizer(mode reading.ParseMode) *reading.Normalizer {
	return reading.NewNormalizer(reading.Config{Mode: mode, Logger: zerolog.Nop()})
}

func TestNormalize_ToulouseRecord(t *testing.T) {
	doc := decode(t, `{"records":[{"fields":{"heure_de_paris":"2025-01-01T10:00:00+00:00","humidite":0,"temperature_en_degre_c":15.2,"pression":101300}}]}`)

	ms := newNormalizer(reading.ParseLenient).Measurements(doc, 0)
	require.Len(t, ms, 1)

	m := ms[0]
	assert.Equal(t, "2025-01-01T10:00:00+00:00", m.Timestamp())
	assert.Equal(t, "N/A", weather.FormatValue(weather.FieldHumidity, m.Humidity().Any()))
	assert.Equal(t, "15.2°C", weather.FormatValue(weather.FieldTemperature, m.Temperature().Any()))
	assert.Equal(t, "1013.0hPa", weather.FormatValue(weather.FieldPressure, m.Pressure().Any()))
	assert.Equal(t, "01/01/2025 10:00 - Temp: 15.2°C, Hum: N/A, Press: 1013.0hPa", m.String())
}

func TestNormalize_Aliases(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"english", `{"time": "2025-02-03T04:05:06Z", "temperature": 12.5, "humidity": 60, "pressure": 1010}`},
		{"short", `{"timestamp": "2025-02-03T04:05:06Z", "temp": 12.5, "hum": 60, "press": 1010}`},
		{"celsius suffix", `{"datetime": "2025-02-03T04:05:06Z", "temp_c": 12.5, "hum": "60", "press": "1010"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := newNormalizer(reading.ParseLenient).Normalize(decode(t, tt.input))
			require.NoError(t, err)

			at, ok := m.Time()
			require.True(t, ok)
			assert.Equal(t, 4, at.Hour())
			assert.Equal(t, weather.Float(12.5), m.Temperature())
			assert.Equal(t, weather.Int(60), m.Humidity())
			assert.Equal(t, weather.Float(1010), m.Pressure())
		})
	}
}

func TestNormalize_AliasPriority(t *testing.T) {
	m, err := newNormalizer(reading.ParseLenient).Normalize(map[string]any{
		"temperature_en_degre_c": nil,
		"temperature":            20.0,
		"temp":                   30.0,
		"humidite":               45.0,
		"humidity":               90.0,
	})
	require.NoError(t, err)

	assert.Equal(t, weather.Float(20), m.Temperature())
	assert.Equal(t, weather.Int(45), m.Humidity())
	assert.False(t, m.Pressure().HasValue)
}

func TestNormalize_MissingTimeKeepsReading(t *testing.T) {
	m, err := newNormalizer(reading.ParseStrict).Normalize(map[string]any{"temp": 3.0})
	require.NoError(t, err)

	assert.Empty(t, m.Timestamp())
	_, ok := m.Time()
	assert.False(t, ok)
	assert.Equal(t, weather.Float(3), m.Temperature())
}

func TestNormalize_NumericTimestamp(t *testing.T) {
	m, err := newNormalizer(reading.ParseLenient).Normalize(map[string]any{"timestamp": 1735725600.0})
	require.NoError(t, err)

	assert.Equal(t, "1735725600", m.Timestamp())
	key, ok := m.DateKey()
	require.True(t, ok)
	assert.Equal(t, "2025-01-01", key)
}

func TestNormalize_CoercionFailure(t *testing.T) {
	raw := map[string]any{
		"time":        "2025-01-01T10:00:00Z",
		"temperature": "warm",
		"humidity":    50.0,
	}

	t.Run("lenient keeps the raw text", func(t *testing.T) {
		m, err := newNormalizer(reading.ParseLenient).Normalize(raw)
		require.NoError(t, err)
		assert.False(t, m.Temperature().HasValue)
		assert.Equal(t, weather.Int(50), m.Humidity())

		text, ok := m.Unparsed(weather.FieldTemperature)
		require.True(t, ok)
		assert.Equal(t, "warm", text)
		assert.Equal(t, "warm", weather.FormatValue(weather.FieldTemperature, m.Display(weather.FieldTemperature)))

		_, ok = m.Unparsed(weather.FieldHumidity)
		assert.False(t, ok)
	})

	t.Run("strict rejects the reading", func(t *testing.T) {
		_, err := newNormalizer(reading.ParseStrict).Normalize(raw)
		require.Error(t, err)

		var fieldErr *reading.FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, weather.FieldTemperature, fieldErr.Field)
		assert.Equal(t, "warm", fieldErr.Value)
	})
}

func TestNormalize_NotAnObject(t *testing.T) {
	_, err := newNormalizer(reading.ParseLenient).Normalize("hello")
	assert.ErrorIs(t, err, reading.ErrNotObject)

	_, err = newNormalizer(reading.ParseLenient).Normalize([]any{1.0})
	assert.ErrorIs(t, err, reading.ErrNotObject)
}

func TestMeasurements_LimitAndSkips(t *testing.T) {
	doc := decode(t, `[
		{"time": "2025-01-01T01:00:00Z", "temp": 1},
		"not a reading",
		{"time": "2025-01-01T02:00:00Z", "temp": "bad"},
		{"time": "2025-01-01T03:00:00Z", "temp": 3},
		{"time": "2025-01-01T04:00:00Z", "temp": 4}
	]`)

	lenient := newNormalizer(reading.ParseLenient)
	assert.Len(t, lenient.Measurements(doc, 0), 4, "non-object skipped")
	assert.Len(t, lenient.Measurements(doc, 2), 1, "limit applies before normalization")
	assert.Len(t, lenient.Measurements(doc, 100), 4)

	strict := newNormalizer(reading.ParseStrict)
	ms := strict.Measurements(doc, 0)
	require.Len(t, ms, 3)
	assert.Equal(t, weather.Float(4), ms[2].Temperature())
}

func TestMeasurements_EmptyDocument(t *testing.T) {
	n := newNormalizer(reading.ParseLenient)
	assert.Empty(t, n.Measurements(decode(t, `{"results": []}`), 10))
	assert.Empty(t, n.Measurements(decode(t, `[]`), 10))
}

func TestParseModeFromString(t *testing.T) {
	mode, err := reading.ParseModeFromString("strict")
	require.NoError(t, err)
	assert.Equal(t, reading.ParseStrict, mode)

	mode, err = reading.ParseModeFromString("")
	require.NoError(t, err)
	assert.Equal(t, reading.ParseLenient, mode)

	_, err = reading.ParseModeFromString("loose")
	assert.Error(t, err)
}
