package weather_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoboard/meteoboard/internal/weather"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"rfc3339 with offset", "2025-01-01T10:00:00+01:00", time.Date(2025, 1, 1, 10, 0, 0, 0, time.FixedZone("", 3600)), true},
		{"rfc3339 zulu", "2025-01-01T10:00:00Z", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"fractional seconds", "2025-01-01T10:00:00.250+00:00", time.Date(2025, 1, 1, 10, 0, 0, 250_000_000, time.UTC), true},
		{"no offset", "2025-01-01T10:00:00", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"space separator", "2025-01-01 10:00:00", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"minute precision", "2025-01-01T10:00", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"date only", "2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"unix seconds", "1735725600", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), true},
		{"fractional unix seconds", "1735725600.5", time.Date(2025, 1, 1, 10, 0, 0, 500_000_000, time.UTC), true},
		{"huge number", "1e300", time.Time{}, false},
		{"beyond year 9999", "253402300800", time.Time{}, false},
		{"negative huge number", "-1e19", time.Time{}, false},
		{"nan", "NaN", time.Time{}, false},
		{"infinity", "+Inf", time.Time{}, false},
		{"garbage", "yesterday-ish", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := weather.ParseTimestamp(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			}
		})
	}
}

func TestMeasurement_Accessors(t *testing.T) {
	m := weather.NewMeasurement("2025-01-01T10:00:00+00:00", weather.Float(15.2), weather.Int(0), weather.Float(101300))

	assert.Equal(t, "2025-01-01T10:00:00+00:00", m.Timestamp())
	assert.Equal(t, weather.Float(15.2), m.Temperature())
	assert.Equal(t, weather.Int(0), m.Humidity())
	assert.Equal(t, weather.Float(101300), m.Pressure())

	at, ok := m.Time()
	require.True(t, ok)
	assert.Equal(t, 10, at.Hour())

	key, ok := m.DateKey()
	require.True(t, ok)
	assert.Equal(t, "2025-01-01", key)

	assert.Equal(t, "01/01/2025 10:00", m.FormatTime())
	assert.Equal(t, "01/01/2025 10:00 - Temp: 15.2°C, Hum: N/A, Press: 1013.0hPa", m.String())
}

func TestMeasurement_UnparseableTime(t *testing.T) {
	m := weather.NewMeasurement("not-a-time", weather.NullFloat64{}, weather.NullInt{}, weather.NullFloat64{})

	_, ok := m.Time()
	assert.False(t, ok)
	_, ok = m.DateKey()
	assert.False(t, ok)
	assert.Equal(t, "not-a-time", m.FormatTime())
	assert.Equal(t, "not-a-time - Temp: N/A, Hum: N/A, Press: N/A", m.String())
}

func TestValidationError(t *testing.T) {
	err := error(&weather.ValidationError{Field: "url"})

	assert.True(t, errors.Is(err, weather.ErrValidation))
	assert.Equal(t, "url is required", err.Error())

	var verr *weather.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "url", verr.Field)
}

func TestNullValues_Any(t *testing.T) {
	assert.Nil(t, weather.NullFloat64{}.Any())
	assert.Equal(t, 1.5, weather.Float(1.5).Any())
	assert.Nil(t, weather.NullInt{}.Any())
	assert.Equal(t, 42, weather.Int(42).Any())
}

func TestMeasurement_Display(t *testing.T) {
	base := weather.NewMeasurement("2025-01-01T10:00:00Z", weather.NullFloat64{}, weather.Int(40), weather.NullFloat64{})
	m := base.WithUnparsed(weather.FieldTemperature, "n/d")

	assert.Equal(t, "n/d", m.Display(weather.FieldTemperature))
	assert.Equal(t, 40, m.Display(weather.FieldHumidity))
	assert.Nil(t, m.Display(weather.FieldPressure))
	assert.Equal(t, "2025-01-01T10:00:00Z", m.Display(weather.FieldTime))
	assert.Equal(t, "01/01/2025 10:00 - Temp: n/d, Hum: 40%, Press: N/A", m.String())

	_, ok := base.Unparsed(weather.FieldTemperature)
	assert.False(t, ok, "WithUnparsed returns a copy")
}
