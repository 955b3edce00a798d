package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteoboard/meteoboard/internal/logging"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Service: "meteo-api", Version: "1.2.3", Level: "warn", Output: &buf})

	log.Info().Msg("hidden")
	log.Warn().Str("station", "Montaudran").Msg("refresh failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "meteo-api", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "Montaudran", entry["station"])
	assert.Contains(t, entry, "time")
}

func TestNew_Development(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Development: true, Output: &buf})

	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNew_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "loud", Output: &buf})

	log.Debug().Msg("debug")
	assert.Empty(t, buf.String())
	log.Info().Msg("info")
	assert.NotEmpty(t, buf.String())
}
