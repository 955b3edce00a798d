package reading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/weather"
)

// ParseMode selects what happens to a reading whose fields fail numeric coercion.
type ParseMode int

const (
	// ParseLenient keeps the reading; the offending field is absent from the
	// typed accessors and its raw text is shown instead.
	ParseLenient ParseMode = iota
	// ParseStrict rejects the whole reading.
	ParseStrict
)

// ParseModeFromString maps "strict" / "lenient" to a ParseMode.
func ParseModeFromString(s string) (ParseMode, error) {
	switch s {
	case "", "lenient":
		return ParseLenient, nil
	case "strict":
		return ParseStrict, nil
	}
	return ParseLenient, fmt.Errorf("invalid parse mode %q (allowed: lenient, strict)", s)
}

func (m ParseMode) String() string {
	if m == ParseStrict {
		return "strict"
	}
	return "lenient"
}

// ErrNotObject is returned for readings that are not JSON objects.
var ErrNotObject = errors.New("reading is not an object")

// FieldError reports a field value that could not be coerced.
type FieldError struct {
	Field weather.Field
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: cannot use %v: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Config holds configuration for the normalizer.
type Config struct {
	// Mode is the coercion failure policy (default: lenient).
	Mode ParseMode

	// Logger receives debug output about skipped readings and fields.
	Logger zerolog.Logger
}

// Normalizer maps raw readings with heterogeneous keys onto Measurements.
type Normalizer struct {
	mode   ParseMode
	logger zerolog.Logger
}

// NewNormalizer creates a new Normalizer.
func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{
		mode:   cfg.Mode,
		logger: cfg.Logger,
	}
}

// Mode returns the configured parse mode.
func (n *Normalizer) Mode() ParseMode {
	return n.mode
}

// Normalize resolves the canonical fields of one raw reading.
func (n *Normalizer) Normalize(raw any) (weather.Measurement, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return weather.Measurement{}, fmt.Errorf("%w: got %T", ErrNotObject, raw)
	}

	var timestamp string
	if v, ok := weather.FieldTime.Resolve(fields); ok {
		timestamp = timestampString(v)
	}

	var (
		temperature weather.NullFloat64
		humidity    weather.NullInt
		pressure    weather.NullFloat64
	)
	unparsed := make(map[weather.Field]any)

	if v, ok := weather.FieldTemperature.Resolve(fields); ok {
		f, err := weather.ToFloat(v)
		if err != nil {
			if ferr := n.coercionFailed(weather.FieldTemperature, v, err); ferr != nil {
				return weather.Measurement{}, ferr
			}
			unparsed[weather.FieldTemperature] = v
		} else {
			temperature = weather.Float(f)
		}
	}

	if v, ok := weather.FieldHumidity.Resolve(fields); ok {
		i, err := weather.ToInt(v)
		if err != nil {
			if ferr := n.coercionFailed(weather.FieldHumidity, v, err); ferr != nil {
				return weather.Measurement{}, ferr
			}
			unparsed[weather.FieldHumidity] = v
		} else {
			humidity = weather.Int(i)
		}
	}

	if v, ok := weather.FieldPressure.Resolve(fields); ok {
		f, err := weather.ToFloat(v)
		if err != nil {
			if ferr := n.coercionFailed(weather.FieldPressure, v, err); ferr != nil {
				return weather.Measurement{}, ferr
			}
			unparsed[weather.FieldPressure] = v
		} else {
			pressure = weather.Float(f)
		}
	}

	m := weather.NewMeasurement(timestamp, temperature, humidity, pressure)
	for _, field := range []weather.Field{weather.FieldTemperature, weather.FieldHumidity, weather.FieldPressure} {
		if v, ok := unparsed[field]; ok {
			m = m.WithUnparsed(field, fmt.Sprint(v))
		}
	}
	return m, nil
}

// coercionFailed applies the parse mode. It returns a non-nil error only in strict mode.
func (n *Normalizer) coercionFailed(field weather.Field, value any, err error) error {
	if n.mode == ParseStrict {
		return &FieldError{Field: field, Value: value, Err: err}
	}
	n.logger.Debug().
		Str("field", string(field)).
		Interface("value", value).
		Msg("keeping raw text of field that failed coercion")
	return nil
}

// Measurements extracts up to limit readings from a decoded document and
// normalizes them. Rejected readings are skipped. A limit <= 0 means no limit.
func (n *Normalizer) Measurements(decoded any, limit int) []weather.Measurement {
	readings := Extract(decoded)
	if limit > 0 && len(readings) > limit {
		readings = readings[:limit]
	}

	out := make([]weather.Measurement, 0, len(readings))
	for i, raw := range readings {
		m, err := n.Normalize(raw)
		if err != nil {
			n.logger.Debug().
				Err(err).
				Int("index", i).
				Str("mode", n.mode.String()).
				Msg("skipping reading")
			continue
		}
		out = append(out, m)
	}
	return out
}

func timestampString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return fmt.Sprint(v)
}
