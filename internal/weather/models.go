package weather

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

// Weather errors.
var (
	ErrStationUnavailable = errors.New("weather station unavailable")
	ErrValidation         = errors.New("validation failed")
)

// ValidationError reports a required field that was left empty.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NullFloat64 is a float that may be absent from a reading.
type NullFloat64 struct {
	Value    float64
	HasValue bool
}

// Float returns a present NullFloat64.
func Float(v float64) NullFloat64 {
	return NullFloat64{Value: v, HasValue: true}
}

// Any returns the value or nil when absent.
func (n NullFloat64) Any() any {
	if !n.HasValue {
		return nil
	}
	return n.Value
}

// NullInt is an integer that may be absent from a reading.
type NullInt struct {
	Value    int
	HasValue bool
}

// Int returns a present NullInt.
func Int(v int) NullInt {
	return NullInt{Value: v, HasValue: true}
}

// Any returns the value or nil when absent.
func (n NullInt) Any() any {
	if !n.HasValue {
		return nil
	}
	return n.Value
}

// Measurement is one timestamped station reading after normalization.
// It is immutable once constructed.
type Measurement struct {
	timestamp   string
	at          time.Time
	hasTime     bool
	temperature NullFloat64 // Celsius
	humidity    NullInt     // percent
	pressure    NullFloat64 // as received, Pa or hPa

	// unparsed keeps, per field, the raw text of a value that failed
	// numeric coercion. Never mutated after construction.
	unparsed map[Field]string
}

// NewMeasurement creates a Measurement and derives its parsed time.
func NewMeasurement(timestamp string, temperature NullFloat64, humidity NullInt, pressure NullFloat64) Measurement {
	at, ok := ParseTimestamp(timestamp)
	return Measurement{
		timestamp:   timestamp,
		at:          at,
		hasTime:     ok,
		temperature: temperature,
		humidity:    humidity,
		pressure:    pressure,
	}
}

// Timestamp returns the raw timestamp string.
func (m Measurement) Timestamp() string { return m.timestamp }

// Time returns the parsed timestamp. ok is false when the raw value could not be parsed.
func (m Measurement) Time() (t time.Time, ok bool) { return m.at, m.hasTime }

// Temperature returns the temperature in Celsius.
func (m Measurement) Temperature() NullFloat64 { return m.temperature }

// Humidity returns the relative humidity in percent.
func (m Measurement) Humidity() NullInt { return m.humidity }

// Pressure returns the pressure as received from the station.
func (m Measurement) Pressure() NullFloat64 { return m.pressure }

// WithUnparsed returns a copy of m that displays raw for field, whose value
// could not be coerced to a number. The typed accessor keeps reporting the
// field as absent.
func (m Measurement) WithUnparsed(field Field, raw string) Measurement {
	unparsed := make(map[Field]string, len(m.unparsed)+1)
	maps.Copy(unparsed, m.unparsed)
	unparsed[field] = raw
	m.unparsed = unparsed
	return m
}

// Unparsed returns the raw text kept for field by WithUnparsed.
func (m Measurement) Unparsed(field Field) (string, bool) {
	raw, ok := m.unparsed[field]
	return raw, ok
}

// Display returns the value FormatValue should render for field: the typed
// value when present, else the unparsed raw text, else nil.
func (m Measurement) Display(field Field) any {
	var v any
	switch field {
	case FieldTime:
		return m.timestamp
	case FieldTemperature:
		v = m.temperature.Any()
	case FieldHumidity:
		v = m.humidity.Any()
	case FieldPressure:
		v = m.pressure.Any()
	}
	if v == nil {
		if raw, ok := m.unparsed[field]; ok {
			return raw
		}
	}
	return v
}

// DateKey returns the YYYY-MM-DD day of the measurement.
func (m Measurement) DateKey() (string, bool) {
	if !m.hasTime {
		return "", false
	}
	return m.at.Format(time.DateOnly), true
}

// FormatTime formats the timestamp for display, falling back to the raw string.
func (m Measurement) FormatTime() string {
	if !m.hasTime {
		return m.timestamp
	}
	return m.at.Format("02/01/2006 15:04")
}

func (m Measurement) String() string {
	return fmt.Sprintf("%s - Temp: %s, Hum: %s, Press: %s",
		m.FormatTime(),
		FormatValue(FieldTemperature, m.Display(FieldTemperature)),
		FormatValue(FieldHumidity, m.Display(FieldHumidity)),
		FormatValue(FieldPressure, m.Display(FieldPressure)),
	)
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// Unix seconds accepted by ParseTimestamp: years 1 through 9999.
const (
	minUnixSeconds = -62135596800
	maxUnixSeconds = 253402300799
)

// ParseTimestamp parses ISO-8601 style timestamps leniently.
// Purely numeric values are read as Unix seconds; values outside years
// 1 to 9999 (and NaN or infinities) are unparseable.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if !(secs >= minUnixSeconds && secs <= maxUnixSeconds) {
			return time.Time{}, false
		}
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC(), true
	}
	return time.Time{}, false
}
