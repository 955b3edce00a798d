package weather

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field identifies a canonical measurement field.
type Field string

const (
	FieldTime        Field = "time"
	FieldTemperature Field = "temperature"
	FieldHumidity    Field = "humidity"
	FieldPressure    Field = "pressure"
)

// MissingValue is displayed for absent or sentinel values.
const MissingValue = "N/A"

// PascalThreshold is the magnitude above which a pressure is taken to be in pascals.
const PascalThreshold = 2000

// Alias keys per field, in lookup priority order.
var fieldAliases = map[Field][]string{
	FieldTime:        {"heure_de_paris", "time", "date", "datetime", "timestamp"},
	FieldTemperature: {"temperature_en_degre_c", "temperature", "temp_c", "temp"},
	FieldHumidity:    {"humidite", "humidity", "hum"},
	FieldPressure:    {"pression", "pressure", "press"},
}

// Fields lists the canonical fields in display order.
var Fields = []Field{FieldTime, FieldTemperature, FieldHumidity, FieldPressure}

var errNotNumeric = errors.New("value is not numeric")

// Aliases returns the raw keys that map to f, in priority order.
func (f Field) Aliases() []string {
	return fieldAliases[f]
}

// Resolve returns the first non-nil value among the aliases of f.
func (f Field) Resolve(raw map[string]any) (any, bool) {
	for _, key := range fieldAliases[f] {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ParseField maps a canonical name or any alias to its Field.
func ParseField(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range Fields {
		if string(f) == name {
			return f, true
		}
		for _, alias := range fieldAliases[f] {
			if alias == name {
				return f, true
			}
		}
	}
	return "", false
}

// IsMissing reports whether value means "no data" for the field.
// Values that cannot be coerced to a number are treated as present.
func IsMissing(field Field, value any) bool {
	if value == nil {
		return true
	}
	switch field {
	case FieldHumidity:
		v, err := ToInt(value)
		if err != nil {
			return false
		}
		return v == 0 || v < 0 || v > 100
	case FieldTemperature:
		v, err := ToFloat(value)
		if err != nil {
			return false
		}
		// -50 is the sentinel emitted by the Toulouse stations; it dominates the -100 bound.
		return v <= -50 || v < -100 || v > 60
	case FieldPressure:
		v, err := ToFloat(value)
		if err != nil {
			return false
		}
		return v <= 0
	}
	return false
}

// NormalizePressure converts a pressure to hPa with one decimal place.
// Values above PascalThreshold are assumed to be pascals.
func NormalizePressure(value any) string {
	v, err := ToFloat(value)
	if err != nil {
		return rawString(value)
	}
	return strconv.FormatFloat(Hectopascals(v), 'f', 1, 64)
}

// Hectopascals returns v in hPa, treating values above PascalThreshold as pascals.
func Hectopascals(v float64) float64 {
	if v > PascalThreshold {
		return v / 100
	}
	return v
}

// FormatValue renders a value for display in the measurement grid.
// Coercion failures fall back to the raw string form.
func FormatValue(field Field, value any) string {
	if IsMissing(field, value) {
		return MissingValue
	}

	switch field {
	case FieldTemperature:
		v, err := ToFloat(value)
		if err != nil {
			return rawString(value)
		}
		return strconv.FormatFloat(v, 'f', 1, 64) + "°C"
	case FieldHumidity:
		v, err := ToInt(value)
		if err != nil {
			return rawString(value)
		}
		return strconv.Itoa(v) + "%"
	case FieldPressure:
		if _, err := ToFloat(value); err != nil {
			return rawString(value)
		}
		return NormalizePressure(value) + "hPa"
	}
	return rawString(value)
}

// ToFloat coerces a decoded JSON value to float64.
func ToFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errNotNumeric, v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T", errNotNumeric, value)
}

// ToInt coerces a decoded JSON value to int. Floats are truncated toward zero;
// strings must hold an integer literal.
func ToInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %v", errNotNumeric, v)
		}
		return int(v), nil
	case float32:
		return ToInt(float64(v))
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return ToInt(f)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errNotNumeric, v)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %T", errNotNumeric, value)
}

func rawString(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
