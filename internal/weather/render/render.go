// Package render prints measurements as day-grouped fixed-width grids.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/weather"
	"github.com/meteoboard/meteoboard/internal/weather/reading"
)

// Layout constants.
const (
	DefaultWidth = 80
	DefaultLimit = 1000

	// CellWidth is the right-aligned width of one value cell.
	CellWidth = 12
	// ColumnWidth is a cell plus its separating space.
	ColumnWidth = CellWidth + 1
	// LabelWidth is the width of the row label column.
	LabelWidth = 15

	margin = 20
)

// Labels holds the user-facing strings of the grid.
type Labels struct {
	Hour        string
	Temperature string
	Pressure    string
	Humidity    string
	Date        string
	Station     string
	NoReadings  string
	NoData      string
}

// FrenchLabels are the default labels.
var FrenchLabels = Labels{
	Hour:        "Heure",
	Temperature: "Température",
	Pressure:    "Pression",
	Humidity:    "Humidité",
	Date:        "DATE",
	Station:     "Station",
	NoReadings:  "Aucune lecture trouvée dans la réponse. Réponse brute :",
	NoData:      "Aucune mesure disponible.",
}

// EnglishLabels translate FrenchLabels.
var EnglishLabels = Labels{
	Hour:        "Hour",
	Temperature: "Temperature",
	Pressure:    "Pressure",
	Humidity:    "Humidity",
	Date:        "DATE",
	Station:     "Station",
	NoReadings:  "No readings found in the response. Raw response:",
	NoData:      "No measurements available.",
}

// LabelsFor returns the labels for a language code, defaulting to French.
func LabelsFor(lang string) Labels {
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		return EnglishLabels
	}
	return FrenchLabels
}

// Renderer prints readings grouped by day. The zero value is usable.
type Renderer struct {
	// Width is the terminal width (default: 80).
	Width int

	// Limit caps how many readings are normalized (default: 1000).
	Limit int

	// Labels overrides the row labels (default: FrenchLabels).
	Labels Labels

	// Normalizer maps raw readings to measurements (default: lenient).
	Normalizer *reading.Normalizer
}

// MaxColumns returns how many measurement columns fit in width.
func MaxColumns(width int) int {
	return max(1, (width-margin)/ColumnWidth)
}

// Readings prints a decoded station response.
func (r *Renderer) Readings(w io.Writer, decoded any) error {
	var buf bytes.Buffer
	labels := r.labels()

	if total, ok := reading.TotalCount(decoded); ok {
		if n, err := weather.ToInt(total); err == nil {
			fmt.Fprintf(&buf, "Total count: %d\n\n", n)
		} else {
			fmt.Fprintf(&buf, "Total count: %v\n\n", total)
		}
	}

	if len(reading.Extract(decoded)) == 0 {
		buf.WriteString(labels.NoReadings + "\n")
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(decoded); err != nil {
			return fmt.Errorf("encoding raw response: %w", err)
		}
		_, err := w.Write(buf.Bytes())
		return err
	}

	ms := r.normalizer().Measurements(decoded, r.limit())
	r.writeDays(&buf, weather.GroupByDay(ms))

	_, err := w.Write(buf.Bytes())
	return err
}

// Station prints the stored measurements of a station under a header line.
func (r *Renderer) Station(w io.Writer, st *weather.Station) error {
	var buf bytes.Buffer
	labels := r.labels()

	fmt.Fprintf(&buf, "%s: %s", labels.Station, st.Name)
	if place := placeOf(st); place != "" {
		fmt.Fprintf(&buf, " (%s)", place)
	}
	buf.WriteString("\n\n")

	days := st.MeasurementsByDay()
	if len(days) == 0 {
		buf.WriteString(labels.NoData + "\n")
	} else {
		r.writeDays(&buf, days)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func (r *Renderer) writeDays(buf *bytes.Buffer, days []weather.Day) {
	width := r.width()
	columns := MaxColumns(width)
	labels := r.labels()
	banner := strings.Repeat("=", width)

	for _, day := range days {
		buf.WriteString(banner + "\n")
		buf.WriteString(center(labels.Date+": "+day.Label(), width) + "\n")
		buf.WriteString(banner + "\n")

		for start := 0; start < len(day.Measurements); start += columns {
			chunk := day.Measurements[start:min(start+columns, len(day.Measurements))]
			writeChunk(buf, labels, chunk)
			buf.WriteString("\n")
		}
	}
}

func writeChunk(buf *bytes.Buffer, labels Labels, chunk []weather.Measurement) {
	hours := make([]string, len(chunk))
	temps := make([]string, len(chunk))
	press := make([]string, len(chunk))
	hums := make([]string, len(chunk))

	for i, m := range chunk {
		at, _ := m.Time()
		hours[i] = at.Format("15:04")
		temps[i] = weather.FormatValue(weather.FieldTemperature, m.Display(weather.FieldTemperature))
		press[i] = weather.FormatValue(weather.FieldPressure, m.Display(weather.FieldPressure))
		hums[i] = weather.FormatValue(weather.FieldHumidity, m.Display(weather.FieldHumidity))
	}

	writeRow(buf, labels.Hour, hours)
	writeRow(buf, labels.Temperature, temps)
	writeRow(buf, labels.Pressure, press)
	writeRow(buf, labels.Humidity, hums)
}

func writeRow(buf *bytes.Buffer, label string, cells []string) {
	fmt.Fprintf(buf, "%-*s ", LabelWidth, label)
	for i, cell := range cells {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(buf, "%*s", CellWidth, clip(cell, CellWidth))
	}
	buf.WriteByte('\n')
}

// clip shortens s to width runes, marking the cut with an ellipsis.
func clip(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}

func center(s string, width int) string {
	pad := width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad/2) + s
}

func placeOf(st *weather.Station) string {
	city, country := st.CityName(), st.CountryName()
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	}
	return country
}

func (r *Renderer) width() int {
	if r.Width <= 0 {
		return DefaultWidth
	}
	return r.Width
}

func (r *Renderer) limit() int {
	if r.Limit <= 0 {
		return DefaultLimit
	}
	return r.Limit
}

func (r *Renderer) labels() Labels {
	if r.Labels == (Labels{}) {
		return FrenchLabels
	}
	return r.Labels
}

func (r *Renderer) normalizer() *reading.Normalizer {
	if r.Normalizer == nil {
		return reading.NewNormalizer(reading.Config{Logger: zerolog.Nop()})
	}
	return r.Normalizer
}
