package weather

import (
	"fmt"
	"slices"
	"sync"
)

// Country is a top-level grouping of cities.
type Country struct {
	ID   string
	Name string
}

// City belongs to a country. Country is a non-owning reference and may be nil.
type City struct {
	ID      string
	Name    string
	Country *Country
}

// Station is a weather station with its source URL and latest measurements.
// Name uniqueness is enforced by the registry, not by Station. The
// identity fields are fixed once built; only the measurement methods
// mutate, and they are safe for concurrent use.
type Station struct {
	ID   string
	Name string
	URL  string
	City *City

	mu           sync.RWMutex
	measurements []Measurement
}

// CityName returns the name of the station's city, or "" when unknown.
func (s *Station) CityName() string {
	if s.City == nil {
		return ""
	}
	return s.City.Name
}

// CountryName returns the name of the station's country, or "" when unknown.
func (s *Station) CountryName() string {
	if s.City == nil || s.City.Country == nil {
		return ""
	}
	return s.City.Country.Name
}

// FullName returns "City - Name", or just the name when the city is unknown.
func (s *Station) FullName() string {
	if city := s.CityName(); city != "" {
		return city + " - " + s.Name
	}
	return s.Name
}

// Measurements returns a copy of the station's measurements in stored order.
func (s *Station) Measurements() []Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.measurements)
}

// MeasurementCount returns the number of stored measurements.
func (s *Station) MeasurementCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.measurements)
}

// AddMeasurement appends a single measurement.
func (s *Station) AddMeasurement(m Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measurements = append(s.measurements, m)
}

// ReplaceMeasurements swaps the whole measurement list. Old and new readings are never merged.
func (s *Station) ReplaceMeasurements(ms []Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measurements = slices.Clone(ms)
}

// ClearMeasurements drops all measurements.
func (s *Station) ClearMeasurements() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measurements = nil
}

// SortedMeasurements returns the timed measurements in ascending time order.
func (s *Station) SortedMeasurements() []Measurement {
	ms := s.Measurements()
	timed := make([]Measurement, 0, len(ms))
	for _, m := range ms {
		if _, ok := m.Time(); ok {
			timed = append(timed, m)
		}
	}
	sortByTime(timed)
	return timed
}

// MeasurementsByDay groups the station's measurements by calendar day.
func (s *Station) MeasurementsByDay() []Day {
	return GroupByDay(s.Measurements())
}

func (s *Station) String() string {
	return fmt.Sprintf("Station(%s, %d measurements)", s.FullName(), s.MeasurementCount())
}
