// Package registry keeps the in-memory station list consistent with the
// persisted configuration and refreshes station measurements.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/meteoboard/meteoboard/internal/stationconfig"
	"github.com/meteoboard/meteoboard/internal/weather"
	"github.com/meteoboard/meteoboard/internal/weather/reading"
)

const (
	meterName = "github.com/meteoboard/meteoboard/internal/registry"

	// DefaultLimit is how many readings a refresh keeps.
	DefaultLimit = 1000

	// DefaultTimeout bounds a single station refresh.
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrRefreshFailed wraps every refresh failure.
	ErrRefreshFailed = errors.New("refresh failed")

	// ErrURLCheckFailed wraps CheckURL failures.
	ErrURLCheckFailed = errors.New("url check failed")
)

// Fetcher retrieves the decoded JSON payload of a station URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (any, error)
}

// ServiceConfig holds configuration for the registry service.
type ServiceConfig struct {
	Store      *stationconfig.Store
	Fetcher    Fetcher
	Normalizer *reading.Normalizer
	Logger     zerolog.Logger

	// Limit caps the readings kept per refresh (default: 1000).
	Limit int

	// Timeout bounds each station refresh (default: 10s).
	Timeout time.Duration
}

// Service owns the station list. Every structural change goes through the
// store first and is followed by a full rebuild of the list.
type Service struct {
	store      *stationconfig.Store
	fetcher    Fetcher
	normalizer *reading.Normalizer
	logger     zerolog.Logger
	limit      int
	timeout    time.Duration

	mu       sync.RWMutex
	stations StationList

	// refreshMu keeps refreshes sequential.
	refreshMu sync.Mutex

	refreshTotal    metric.Int64Counter
	refreshFailures metric.Int64Counter
	refreshDuration metric.Float64Histogram
}

// NewService creates a new registry service. Call Load before use.
func NewService(cfg ServiceConfig) (*Service, error) {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	normalizer := cfg.Normalizer
	if normalizer == nil {
		normalizer = reading.NewNormalizer(reading.Config{Logger: cfg.Logger})
	}

	meter := otel.Meter(meterName)

	refreshTotal, err := meter.Int64Counter(
		"meteo.refresh.total",
		metric.WithDescription("Number of station refreshes"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, err
	}

	refreshFailures, err := meter.Int64Counter(
		"meteo.refresh.failures",
		metric.WithDescription("Number of failed station refreshes"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, err
	}

	refreshDuration, err := meter.Float64Histogram(
		"meteo.refresh.duration",
		metric.WithDescription("Duration of station refreshes in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:           cfg.Store,
		fetcher:         cfg.Fetcher,
		normalizer:      normalizer,
		logger:          cfg.Logger,
		limit:           limit,
		timeout:         timeout,
		refreshTotal:    refreshTotal,
		refreshFailures: refreshFailures,
		refreshDuration: refreshDuration,
	}, nil
}

// Load reads the persisted configuration and builds the station list.
func (s *Service) Load(ctx context.Context) error {
	if err := s.store.Load(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild()
	return nil
}

// Reload rebuilds the station list from the store's committed document.
func (s *Service) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild()
}

// rebuild replaces the list with fresh Station objects. Measurements carry
// over to a rebuilt station when both its ID and URL are unchanged.
// Caller holds s.mu.
func (s *Service) rebuild() {
	previous := make(map[string]*weather.Station, s.stations.Len())
	for _, st := range s.stations.All() {
		previous[st.ID] = st
	}

	countries := make(map[string]*weather.Country)
	cities := make(map[string]*weather.City)
	builder := weather.NewStationBuilder()

	s.stations.Clear()
	for _, entry := range s.store.ListAllStations() {
		country, ok := countries[entry.CountryID]
		if !ok && entry.CountryID != "" {
			country = &weather.Country{ID: entry.CountryID, Name: entry.Country}
			countries[entry.CountryID] = country
		}
		city, ok := cities[entry.CityID]
		if !ok && entry.CityID != "" {
			city = &weather.City{ID: entry.CityID, Name: entry.City, Country: country}
			cities[entry.CityID] = city
		}

		st, err := builder.Reset().
			ID(entry.ID).
			Name(entry.Name).
			URL(entry.URL).
			City(city).
			Build()
		if err != nil {
			s.logger.Warn().Err(err).Str("station_id", entry.ID).Msg("skipping invalid station in configuration")
			continue
		}

		if old, ok := previous[entry.ID]; ok && old.URL == entry.URL {
			st.ReplaceMeasurements(old.Measurements())
		}
		s.stations.Append(st)
	}
}

// Add persists a new station and reloads. Every field is required.
func (s *Service) Add(ctx context.Context, country, city, name, url string) (*weather.Station, error) {
	for _, f := range []struct{ field, value string }{
		{"country", country}, {"city", city}, {"name", name}, {"url", url},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, &weather.ValidationError{Field: f.field}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.AddStation(ctx, country, city, name, url); err != nil {
		return nil, err
	}
	s.rebuild()

	st, _ := s.stations.FindByName(name)
	s.logger.Info().Str("station", name).Str("city", city).Msg("station added")
	return st, nil
}

// UpdateURL changes a station's URL. It reports false for unknown names.
func (s *Service) UpdateURL(ctx context.Context, name, url string) (bool, error) {
	if strings.TrimSpace(url) == "" {
		return false, &weather.ValidationError{Field: "url"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.store.UpdateStationURL(ctx, name, url)
	if err != nil || !ok {
		return false, err
	}
	s.rebuild()
	return true, nil
}

// Rename changes a station's name. It reports false for unknown names.
func (s *Service) Rename(ctx context.Context, name, newName string) (bool, error) {
	if strings.TrimSpace(newName) == "" {
		return false, &weather.ValidationError{Field: "name"}
	}
	return s.mutate(func() (bool, error) { return s.store.RenameStation(ctx, name, newName) })
}

// Remove deletes a station. It reports false for unknown names.
func (s *Service) Remove(ctx context.Context, name string) (bool, error) {
	return s.mutate(func() (bool, error) { return s.store.RemoveStation(ctx, name) })
}

// RemoveCity deletes a city and its stations.
func (s *Service) RemoveCity(ctx context.Context, id string) (bool, error) {
	return s.mutate(func() (bool, error) { return s.store.RemoveCity(ctx, id) })
}

// RemoveCountry deletes a country with its cities and stations.
func (s *Service) RemoveCountry(ctx context.Context, id string) (bool, error) {
	return s.mutate(func() (bool, error) { return s.store.RemoveCountry(ctx, id) })
}

func (s *Service) mutate(fn func() (bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := fn()
	if err != nil || !ok {
		return false, err
	}
	s.rebuild()
	return true, nil
}

// AddCountry persists a country, returning the existing record when the
// name is already taken. No station changes, so the registry is not rebuilt.
func (s *Service) AddCountry(ctx context.Context, name string) (stationconfig.CountryRecord, error) {
	return s.store.AddCountry(ctx, name)
}

// AddCity persists a city under an existing country.
func (s *Service) AddCity(ctx context.Context, countryID, name string) (stationconfig.CityRecord, error) {
	return s.store.AddCity(ctx, countryID, name)
}

// Countries lists the persisted countries.
func (s *Service) Countries() []stationconfig.CountryRecord {
	return s.store.ListCountries()
}

// Cities lists the persisted cities of a country, or all when countryID is empty.
func (s *Service) Cities(countryID string) []stationconfig.CityEntry {
	return s.store.ListCities(countryID)
}

// Stations returns the stations in registry order.
func (s *Service) Stations() []*weather.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stations.Slice()
}

// Station returns the station at index i, or nil.
func (s *Service) Station(i int) *weather.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stations.Get(i)
}

// FindByName returns the station with the exact name.
func (s *Service) FindByName(name string) (*weather.Station, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stations.FindByName(name)
}

// Len returns the number of stations.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stations.Len()
}

// Refresh replaces the station's measurements with a fresh fetch. The
// previous measurements are cleared first and stay cleared on failure.
// It returns the number of measurements stored.
func (s *Service) Refresh(ctx context.Context, st *weather.Station) (n int, err error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refresh(ctx, st)
}

func (s *Service) refresh(ctx context.Context, st *weather.Station) (n int, err error) {
	start := time.Now()

	url := st.URL
	st.ClearMeasurements()

	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %s: panic: %v", ErrRefreshFailed, st.Name, r)
		}
		s.record(ctx, st, time.Since(start), n, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	decoded, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrRefreshFailed, st.Name, err)
	}

	ms := s.normalizer.Measurements(decoded, s.limit)
	st.ReplaceMeasurements(ms)
	s.deliver(st, url, ms)
	return len(ms), nil
}

// deliver stores ms on the station that now holds st's ID when a rebuild
// replaced st during the fetch. A station whose URL changed meanwhile
// keeps its own (empty) measurements.
func (s *Service) deliver(st *weather.Station, url string, ms []weather.Measurement) {
	s.mu.RLock()
	current, ok := s.stations.FindByID(st.ID)
	s.mu.RUnlock()
	if ok && current != st && current.URL == url {
		current.ReplaceMeasurements(ms)
	}
}

// CheckURL fetches url once and reports whether it answers with a JSON
// document. Nothing is stored.
func (s *Service) CheckURL(ctx context.Context, url string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrURLCheckFailed, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	decoded, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrURLCheckFailed, err)
	}
	switch decoded.(type) {
	case map[string]any, []any:
		return nil
	}
	return fmt.Errorf("%w: unexpected payload %T", ErrURLCheckFailed, decoded)
}

func (s *Service) record(ctx context.Context, st *weather.Station, d time.Duration, n int, err error) {
	attrs := metric.WithAttributes(attribute.String("station", st.Name))
	ctx = context.WithoutCancel(ctx)

	s.refreshTotal.Add(ctx, 1, attrs)
	s.refreshDuration.Record(ctx, d.Seconds(), attrs)

	if err != nil {
		s.refreshFailures.Add(ctx, 1, attrs)
		s.logger.Warn().
			Err(err).
			Str("station", st.Name).
			Dur("duration", d).
			Msg("station refresh failed")
		return
	}
	s.logger.Debug().
		Str("station", st.Name).
		Int("measurements", n).
		Dur("duration", d).
		Msg("station refreshed")
}

// StationResult is the outcome of one station in a RefreshAll run.
type StationResult struct {
	Station      string `json:"station"`
	Measurements int    `json:"measurements"`
	Error        string `json:"error,omitempty"`
}

// RefreshSummary reports a RefreshAll run.
type RefreshSummary struct {
	StartTime  time.Time       `json:"start_time"`
	Duration   time.Duration   `json:"duration"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Results    []StationResult `json:"results"`
}

// RefreshAll refreshes every station sequentially in registry order. One
// station failing does not stop the others.
func (s *Service) RefreshAll(ctx context.Context) *RefreshSummary {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	summary := &RefreshSummary{StartTime: time.Now()}
	for _, st := range s.Stations() {
		if ctx.Err() != nil {
			break
		}
		n, err := s.refresh(ctx, st)
		res := StationResult{Station: st.Name, Measurements: n}
		if err != nil {
			res.Error = err.Error()
			summary.Failed++
		} else {
			summary.Successful++
		}
		summary.Results = append(summary.Results, res)
	}
	summary.Duration = time.Since(summary.StartTime)

	s.logger.Info().
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("refreshed all stations")
	return summary
}
