package stationconfig

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/weather"
)

// Store errors.
var (
	ErrDuplicateStation = errors.New("station name already exists")
	ErrUnknownCountry   = errors.New("unknown country")
	ErrNotLoaded        = errors.New("configuration not loaded")
)

// Backend reads and writes the whole document. Read returns a nil document
// when nothing has been persisted yet.
type Backend interface {
	Read(ctx context.Context) (*Document, error)
	Write(ctx context.Context, doc *Document) error
}

// StationEntry is a station joined with its city and country names.
type StationEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	City      string `json:"city"`
	CityID    string `json:"city_id"`
	Country   string `json:"country"`
	CountryID string `json:"country_id"`
}

// CityEntry is a city joined with its country name.
type CityEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CountryID string `json:"country_id"`
	Country   string `json:"country"`
}

// StoreConfig holds configuration for the store.
type StoreConfig struct {
	Backend Backend
	Logger  zerolog.Logger

	// Defaults builds the document written when the backend is empty.
	// Default: DefaultDocument
	Defaults func() *Document
}

// Store keeps the committed configuration in memory and writes every
// mutation through to its backend. A mutation is only committed once the
// backend write succeeds.
type Store struct {
	backend  Backend
	logger   zerolog.Logger
	defaults func() *Document

	mu  sync.RWMutex
	doc *Document
}

// NewStore creates a new Store. Call Load before use.
func NewStore(cfg StoreConfig) *Store {
	defaults := cfg.Defaults
	if defaults == nil {
		defaults = DefaultDocument
	}
	return &Store{
		backend:  cfg.Backend,
		logger:   cfg.Logger,
		defaults: defaults,
	}
}

// Load reads the document from the backend, seeding it with the defaults
// when the backend is empty.
func (s *Store) Load(ctx context.Context) error {
	doc, err := s.backend.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}

	if doc == nil {
		doc = s.defaults()
		if err := s.backend.Write(ctx, doc); err != nil {
			return fmt.Errorf("writing default configuration: %w", err)
		}
		s.logger.Info().
			Int("stations", len(doc.Stations)).
			Msg("created default station configuration")
	}

	s.mu.Lock()
	s.doc = doc.Clone()
	s.mu.Unlock()
	return nil
}

// Document returns a copy of the committed document.
func (s *Store) Document() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// ListAllStations returns every station in persisted order.
func (s *Store) ListAllStations() []StationEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil
	}

	entries := make([]StationEntry, 0, len(s.doc.Stations))
	for _, st := range s.doc.Stations {
		entry := StationEntry{ID: st.ID, Name: st.Name, URL: st.URL, CityID: st.CityID}
		if i, ok := s.doc.cityByID(st.CityID); ok {
			city := s.doc.Cities[i]
			entry.City = city.Name
			entry.CountryID = city.CountryID
			if j, ok := s.doc.countryByID(city.CountryID); ok {
				entry.Country = s.doc.Countries[j].Name
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// ListCountries returns every country in persisted order.
func (s *Store) ListCountries() []CountryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil
	}
	return slices.Clone(s.doc.Countries)
}

// ListCities returns the cities of countryID, or all cities when it is empty.
func (s *Store) ListCities(countryID string) []CityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil
	}

	var entries []CityEntry
	for _, c := range s.doc.Cities {
		if countryID != "" && c.CountryID != countryID {
			continue
		}
		entry := CityEntry{ID: c.ID, Name: c.Name, CountryID: c.CountryID}
		if i, ok := s.doc.countryByID(c.CountryID); ok {
			entry.Country = s.doc.Countries[i].Name
		}
		entries = append(entries, entry)
	}
	return entries
}

// AddStation adds a station, creating its country and city by name when
// missing. Station names are unique across the whole document.
func (s *Store) AddStation(ctx context.Context, country, city, name, url string) (StationEntry, error) {
	if err := requireFields(map[string]string{"country": country, "city": city, "name": name, "url": url}); err != nil {
		return StationEntry{}, err
	}

	var entry StationEntry
	err := s.mutate(ctx, func(doc *Document) (bool, error) {
		if _, exists := doc.stationByName(name); exists {
			return false, fmt.Errorf("%w: %q", ErrDuplicateStation, name)
		}

		ci, ok := doc.countryByName(country)
		if !ok {
			doc.Countries = append(doc.Countries, CountryRecord{ID: uuid.NewString(), Name: country})
			ci = len(doc.Countries) - 1
		}
		countryRec := doc.Countries[ci]

		vi, ok := doc.cityByName(countryRec.ID, city)
		if !ok {
			doc.Cities = append(doc.Cities, CityRecord{ID: uuid.NewString(), Name: city, CountryID: countryRec.ID})
			vi = len(doc.Cities) - 1
		}
		cityRec := doc.Cities[vi]

		st := StationRecord{ID: uuid.NewString(), Name: name, CityID: cityRec.ID, URL: url}
		doc.Stations = append(doc.Stations, st)

		entry = StationEntry{
			ID:        st.ID,
			Name:      st.Name,
			URL:       st.URL,
			City:      cityRec.Name,
			CityID:    cityRec.ID,
			Country:   countryRec.Name,
			CountryID: countryRec.ID,
		}
		return true, nil
	})
	return entry, err
}

// UpdateStationURL changes the URL of the named station. It reports false
// when no station has that name.
func (s *Store) UpdateStationURL(ctx context.Context, name, url string) (bool, error) {
	if err := requireFields(map[string]string{"url": url}); err != nil {
		return false, err
	}
	return s.mutateFound(ctx, func(doc *Document) (bool, error) {
		i, ok := doc.stationByName(name)
		if !ok {
			return false, nil
		}
		doc.Stations[i].URL = url
		return true, nil
	})
}

// RenameStation renames a station. Renaming onto another station's name
// fails with ErrDuplicateStation.
func (s *Store) RenameStation(ctx context.Context, name, newName string) (bool, error) {
	if err := requireFields(map[string]string{"name": newName}); err != nil {
		return false, err
	}
	return s.mutateFound(ctx, func(doc *Document) (bool, error) {
		i, ok := doc.stationByName(name)
		if !ok {
			return false, nil
		}
		if newName == name {
			return true, nil
		}
		if _, exists := doc.stationByName(newName); exists {
			return false, fmt.Errorf("%w: %q", ErrDuplicateStation, newName)
		}
		doc.Stations[i].Name = newName
		return true, nil
	})
}

// RemoveStation deletes the named station.
func (s *Store) RemoveStation(ctx context.Context, name string) (bool, error) {
	return s.mutateFound(ctx, func(doc *Document) (bool, error) {
		i, ok := doc.stationByName(name)
		if !ok {
			return false, nil
		}
		doc.Stations = slices.Delete(doc.Stations, i, i+1)
		return true, nil
	})
}

// AddCountry adds a country, returning the existing one when the name is taken.
func (s *Store) AddCountry(ctx context.Context, name string) (CountryRecord, error) {
	if err := requireFields(map[string]string{"name": name}); err != nil {
		return CountryRecord{}, err
	}

	var rec CountryRecord
	err := s.mutate(ctx, func(doc *Document) (bool, error) {
		if i, ok := doc.countryByName(name); ok {
			rec = doc.Countries[i]
			return false, nil
		}
		rec = CountryRecord{ID: uuid.NewString(), Name: name}
		doc.Countries = append(doc.Countries, rec)
		return true, nil
	})
	return rec, err
}

// AddCity adds a city to an existing country, returning the existing city
// when the name is taken within that country.
func (s *Store) AddCity(ctx context.Context, countryID, name string) (CityRecord, error) {
	if err := requireFields(map[string]string{"name": name}); err != nil {
		return CityRecord{}, err
	}

	var rec CityRecord
	err := s.mutate(ctx, func(doc *Document) (bool, error) {
		if _, ok := doc.countryByID(countryID); !ok {
			return false, fmt.Errorf("%w: %q", ErrUnknownCountry, countryID)
		}
		if i, ok := doc.cityByName(countryID, name); ok {
			rec = doc.Cities[i]
			return false, nil
		}
		rec = CityRecord{ID: uuid.NewString(), Name: name, CountryID: countryID}
		doc.Cities = append(doc.Cities, rec)
		return true, nil
	})
	return rec, err
}

// RemoveCity deletes a city and its stations.
func (s *Store) RemoveCity(ctx context.Context, id string) (bool, error) {
	return s.mutateFound(ctx, func(doc *Document) (bool, error) {
		if _, ok := doc.cityByID(id); !ok {
			return false, nil
		}
		doc.removeCity(id)
		return true, nil
	})
}

// RemoveCountry deletes a country with its cities and their stations.
func (s *Store) RemoveCountry(ctx context.Context, id string) (bool, error) {
	return s.mutateFound(ctx, func(doc *Document) (bool, error) {
		i, ok := doc.countryByID(id)
		if !ok {
			return false, nil
		}
		for _, c := range slices.Clone(doc.Cities) {
			if c.CountryID == id {
				doc.removeCity(c.ID)
			}
		}
		doc.Countries = slices.Delete(doc.Countries, i, i+1)
		return true, nil
	})
}

// mutate applies fn to a copy of the document and commits it once the
// backend accepted it. fn reports whether anything changed.
func (s *Store) mutate(ctx context.Context, fn func(doc *Document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return ErrNotLoaded
	}

	next := s.doc.Clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return err
	}

	if err := s.backend.Write(ctx, next); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist station configuration")
		return fmt.Errorf("writing configuration: %w", err)
	}
	s.doc = next
	return nil
}

// mutateFound is mutate for operations that report whether their target existed.
func (s *Store) mutateFound(ctx context.Context, fn func(doc *Document) (bool, error)) (bool, error) {
	var found bool
	err := s.mutate(ctx, func(doc *Document) (bool, error) {
		var err error
		found, err = fn(doc)
		return found, err
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func requireFields(fields map[string]string) error {
	for _, name := range []string{"country", "city", "name", "url"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			return &weather.ValidationError{Field: name}
		}
	}
	return nil
}
