// Package stationconfig persists the country / city / station hierarchy.
package stationconfig

import (
	"slices"

	"github.com/google/uuid"
)

// Default Toulouse Métropole open-data endpoints.
const (
	MontaudranURL = "https://data.toulouse-metropole.fr/api/explore/v2.1/catalog/datasets/12-station-meteo-toulouse-montaudran/records?select=heure_de_paris%2C%20humidite%2C%20temperature_en_degre_c%2C%20pression&order_by=heure_de_paris%20DESC&limit=100"
	CompansURL    = "https://data.toulouse-metropole.fr/api/explore/v2.1/catalog/datasets/stations-meteo-en-temps-reel-compans-caffarelli/records?select=heure_de_paris%2C%20humidite%2C%20temperature_en_degre_c%2C%20pression&order_by=heure_de_paris%20DESC&limit=100"
)

// CountryRecord is a persisted country.
type CountryRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CityRecord is a persisted city.
type CityRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CountryID string `json:"country_id"`
}

// StationRecord is a persisted station.
type StationRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	CityID string `json:"city_id"`
	URL    string `json:"url"`
}

// Document is the whole persisted configuration. List order is display order.
type Document struct {
	Countries []CountryRecord `json:"countries"`
	Cities    []CityRecord    `json:"cities"`
	Stations  []StationRecord `json:"stations"`
}

// DefaultDocument returns the configuration written on first start.
func DefaultDocument() *Document {
	france := CountryRecord{ID: uuid.NewString(), Name: "France"}
	toulouse := CityRecord{ID: uuid.NewString(), Name: "Toulouse", CountryID: france.ID}

	return &Document{
		Countries: []CountryRecord{france},
		Cities:    []CityRecord{toulouse},
		Stations: []StationRecord{
			{ID: uuid.NewString(), Name: "Toulouse - Montaudran", CityID: toulouse.ID, URL: MontaudranURL},
			{ID: uuid.NewString(), Name: "Toulouse - Compans-Caffarelli", CityID: toulouse.ID, URL: CompansURL},
		},
	}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return &Document{}
	}
	return &Document{
		Countries: slices.Clone(d.Countries),
		Cities:    slices.Clone(d.Cities),
		Stations:  slices.Clone(d.Stations),
	}
}

// IsEmpty reports whether the document holds nothing.
func (d *Document) IsEmpty() bool {
	return d == nil || (len(d.Countries) == 0 && len(d.Cities) == 0 && len(d.Stations) == 0)
}

func (d *Document) countryByID(id string) (int, bool) {
	i := slices.IndexFunc(d.Countries, func(c CountryRecord) bool { return c.ID == id })
	return i, i >= 0
}

func (d *Document) countryByName(name string) (int, bool) {
	i := slices.IndexFunc(d.Countries, func(c CountryRecord) bool { return c.Name == name })
	return i, i >= 0
}

func (d *Document) cityByID(id string) (int, bool) {
	i := slices.IndexFunc(d.Cities, func(c CityRecord) bool { return c.ID == id })
	return i, i >= 0
}

func (d *Document) cityByName(countryID, name string) (int, bool) {
	i := slices.IndexFunc(d.Cities, func(c CityRecord) bool {
		return c.CountryID == countryID && c.Name == name
	})
	return i, i >= 0
}

func (d *Document) stationByName(name string) (int, bool) {
	i := slices.IndexFunc(d.Stations, func(s StationRecord) bool { return s.Name == name })
	return i, i >= 0
}

// removeCity drops a city and its stations.
func (d *Document) removeCity(id string) {
	d.Stations = slices.DeleteFunc(d.Stations, func(s StationRecord) bool { return s.CityID == id })
	d.Cities = slices.DeleteFunc(d.Cities, func(c CityRecord) bool { return c.ID == id })
}
