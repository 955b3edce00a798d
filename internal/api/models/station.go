package models

// Station is the API view of a registered station.
type Station struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	City         string     `json:"city,omitempty"`
	CityID       string     `json:"cityId,omitempty"`
	Country      string     `json:"country,omitempty"`
	CountryID    string     `json:"countryId,omitempty"`
	Measurements int        `json:"measurements"`
	LatestAt     *Timestamp `json:"latestAt,omitempty"`
}

// StationDetail adds the stored measurements to a Station.
type StationDetail struct {
	Station
	Readings []Reading `json:"readings"`
}

// Reading is one measurement. Absent values are null.
type Reading struct {
	Timestamp   string   `json:"timestamp"`
	Temperature *float64 `json:"temperatureC"`
	Humidity    *int     `json:"humidityPct"`
	Pressure    *float64 `json:"pressureHpa"`
}

// StationList wraps a list of stations.
type StationList struct {
	Items []Station `json:"items"`
}

// CreateStationRequest is the body of POST /v1/stations.
type CreateStationRequest struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

// UpdateURLRequest is the body of PUT /v1/stations/{name}/url.
type UpdateURLRequest struct {
	URL string `json:"url"`
}

// RenameRequest is the body of PUT /v1/stations/{name}/name.
type RenameRequest struct {
	Name string `json:"name"`
}

// RefreshResult reports one station refresh.
type RefreshResult struct {
	Station      string `json:"station"`
	Measurements int    `json:"measurements"`
	Error        string `json:"error,omitempty"`
}

// RefreshSummary reports a refresh of every station.
type RefreshSummary struct {
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	DurationMS int64           `json:"durationMs"`
	Results    []RefreshResult `json:"results"`
}

// Country is the API view of a country.
type Country struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// City is the API view of a city.
type City struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CountryID string `json:"countryId"`
	Country   string `json:"country,omitempty"`
}

// CountryList wraps a list of countries.
type CountryList struct {
	Items []Country `json:"items"`
}

// CityList wraps a list of cities.
type CityList struct {
	Items []City `json:"items"`
}

// CreateCountryRequest is the request body for POST /v1/countries.
type CreateCountryRequest struct {
	Name string `json:"name"`
}

// CreateCityRequest is the request body for POST /v1/cities.
type CreateCityRequest struct {
	CountryID string `json:"countryId"`
	Name      string `json:"name"`
}
