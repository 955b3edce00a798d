package weather

// StationBuilder assembles a Station from user input or persisted config.
type StationBuilder struct {
	id      string
	name    string
	url     string
	city    *City
	country *Country
}

// NewStationBuilder returns an empty builder.
func NewStationBuilder() *StationBuilder {
	return &StationBuilder{}
}

// Reset clears every field set so far.
func (b *StationBuilder) Reset() *StationBuilder {
	*b = StationBuilder{}
	return b
}

// ID sets the persisted identifier.
func (b *StationBuilder) ID(id string) *StationBuilder {
	b.id = id
	return b
}

// Name sets the station name.
func (b *StationBuilder) Name(name string) *StationBuilder {
	b.name = name
	return b
}

// URL sets the source URL.
func (b *StationBuilder) URL(url string) *StationBuilder {
	b.url = url
	return b
}

// City links the station to a city.
func (b *StationBuilder) City(city *City) *StationBuilder {
	b.city = city
	return b
}

// Country links the station's city to a country when the city has none.
// The city passed to City is never modified; Build links a copy.
func (b *StationBuilder) Country(country *Country) *StationBuilder {
	b.country = country
	return b
}

// Build validates and returns the station. Name and URL are required.
func (b *StationBuilder) Build() (*Station, error) {
	if b.name == "" {
		return nil, &ValidationError{Field: "name"}
	}
	if b.url == "" {
		return nil, &ValidationError{Field: "url"}
	}

	city := b.city
	if b.country != nil {
		switch {
		case city == nil:
			city = &City{Country: b.country}
		case city.Country == nil:
			c := *city
			c.Country = b.country
			city = &c
		}
	}

	return &Station{
		ID:   b.id,
		Name: b.name,
		URL:  b.url,
		City: city,
	}, nil
}
