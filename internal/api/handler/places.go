package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/api/models"
	"github.com/meteoboard/meteoboard/internal/api/response"
	"github.com/meteoboard/meteoboard/internal/registry"
)

// PlaceHandler handles country and city endpoints.
type PlaceHandler struct {
	registry *registry.Service
	logger   zerolog.Logger
}

// NewPlaceHandler creates a new PlaceHandler.
func NewPlaceHandler(reg *registry.Service, logger zerolog.Logger) *PlaceHandler {
	return &PlaceHandler{registry: reg, logger: logger}
}

// ListCountries handles GET /v1/countries.
func (h *PlaceHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries := h.registry.Countries()
	list := models.CountryList{Items: make([]models.Country, 0, len(countries))}
	for _, c := range countries {
		list.Items = append(list.Items, models.Country{ID: c.ID, Name: c.Name})
	}
	response.JSON(w, r, http.StatusOK, list)
}

// CreateCountry handles POST /v1/countries. An existing country with the
// same name is returned as is.
func (h *PlaceHandler) CreateCountry(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCountryRequest
	if err := response.Decode(r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	c, err := h.registry.AddCountry(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.Country{ID: c.ID, Name: c.Name})
}

// DeleteCountry handles DELETE /v1/countries/{id}. Its cities and their
// stations are removed with it.
func (h *PlaceHandler) DeleteCountry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := h.registry.RemoveCountry(r.Context(), id)
	h.writeRemoval(w, r, "country", id, found, err)
}

// ListCities handles GET /v1/cities, optionally filtered by ?country=<id>.
func (h *PlaceHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities := h.registry.Cities(r.URL.Query().Get("country"))
	list := models.CityList{Items: make([]models.City, 0, len(cities))}
	for _, c := range cities {
		list.Items = append(list.Items, models.City{
			ID:        c.ID,
			Name:      c.Name,
			CountryID: c.CountryID,
			Country:   c.Country,
		})
	}
	response.JSON(w, r, http.StatusOK, list)
}

// CreateCity handles POST /v1/cities.
func (h *PlaceHandler) CreateCity(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCityRequest
	if err := response.Decode(r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	c, err := h.registry.AddCity(r.Context(), req.CountryID, req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.City{ID: c.ID, Name: c.Name, CountryID: c.CountryID})
}

// DeleteCity handles DELETE /v1/cities/{id}. Its stations are removed with it.
func (h *PlaceHandler) DeleteCity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := h.registry.RemoveCity(r.Context(), id)
	h.writeRemoval(w, r, "city", id, found, err)
}

func (h *PlaceHandler) writeRemoval(w http.ResponseWriter, r *http.Request, kind, id string, found bool, err error) {
	switch {
	case err != nil:
		writeError(w, r, h.logger, err)
	case !found:
		response.NotFound(w, r, kind+" "+strconv.Quote(id)+" not found")
	default:
		response.NoContent(w, r)
	}
}
