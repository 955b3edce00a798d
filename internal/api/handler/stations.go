package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/api/models"
	"github.com/meteoboard/meteoboard/internal/api/response"
	"github.com/meteoboard/meteoboard/internal/registry"
	"github.com/meteoboard/meteoboard/internal/stationconfig"
	"github.com/meteoboard/meteoboard/internal/weather"
	"github.com/meteoboard/meteoboard/internal/weather/render"
)

// MaxTableWidth bounds the width query parameter of the table endpoint.
const MaxTableWidth = 1000

// StationHandler handles station endpoints.
type StationHandler struct {
	registry *registry.Service
	renderer render.Renderer
	logger   zerolog.Logger
}

// StationHandlerConfig holds configuration for the station handler.
type StationHandlerConfig struct {
	Registry *registry.Service
	Logger   zerolog.Logger

	// Width and Language are the table defaults when the query omits them.
	Width    int
	Language string
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(cfg StationHandlerConfig) *StationHandler {
	return &StationHandler{
		registry: cfg.Registry,
		renderer: render.Renderer{
			Width:  cfg.Width,
			Labels: render.LabelsFor(cfg.Language),
		},
		logger: cfg.Logger,
	}
}

// ListStations handles GET /v1/stations.
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations := h.registry.Stations()
	list := models.StationList{Items: make([]models.Station, 0, len(stations))}
	for _, st := range stations {
		list.Items = append(list.Items, h.toModel(st))
	}
	response.JSON(w, r, http.StatusOK, list)
}

// CreateStation handles POST /v1/stations. Unknown countries and cities
// are created on the fly.
func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var input models.CreateStationRequest
	if err := response.Decode(r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	st, err := h.registry.Add(r.Context(), input.Country, input.City, input.Name, input.URL)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, r, stationLocation(st.Name), h.toModel(st))
}

// GetStation handles GET /v1/stations/{name}.
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	st, ok := h.lookup(w, r)
	if !ok {
		return
	}

	detail := models.StationDetail{
		Station:  h.toModel(st),
		Readings: make([]models.Reading, 0, st.MeasurementCount()),
	}
	for _, m := range st.Measurements() {
		detail.Readings = append(detail.Readings, toReading(m))
	}
	response.JSON(w, r, http.StatusOK, detail)
}

// UpdateURL handles PUT /v1/stations/{name}/url.
func (h *StationHandler) UpdateURL(w http.ResponseWriter, r *http.Request) {
	name, ok := stationName(w, r)
	if !ok {
		return
	}
	var input models.UpdateURLRequest
	if err := response.Decode(r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	found, err := h.registry.UpdateURL(r.Context(), name, input.URL)
	h.writeMutation(w, r, name, name, found, err)
}

// RenameStation handles PUT /v1/stations/{name}/name.
func (h *StationHandler) RenameStation(w http.ResponseWriter, r *http.Request) {
	name, ok := stationName(w, r)
	if !ok {
		return
	}
	var input models.RenameRequest
	if err := response.Decode(r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	found, err := h.registry.Rename(r.Context(), name, input.Name)
	h.writeMutation(w, r, name, input.Name, found, err)
}

// DeleteStation handles DELETE /v1/stations/{name}.
func (h *StationHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	name, ok := stationName(w, r)
	if !ok {
		return
	}

	found, err := h.registry.Remove(r.Context(), name)
	switch {
	case err != nil:
		writeError(w, r, h.logger, err)
	case !found:
		response.NotFound(w, r, "station "+strconv.Quote(name)+" not found")
	default:
		response.NoContent(w, r)
	}
}

// RefreshStation handles POST /v1/stations/{name}/refresh. A failed fetch
// answers 502 and leaves the station without measurements.
func (h *StationHandler) RefreshStation(w http.ResponseWriter, r *http.Request) {
	st, ok := h.lookup(w, r)
	if !ok {
		return
	}

	n, err := h.registry.Refresh(r.Context(), st)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.RefreshResult{Station: st.Name, Measurements: n})
}

// RefreshAll handles POST /v1/stations:refresh. Per-station failures are
// reported in the body; the call itself succeeds.
func (h *StationHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	summary := h.registry.RefreshAll(r.Context())

	out := models.RefreshSummary{
		Successful: summary.Successful,
		Failed:     summary.Failed,
		DurationMS: summary.Duration.Milliseconds(),
		Results:    make([]models.RefreshResult, 0, len(summary.Results)),
	}
	for _, res := range summary.Results {
		out.Results = append(out.Results, models.RefreshResult(res))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// StationTable handles GET /v1/stations/{name}/table?width=&lang= and
// writes the day-grouped grid as plain text.
func (h *StationHandler) StationTable(w http.ResponseWriter, r *http.Request) {
	st, ok := h.lookup(w, r)
	if !ok {
		return
	}

	renderer := h.renderer
	if raw := r.URL.Query().Get("width"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil || width < 1 || width > MaxTableWidth {
			response.BadRequest(w, r, "invalid query parameter", []models.FieldError{
				{Field: "width", Message: "must be an integer between 1 and " + strconv.Itoa(MaxTableWidth)},
			})
			return
		}
		renderer.Width = width
	}
	if lang := r.URL.Query().Get("lang"); lang != "" {
		renderer.Labels = render.LabelsFor(lang)
	}

	var buf bytes.Buffer
	if err := renderer.Station(&buf, st); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Text(w, r, http.StatusOK, buf.Bytes())
}

func (h *StationHandler) lookup(w http.ResponseWriter, r *http.Request) (*weather.Station, bool) {
	name, ok := stationName(w, r)
	if !ok {
		return nil, false
	}
	st, found := h.registry.FindByName(name)
	if !found {
		response.NotFound(w, r, "station "+strconv.Quote(name)+" not found")
		return nil, false
	}
	return st, true
}

func (h *StationHandler) writeMutation(w http.ResponseWriter, r *http.Request, name, current string, found bool, err error) {
	switch {
	case err != nil:
		writeError(w, r, h.logger, err)
	case !found:
		response.NotFound(w, r, "station "+strconv.Quote(name)+" not found")
	default:
		st, ok := h.registry.FindByName(current)
		if !ok {
			response.NoContent(w, r)
			return
		}
		response.JSON(w, r, http.StatusOK, h.toModel(st))
	}
}

// writeError maps domain errors to problems.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var verr *weather.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: verr.Field, Message: verr.Error()},
		})
	case errors.Is(err, stationconfig.ErrDuplicateStation):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, stationconfig.ErrUnknownCountry):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, registry.ErrRefreshFailed), errors.Is(err, weather.ErrStationUnavailable):
		response.BadGateway(w, r, err.Error())
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, r, "")
	}
}

func (h *StationHandler) toModel(st *weather.Station) models.Station {
	out := models.Station{
		ID:           st.ID,
		Name:         st.Name,
		URL:          st.URL,
		City:         st.CityName(),
		Country:      st.CountryName(),
		Measurements: st.MeasurementCount(),
	}
	if st.City != nil {
		out.CityID = st.City.ID
		if st.City.Country != nil {
			out.CountryID = st.City.Country.ID
		}
	}
	if sorted := st.SortedMeasurements(); len(sorted) > 0 {
		at, _ := sorted[len(sorted)-1].Time()
		out.LatestAt = models.TimestampPtr(at)
	}
	return out
}

func toReading(m weather.Measurement) models.Reading {
	out := models.Reading{Timestamp: m.Timestamp()}
	if t := m.Temperature(); t.HasValue {
		out.Temperature = &t.Value
	}
	if hum := m.Humidity(); hum.HasValue {
		out.Humidity = &hum.Value
	}
	if p := m.Pressure(); p.HasValue {
		v := weather.Hectopascals(p.Value)
		out.Pressure = &v
	}
	return out
}

// stationName returns the decoded {name} path parameter. Names contain
// spaces and dashes, so clients percent-encode them.
func stationName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		response.BadRequest(w, r, "invalid station name", nil)
		return "", false
	}
	return name, true
}

func stationLocation(name string) string {
	return "/v1/stations/" + url.PathEscape(name)
}

