// Package handler provides HTTP handlers for the meteoboard API.
package handler

import (
	"net/http"
	"time"

	"github.com/meteoboard/meteoboard/internal/api/models"
	"github.com/meteoboard/meteoboard/internal/api/response"
	"github.com/meteoboard/meteoboard/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	stations  interface{ Len() int }
	sources   *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. stations and sources may be nil.
func NewOpsHandler(version, buildTime string, stations interface{ Len() int }, sources *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		stations:  stations,
		sources:   sources,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - station host circuit states.
// The overall status is FAIL when every known host is open, DEGRADED when
// any is not closed.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Sources: []models.SourceStatus{},
	}
	if h.stations != nil {
		status.Stations = h.stations.Len()
	}

	if h.sources != nil {
		open := 0
		for _, src := range h.sources.AllHealth() {
			s := models.SourceStatus{
				Host:          src.Name,
				Status:        models.HealthStatusOK,
				CircuitState:  src.State,
				LastSuccessAt: timestampOf(src.LastSuccessAt),
				LastFailureAt: timestampOf(src.LastFailureAt),
			}
			switch {
			case src.IsUnhealthy():
				s.Status = models.HealthStatusFail
				open++
			case src.IsDegraded():
				s.Status = models.HealthStatusDegraded
			}
			if src.LastError != "" {
				msg := src.LastError
				s.Message = &msg
			}
			if s.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Sources = append(status.Sources, s)
		}
		if open > 0 && open == len(status.Sources) {
			status.Status = models.HealthStatusFail
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func timestampOf(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	return models.TimestampPtr(*t)
}
