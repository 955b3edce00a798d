// Package api provides the HTTP API for meteoboard.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/api/handler"
	"github.com/meteoboard/meteoboard/internal/api/middleware"
	"github.com/meteoboard/meteoboard/internal/provider/resilience"
	"github.com/meteoboard/meteoboard/internal/registry"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	Registry *registry.Service
	Sources  *resilience.Registry

	// RequireTLS rejects plain HTTP requests that did not come through a
	// TLS-terminating proxy.
	RequireTLS bool

	// TableWidth and Language are the table endpoint defaults.
	TableWidth int
	Language   string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Sources)
	stationHandler := handler.NewStationHandler(handler.StationHandlerConfig{
		Registry: cfg.Registry,
		Logger:   cfg.Logger,
		Width:    cfg.TableWidth,
		Language: cfg.Language,
	})
	placeHandler := handler.NewPlaceHandler(cfg.Registry, cfg.Logger)

	refreshRateLimit := middleware.RateLimitByIPAndRoute(middleware.RefreshRateLimit) // 10 req/min
	writeRateLimit := middleware.RateLimitByIP(middleware.WriteRateLimit)             // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)       // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Refreshing every station hits every upstream host.
		r.With(refreshRateLimit).Post("/stations:refresh", stationHandler.RefreshAll)

		r.Route("/stations", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", stationHandler.ListStations)
			r.With(writeRateLimit, middleware.RequireJSON).Post("/", stationHandler.CreateStation)

			r.Route("/{name}", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(standardRateLimit)
					r.Get("/", stationHandler.GetStation)
					r.Get("/table", stationHandler.StationTable)
				})
				r.Group(func(r chi.Router) {
					r.Use(writeRateLimit)
					r.With(middleware.RequireJSON).Put("/url", stationHandler.UpdateURL)
					r.With(middleware.RequireJSON).Put("/name", stationHandler.RenameStation)
					r.Delete("/", stationHandler.DeleteStation)
				})
				r.With(refreshRateLimit).Post("/refresh", stationHandler.RefreshStation)
			})
		})

		r.Route("/countries", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", placeHandler.ListCountries)
			r.With(writeRateLimit, middleware.RequireJSON).Post("/", placeHandler.CreateCountry)
			r.With(writeRateLimit).Delete("/{id}", placeHandler.DeleteCountry)
		})

		r.Route("/cities", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", placeHandler.ListCities)
			r.With(writeRateLimit, middleware.RequireJSON).Post("/", placeHandler.CreateCity)
			r.With(writeRateLimit).Delete("/{id}", placeHandler.DeleteCity)
		})
	})

	return r
}
