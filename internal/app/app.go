// Package app assembles the station registry and its collaborators from
// process configuration. Every binary starts from here.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/config"
	"github.com/meteoboard/meteoboard/internal/database"
	"github.com/meteoboard/meteoboard/internal/provider/resilience"
	"github.com/meteoboard/meteoboard/internal/registry"
	"github.com/meteoboard/meteoboard/internal/stationconfig"
	"github.com/meteoboard/meteoboard/internal/telemetry"
	"github.com/meteoboard/meteoboard/internal/weather/reading"
	"github.com/meteoboard/meteoboard/internal/weather/stationapi"
)

const meterName = "github.com/meteoboard/meteoboard/internal/app"

// App holds the wired components.
type App struct {
	Config     config.Config
	Store      *stationconfig.Store
	Registry   *registry.Service
	Fetcher    *stationapi.Client
	Normalizer *reading.Normalizer
	Sources    *resilience.Registry

	closers []func()
}

// Build opens the configured store backend, loads the registry and
// returns the assembled components. Call Close when done.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg}

	backend, err := a.openBackend(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	mode, err := reading.ParseModeFromString(cfg.ParseMode)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Normalizer = reading.NewNormalizer(reading.Config{Mode: mode, Logger: logger})

	httpCfg := resilience.DefaultClientConfig("")
	httpCfg.Timeout = cfg.FetchTimeout
	httpCfg.MaxRetries = uint64(cfg.FetchRetries)

	a.Sources = resilience.NewRegistry()
	a.Fetcher = stationapi.NewClient(stationapi.ClientConfig{
		Registry: a.Sources,
		HTTP:     &httpCfg,
		Logger:   logger,
	})

	a.Store = stationconfig.NewStore(stationconfig.StoreConfig{
		Backend: backend,
		Logger:  logger,
	})

	a.Registry, err = registry.NewService(registry.ServiceConfig{
		Store:      a.Store,
		Fetcher:    a.Fetcher,
		Normalizer: a.Normalizer,
		Logger:     logger,
		Limit:      cfg.Limit,
		Timeout:    cfg.FetchTimeout,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating registry: %w", err)
	}

	if err := a.Registry.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	gauge, err := telemetry.RegisterStationGauge(telemetry.Meter(meterName), a.Registry.Len)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to register station gauge")
	} else {
		a.closers = append(a.closers, func() { _ = gauge.Unregister() })
	}

	logger.Info().
		Str("store", string(cfg.Store)).
		Int("stations", a.Registry.Len()).
		Msg("station registry loaded")

	return a, nil
}

func (a *App) openBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (stationconfig.Backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return stationconfig.NewMemoryBackend(nil), nil

	case config.StorePostgres:
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		logger.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
		return migrated(ctx, stationconfig.NewPostgresBackend(pool))

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { closeDB(db, logger) })
		logger.Info().Str("path", cfg.SQLitePath).Msg("sqlite opened")
		return migrated(ctx, stationconfig.NewSQLiteBackend(db))

	default:
		return stationconfig.NewFileBackend(cfg.ConfigFile), nil
	}
}

type migrator interface {
	stationconfig.Backend
	Migrate(ctx context.Context) error
}

func migrated(ctx context.Context, b migrator) (stationconfig.Backend, error) {
	if err := b.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return b, nil
}

func closeDB(db *sql.DB, logger zerolog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close database")
	}
}

// Close releases database connections. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
