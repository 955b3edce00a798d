package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/app"
	"github.com/meteoboard/meteoboard/internal/config"
	"github.com/meteoboard/meteoboard/internal/logging"
	"github.com/meteoboard/meteoboard/internal/mqttpub"
	"github.com/meteoboard/meteoboard/internal/telemetry"
	"github.com/meteoboard/meteoboard/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "meteoboard-worker"

	cfg, cfgErr := config.LoadFromEnv()

	log := logging.New(logging.Config{
		Service:     serviceName,
		Version:     Version,
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if cfgErr != nil {
		log.Fatal().Err(cfgErr).Msg("invalid configuration")
	}
	log.Info().Str("build_time", BuildTime).Msg("starting meteoboard worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build station registry")
		return
	}
	defer components.Close()

	jobCfg := worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Interval:   cfg.RefreshInterval,
			RunOnStart: true,
		},
		Logger:   log,
		Stations: components.Registry,
	}

	if cfg.MQTTBroker != "" {
		publisher := mqttpub.New(mqttpub.Config{
			Broker:      cfg.MQTTBroker,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Retain:      true,
			Logger:      log,
		})
		connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := publisher.Connect(connectCtx); err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("mqtt broker unreachable, retrying in background")
		}
		connectCancel()
		defer publisher.Disconnect()
		jobCfg.Publisher = publisher
	}

	refreshJob := worker.NewRefreshJob(jobCfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      healthMux(refreshJob, components.Registry.Len),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// With a subscription configured, refreshes are driven by Pub/Sub
	// messages; otherwise the worker refreshes on its own schedule.
	if cfg.PubSubProjectID != "" && cfg.PubSubSubscription != "" {
		go runPubSub(ctx, cfg, refreshJob, log, cancel)
	} else {
		go refreshJob.Start(ctx)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func runPubSub(ctx context.Context, cfg config.Config, job *worker.RefreshJob, log zerolog.Logger, stop context.CancelFunc) {
	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.PubSubProjectID,
		SubscriptionName: cfg.PubSubSubscription,
		RefreshJob:       job,
		Logger:           log,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create pubsub handler")
		stop()
		return
	}
	defer func() {
		if err := handler.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close pubsub client")
		}
	}()

	if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("pubsub handler stopped")
		stop()
	}
}

func healthMux(job *worker.RefreshJob, stations func() int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "healthy",
			"version":  Version,
			"stations": stations(),
			"refresh":  job.MetricsSnapshot(),
		})
	})
	return mux
}
