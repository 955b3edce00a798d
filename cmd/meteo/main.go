// Command meteo is the interactive weather station console.
//
//	meteo                                  menu over the configured stations
//	meteo fetch [-url URL] [-n N] [-width W] print one endpoint and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/meteoboard/meteoboard/internal/app"
	"github.com/meteoboard/meteoboard/internal/cli"
	"github.com/meteoboard/meteoboard/internal/config"
	"github.com/meteoboard/meteoboard/internal/logging"
	"github.com/meteoboard/meteoboard/internal/provider/resilience"
	"github.com/meteoboard/meteoboard/internal/stationconfig"
	"github.com/meteoboard/meteoboard/internal/weather/reading"
	"github.com/meteoboard/meteoboard/internal/weather/render"
	"github.com/meteoboard/meteoboard/internal/weather/stationapi"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "meteo:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout *os.File) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	// Logs go to stderr; stdout carries the grid.
	log := logging.New(logging.Config{
		Service:     "meteo",
		Version:     Version,
		Level:       cfg.LogLevel,
		Development: true,
		Output:      os.Stderr,
	})
	if os.Getenv("LOG_LEVEL") == "" {
		log = log.Level(zerolog.WarnLevel)
	}

	if len(args) > 0 && args[0] == "fetch" {
		return fetch(ctx, cfg, log, args[1:], stdout)
	}
	if len(args) > 0 {
		return fmt.Errorf("unknown command %q", args[0])
	}

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer components.Close()

	menu := cli.New(cli.Config{
		Registry: components.Registry,
		Renderer: render.Renderer{
			Width:      cli.TerminalWidth(stdout, cfg.TermWidth),
			Limit:      cfg.Limit,
			Normalizer: components.Normalizer,
		},
		Language: cfg.Language,
		In:       stdin,
		Out:      stdout,
		Logger:   log,
	})
	return menu.Run(ctx)
}

// fetch prints the readings of a single endpoint without touching the
// persisted configuration.
func fetch(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string, stdout *os.File) error {
	flags := flag.NewFlagSet("fetch", flag.ContinueOnError)
	url := flags.String("url", stationconfig.MontaudranURL, "station endpoint")
	limit := flags.Int("n", cfg.Limit, "maximum number of readings")
	width := flags.Int("width", cfg.TermWidth, "output width (default: terminal width)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *limit < 1 {
		return errors.New("-n must be at least 1")
	}

	mode, err := reading.ParseModeFromString(cfg.ParseMode)
	if err != nil {
		return err
	}

	httpCfg := resilience.DefaultClientConfig("")
	httpCfg.Timeout = cfg.FetchTimeout
	httpCfg.MaxRetries = uint64(cfg.FetchRetries)
	client := stationapi.NewClient(stationapi.ClientConfig{HTTP: &httpCfg, Logger: log})

	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	decoded, err := client.Fetch(ctx, *url)
	if err != nil {
		return err
	}

	renderer := render.Renderer{
		Width:      cli.TerminalWidth(stdout, *width),
		Limit:      *limit,
		Labels:     render.LabelsFor(cfg.Language),
		Normalizer: reading.NewNormalizer(reading.Config{Mode: mode, Logger: log}),
	}
	return renderer.Readings(stdout, decoded)
}
