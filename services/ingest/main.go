package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/parkride/parkride/services/api/db"
	"github.com/parkride/parkride/services/ingest/internal/carpark"
	"github.com/parkride/parkride/services/ingest/internal/config"
	"github.com/parkride/parkride/services/ingest/internal/jobs"
)

func main() {
	if os.Getenv("PARKRIDE_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("PARKRIDE_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "parkride-ingest",
		Description: "Materializes the car park snapshot tables from the car park API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory receiving the snapshot files (overrides DATA_DIR)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Fetch and log without writing anything",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "registry",
				Usage: "Fetch the facility list into station.csv",
				Action: func(c *cli.Context) error {
					return withRunner(c, (*jobs.Runner).Registry)
				},
			},
			{
				Name:  "geo",
				Usage: "Fetch names and coordinates into station_geo.csv",
				Action: func(c *cli.Context) error {
					return withRunner(c, (*jobs.Runner).Geo)
				},
			},
			{
				Name:  "occupancy",
				Usage: "Fetch occupancy into per-station fragments and parking_lots.csv",
				Action: func(c *cli.Context) error {
					return withRunner(c, (*jobs.Runner).Occupancy)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func withRunner(c *cli.Context, job func(*jobs.Runner, context.Context) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if c.Bool("dry-run") {
		cfg.DryRun = true
	}

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := &jobs.Runner{
		Client:  carpark.NewClient(cfg.APIURL, cfg.APIToken, cfg.RequestTimeout),
		DataDir: cfg.DataDir,
		DryRun:  cfg.DryRun,
	}

	if cfg.DatabaseURL != "" && !cfg.DryRun {
		store, err := db.New(ctx, cfg.DatabaseURL, "")
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		runner.Mirror = store
	}

	start := time.Now()
	if err := job(runner, ctx); err != nil {
		return err
	}
	log.Info().
		Str("command", c.Command.Name).
		Str("data_dir", cfg.DataDir).
		Bool("dry_run", cfg.DryRun).
		Dur("took", time.Since(start)).
		Msg("Ingest finished")
	return nil
}
