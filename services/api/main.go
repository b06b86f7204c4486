package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/parkride/parkride/services/api/cache"
	"github.com/parkride/parkride/services/api/config"
	"github.com/parkride/parkride/services/api/db"
	httpserver "github.com/parkride/parkride/services/api/http"
	"github.com/parkride/parkride/services/api/snapshot"
	"github.com/parkride/parkride/services/api/stations"
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

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var loader snapshot.Loader
	switch cfg.SnapshotBackend {
	case config.BackendPostgres:
		store, err := db.New(ctx, cfg.DatabaseURL, cfg.ParkingLotsDir)
		if err != nil {
			log.Fatal().Err(err).Msg("db connection error")
		}
		defer store.Close()
		loader = store
	default:
		loader = &snapshot.FileStore{
			RegistryPath:  cfg.StationFile,
			GeoPath:       cfg.StationGeoFile,
			OccupancyPath: cfg.ParkingLotsFile,
			FragmentDir:   cfg.ParkingLotsDir,
		}
	}

	var shared cache.Tier[[]stations.Record]
	if cfg.SharedCacheEnabled() {
		client, err := cache.ConnectRedis(ctx, cache.RedisOptions{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			Database: cfg.RedisDatabase,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection error")
		}
		defer client.Close()
		shared = cache.NewRedisTier[[]stations.Record](client, "parkride:stations:", cfg.CacheTTL)
	}

	views := cache.New[[]stations.Record](cache.Options{
		TTL:        cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
	}, shared)

	srv := httpserver.New(cfg, stations.NewService(loader, views))
	log.Info().
		Str("addr", cfg.ListenAddr()).
		Str("backend", cfg.SnapshotBackend).
		Str("default_source", cfg.DefaultSource.String()).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("REST API listening")

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
