package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/parkride/parkride/services/api/cache"
	"github.com/parkride/parkride/services/api/snapshot"
)

// Snapshot backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	Port            int
	DataDir         string
	StationFile     string
	StationGeoFile  string
	ParkingLotsFile string
	ParkingLotsDir  string
	DefaultSource   snapshot.Source
	CacheTTL        time.Duration
	CacheMaxEntries int
	SnapshotBackend string
	DatabaseURL     string
	RedisAddress    string
	RedisPassword   string
	RedisDatabase   int
	CORSAllowOrigin string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:            8080,
		DataDir:         "data",
		DefaultSource:   snapshot.SourceDirectory,
		CacheTTL:        cache.DefaultTTL,
		CacheMaxEntries: cache.DefaultMaxEntries,
		SnapshotBackend: BackendFile,
		CORSAllowOrigin: "*",
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if dir := strings.TrimSpace(os.Getenv("DATA_DIR")); dir != "" {
		cfg.DataDir = dir
	}
	cfg.StationFile = envOr("STATION_FILE", filepath.Join(cfg.DataDir, snapshot.RegistryFileName))
	cfg.StationGeoFile = envOr("STATION_GEO_FILE", filepath.Join(cfg.DataDir, snapshot.GeoFileName))
	cfg.ParkingLotsFile = envOr("PARKING_LOTS_FILE", filepath.Join(cfg.DataDir, snapshot.OccupancyFileName))
	cfg.ParkingLotsDir = envOr("PARKING_LOTS_DIR", cfg.DataDir)

	if v := strings.TrimSpace(os.Getenv("DEFAULT_SOURCE")); v != "" {
		src, err := snapshot.ParseSource(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid DEFAULT_SOURCE: %w", err)
		}
		cfg.DefaultSource = src
	}

	if v := strings.TrimSpace(os.Getenv("CACHE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("CACHE_MAX_ENTRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxEntries = n
		} else {
			return cfg, fmt.Errorf("invalid CACHE_MAX_ENTRIES: %s", v)
		}
	}

	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_BACKEND")); v != "" {
		cfg.SnapshotBackend = strings.ToLower(v)
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	switch cfg.SnapshotBackend {
	case BackendFile:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return cfg, errors.New("DATABASE_URL is required for the postgres snapshot backend")
		}
	default:
		return cfg, fmt.Errorf("invalid SNAPSHOT_BACKEND: %s", cfg.SnapshotBackend)
	}

	cfg.RedisAddress = strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if v := strings.TrimSpace(os.Getenv("REDIS_DATABASE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("invalid REDIS_DATABASE: %s", v)
		}
		cfg.RedisDatabase = n
	}

	if origin := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGIN")); origin != "" {
		cfg.CORSAllowOrigin = origin
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SharedCacheEnabled reports whether a Redis tier is configured.
func (c Config) SharedCacheEnabled() bool {
	return c.RedisAddress != ""
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
