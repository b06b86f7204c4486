package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIURL         = "https://api.transport.nsw.gov.au/v1/carpark"
	defaultRequestTimeout = 20 * time.Second
	defaultDataDir        = "data"
)

// Config holds runtime configuration for the ingest jobs.
type Config struct {
	APIURL         string
	APIToken       string
	RequestTimeout time.Duration
	DataDir        string
	DatabaseURL    string
	DryRun         bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.APIToken = strings.TrimSpace(os.Getenv("CARPARK_API_TOKEN"))
	if cfg.APIToken == "" {
		return cfg, errors.New("CARPARK_API_TOKEN is required")
	}

	cfg.APIURL = strings.TrimSpace(os.Getenv("CARPARK_API_URL"))
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}

	cfg.RequestTimeout = defaultRequestTimeout
	if v := strings.TrimSpace(os.Getenv("INGEST_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid INGEST_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	cfg.DataDir = strings.TrimSpace(os.Getenv("DATA_DIR"))
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	dryRun := strings.TrimSpace(os.Getenv("DRY_RUN"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	return cfg, nil
}
