package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("CARPARK_API_TOKEN", "secret")
	t.Setenv("CARPARK_API_URL", "")
	t.Setenv("INGEST_REQUEST_TIMEOUT", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIURL != defaultAPIURL || cfg.RequestTimeout != 20*time.Second || cfg.DataDir != "data" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.DryRun || cfg.DatabaseURL != "" {
		t.Errorf("unexpected flags: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("CARPARK_API_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Error("expected an error without CARPARK_API_TOKEN")
	}

	t.Setenv("CARPARK_API_TOKEN", "secret")
	t.Setenv("INGEST_REQUEST_TIMEOUT", "later")
	if _, err := Load(); err == nil {
		t.Error("expected an error for an invalid timeout")
	}
}
