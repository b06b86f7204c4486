// Package jobs materializes the snapshot tables from the car park API.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/parkride/parkride/services/api/snapshot"
	"github.com/parkride/parkride/services/ingest/internal/carpark"
	"github.com/parkride/parkride/services/ingest/internal/models"
	"github.com/parkride/parkride/services/ingest/internal/utils"
)

// Fetcher is the subset of the car park client used by the jobs.
type Fetcher interface {
	FetchStationList(ctx context.Context) ([]models.StationEntry, error)
	FetchFacility(ctx context.Context, facilityID string) (models.Facility, error)
}

// Mirror receives a copy of every table written to disk.
type Mirror interface {
	ReplaceStations(ctx context.Context, rows []snapshot.RegistryRow) error
	ReplaceStationGeo(ctx context.Context, rows []snapshot.GeoRow) error
	UpsertParkingLots(ctx context.Context, rows []snapshot.OccupancyRow) error
}

// Runner holds what the jobs share. Mirror may be nil.
type Runner struct {
	Client  Fetcher
	DataDir string
	DryRun  bool
	Mirror  Mirror
}

// Registry writes the station list.
func (r *Runner) Registry(ctx context.Context) error {
	entries, err := r.Client.FetchStationList(ctx)
	if err != nil {
		return err
	}
	rows := utils.BuildRegistryRows(entries)
	log.Info().Int("stations", len(rows)).Msg("Fetched station list")

	if r.DryRun {
		log.Info().Msg("dry-run: skipping registry write")
		return nil
	}
	if err := r.prepareDir(); err != nil {
		return err
	}
	if err := snapshot.WriteRegistryFile(filepath.Join(r.DataDir, snapshot.RegistryFileName), rows); err != nil {
		return err
	}
	if r.Mirror != nil {
		return r.Mirror.ReplaceStations(ctx, rows)
	}
	return nil
}

// Geo writes the geo table for every registered station.
func (r *Runner) Geo(ctx context.Context) error {
	ids, err := r.registeredIDs()
	if err != nil {
		return err
	}

	rows := make([]snapshot.GeoRow, 0, len(ids))
	err = r.eachFacility(ctx, ids, func(id string, f models.Facility) error {
		row, err := utils.BuildGeoRow(id, f)
		if err != nil {
			log.Warn().Err(err).Str("facility_id", id).Msg("Skipping facility")
			return nil
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Int("stations", len(rows)).Msg("Built geo table")

	if r.DryRun {
		log.Info().Msg("dry-run: skipping geo write")
		return nil
	}
	if err := snapshot.WriteGeoFile(filepath.Join(r.DataDir, snapshot.GeoFileName), rows); err != nil {
		return err
	}
	if r.Mirror != nil {
		return r.Mirror.ReplaceStationGeo(ctx, rows)
	}
	return nil
}

// Occupancy writes one fragment per station answering and the aggregated
// occupancy table. Stations that fail keep their previous fragment.
func (r *Runner) Occupancy(ctx context.Context) error {
	ids, err := r.registeredIDs()
	if err != nil {
		return err
	}

	rows := make([]snapshot.OccupancyRow, 0, len(ids))
	err = r.eachFacility(ctx, ids, func(id string, f models.Facility) error {
		row, err := utils.BuildOccupancyRow(id, f)
		if err != nil {
			log.Warn().Err(err).Str("facility_id", id).Msg("Skipping facility")
			return nil
		}
		if r.DryRun {
			log.Info().
				Str("facility_id", id).
				Int("total", *row.Total).
				Int("available", *row.Available).
				Msg("dry-run: would write fragment")
		} else if err := snapshot.WriteFragment(r.DataDir, row); err != nil {
			return fmt.Errorf("write fragment: %w", err)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Int("stations", len(rows)).Int("registered", len(ids)).Msg("Built occupancy table")

	if r.DryRun {
		return nil
	}
	if err := snapshot.WriteOccupancyFile(filepath.Join(r.DataDir, snapshot.OccupancyFileName), rows); err != nil {
		return err
	}
	if r.Mirror != nil {
		return r.Mirror.UpsertParkingLots(ctx, rows)
	}
	return nil
}

func (r *Runner) registeredIDs() ([]string, error) {
	rows, err := snapshot.ReadRegistryFile(filepath.Join(r.DataDir, snapshot.RegistryFileName))
	if err != nil {
		return nil, fmt.Errorf("read registry (run the registry command first): %w", err)
	}
	return utils.FacilityIDs(rows), nil
}

// eachFacility fetches every id and hands the payload to fn. Facilities the
// API refuses are logged and skipped.
func (r *Runner) eachFacility(ctx context.Context, ids []string, fn func(string, models.Facility) error) error {
	for _, id := range ids {
		facility, err := r.Client.FetchFacility(ctx, id)
		if err != nil {
			var status *carpark.StatusError
			if errors.As(err, &status) || errors.Is(err, carpark.ErrInvalidFacilityID) {
				log.Warn().Err(err).Str("facility_id", id).Msg("Facility did not return parking information")
				continue
			}
			return err
		}

		if err := fn(id, facility); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) prepareDir() error {
	return os.MkdirAll(r.DataDir, 0o755)
}
