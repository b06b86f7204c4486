package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parkride/parkride/services/api/snapshot"
)

// Store wraps database access helpers.
type Store struct {
	pool        *pgxpool.Pool
	fragmentDir string
}

// New creates a Store backed by a pgx pool. fragmentDir, when set, serves the
// on-demand directory source next to the tables held in Postgres.
func New(ctx context.Context, databaseURL, fragmentDir string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, fragmentDir: fragmentDir}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Load implements snapshot.Loader. Registry and geo always come from
// Postgres; occupancy comes from the parking_lots table or, for the directory
// source, from the fragment directory.
func (s *Store) Load(ctx context.Context, src snapshot.Source) (snapshot.Tables, error) {
	if !src.Valid() {
		return snapshot.Tables{}, fmt.Errorf("%w: %s", snapshot.ErrUnknownSource, src)
	}

	registry, err := s.ListStations(ctx)
	if err != nil {
		return snapshot.Tables{}, unavailable("parkride.stations", err)
	}
	geo, err := s.ListStationGeo(ctx)
	if err != nil {
		return snapshot.Tables{}, unavailable("parkride.station_geo", err)
	}
	tables := snapshot.Tables{Registry: registry, Geo: geo}

	switch src {
	case snapshot.SourceSnapshot:
		occupancy, err := s.ListParkingLots(ctx)
		if err != nil {
			return snapshot.Tables{}, unavailable("parkride.parking_lots", err)
		}
		tables.Occupancy = snapshot.NormalizeOccupancy(occupancy)
	case snapshot.SourceDirectory:
		if s.fragmentDir == "" {
			return snapshot.Tables{}, unavailable("fragment directory", errors.New("not configured"))
		}
		tables.Occupancy, err = snapshot.ReadFragments(ctx, s.fragmentDir)
	}
	return tables, err
}

const listStationsSQL = `
    SELECT facility_id, station_name
    FROM parkride.stations
    ORDER BY position
`

// ListStations returns the registry in upstream order.
func (s *Store) ListStations(ctx context.Context) ([]snapshot.RegistryRow, error) {
	rows, err := s.pool.Query(ctx, listStationsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]snapshot.RegistryRow, 0)
	for rows.Next() {
		var r snapshot.RegistryRow
		if err := rows.Scan(&r.StationID, &r.StationName); err != nil {
			return nil, err
		}
		stations = append(stations, r)
	}
	return stations, rows.Err()
}

const listStationGeoSQL = `
    SELECT facility_id, full_name, short_name, address, latitude, longitude
    FROM parkride.station_geo
    ORDER BY position
`

// ListStationGeo returns the geo table.
func (s *Store) ListStationGeo(ctx context.Context) ([]snapshot.GeoRow, error) {
	rows, err := s.pool.Query(ctx, listStationGeoSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	geo := make([]snapshot.GeoRow, 0)
	for rows.Next() {
		var g snapshot.GeoRow
		if err := rows.Scan(
			&g.StationID,
			&g.FullName,
			&g.ShortName,
			&g.Address,
			&g.Latitude,
			&g.Longitude,
		); err != nil {
			return nil, err
		}
		geo = append(geo, g)
	}
	return geo, rows.Err()
}

const listParkingLotsSQL = `
    SELECT facility_id, total, occupied, available, message_ts, zones
    FROM parkride.parking_lots
    ORDER BY position
`

// ListParkingLots returns the latest stored occupancy per station.
func (s *Store) ListParkingLots(ctx context.Context) ([]snapshot.OccupancyRow, error) {
	rows, err := s.pool.Query(ctx, listParkingLotsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lots := make([]snapshot.OccupancyRow, 0)
	for rows.Next() {
		var o snapshot.OccupancyRow
		var zones *string
		if err := rows.Scan(
			&o.StationID,
			&o.Total,
			&o.Occupied,
			&o.Available,
			&o.Timestamp,
			&zones,
		); err != nil {
			return nil, err
		}
		if zones != nil {
			o.Zones = *zones
		}
		lots = append(lots, o)
	}
	return lots, rows.Err()
}

func unavailable(path string, err error) error {
	return &snapshot.SourceUnavailableError{Path: "postgres:" + path, Err: err}
}
