package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/parkride/parkride/services/api/snapshot"
)

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS parkride;

CREATE TABLE IF NOT EXISTS parkride.stations (
    facility_id  text PRIMARY KEY,
    station_name text NOT NULL,
    position     integer NOT NULL,
    updated_at   timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS parkride.station_geo (
    facility_id text PRIMARY KEY,
    full_name   text,
    short_name  text,
    address     text,
    latitude    double precision,
    longitude   double precision,
    position    integer NOT NULL,
    updated_at  timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS parkride.parking_lots (
    facility_id text PRIMARY KEY,
    total       integer,
    occupied    integer,
    available   integer,
    message_ts  text,
    zones       text,
    position    integer NOT NULL,
    updated_at  timestamptz NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the snapshot tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// ReplaceStations swaps the registry for rows, keeping their order.
func (s *Store) ReplaceStations(ctx context.Context, rows []snapshot.RegistryRow) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM parkride.stations`); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		query := `INSERT INTO parkride.stations (facility_id, station_name, position, updated_at)
VALUES ($1,$2,$3,NOW())`
		for i, r := range rows {
			batch.Queue(query, r.StationID, r.StationName, i)
		}
		return execBatch(ctx, tx, batch)
	})
}

// ReplaceStationGeo swaps the geo table for rows, keeping their order.
func (s *Store) ReplaceStationGeo(ctx context.Context, rows []snapshot.GeoRow) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM parkride.station_geo`); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		query := `INSERT INTO parkride.station_geo (facility_id, full_name, short_name, address, latitude, longitude, position, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`
		for i, g := range rows {
			batch.Queue(query, g.StationID, g.FullName, g.ShortName, g.Address, g.Latitude, g.Longitude, i)
		}
		return execBatch(ctx, tx, batch)
	})
}

// UpsertParkingLots inserts/updates occupancy rows. Stations missing from
// rows keep their previous figure.
func (s *Store) UpsertParkingLots(ctx context.Context, rows []snapshot.OccupancyRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO parkride.parking_lots (facility_id, total, occupied, available, message_ts, zones, position, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (facility_id) DO UPDATE
SET total = EXCLUDED.total,
    occupied = EXCLUDED.occupied,
    available = EXCLUDED.available,
    message_ts = EXCLUDED.message_ts,
    zones = EXCLUDED.zones,
    position = EXCLUDED.position,
    updated_at = NOW()`

	for i, o := range rows {
		batch.Queue(query, o.StationID, o.Total, o.Occupied, o.Available, o.Timestamp, o.Zones, i)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range rows {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}

	return nil
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	res := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			res.Close()
			return err
		}
	}
	return res.Close()
}
