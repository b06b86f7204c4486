package snapshot

import (
	"context"

	"github.com/rs/zerolog/log"
)

// RegistryRow is one registered station. Registry order drives the order of
// the merged view.
type RegistryRow struct {
	StationID   string
	StationName string
}

// GeoRow carries descriptive and location data for a station.
type GeoRow struct {
	StationID string
	FullName  *string
	ShortName *string
	Address   *string
	Latitude  *float64
	Longitude *float64
}

// OccupancyRow is one occupancy figure captured for a station. A nil
// Timestamp marks the row as stale.
type OccupancyRow struct {
	StationID string
	Total     *int
	Occupied  *int
	Available *int
	Timestamp *string
	Zones     string
}

// Tables holds the three raw datasets handed to the merge.
type Tables struct {
	Registry  []RegistryRow
	Geo       []GeoRow
	Occupancy []OccupancyRow
}

// Loader reads the raw tables for a source. Implementations return
// *SourceUnavailableError for missing inputs and *NoDataError (alongside
// usable Tables) for an empty fragment directory.
type Loader interface {
	Load(ctx context.Context, src Source) (Tables, error)
}

// NormalizeOccupancy makes every timestamped row satisfy
// occupied + available == total with non-negative counts. Rows that cannot
// are kept but lose their timestamp so the merge treats them as stale.
func NormalizeOccupancy(rows []OccupancyRow) []OccupancyRow {
	out := make([]OccupancyRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, normalizeOccupancyRow(row))
	}
	return out
}

func normalizeOccupancyRow(row OccupancyRow) OccupancyRow {
	if row.Timestamp == nil {
		return row
	}

	if row.Total == nil || row.Occupied == nil || *row.Total < 0 || *row.Occupied < 0 || *row.Occupied > *row.Total {
		log.Warn().
			Str("station_id", row.StationID).
			Str("timestamp", *row.Timestamp).
			Msg("Occupancy counts missing or out of range, treating record as stale")
		row.Timestamp = nil
		return row
	}

	available := *row.Total - *row.Occupied
	if row.Available != nil && *row.Available != available {
		log.Warn().
			Str("station_id", row.StationID).
			Int("stored", *row.Available).
			Int("derived", available).
			Msg("Replacing inconsistent available count")
	}
	row.Available = &available
	return row
}
