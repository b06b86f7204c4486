package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parkride/parkride/services/api/snapshot"
	"github.com/parkride/parkride/services/ingest/internal/models"
)

// BuildRegistryRows converts the facility list into registry rows, keeping
// upstream order.
func BuildRegistryRows(entries []models.StationEntry) []snapshot.RegistryRow {
	rows := make([]snapshot.RegistryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, snapshot.RegistryRow{
			StationID:   e.FacilityID,
			StationName: e.Name,
		})
	}
	return rows
}

// FacilityIDs extracts facility identifiers from registry rows.
func FacilityIDs(rows []snapshot.RegistryRow) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.StationID)
	}
	return ids
}

// BuildGeoRow maps a facility payload to its geo row.
func BuildGeoRow(facilityID string, f models.Facility) (snapshot.GeoRow, error) {
	lat, err := f.Location.Latitude.Float()
	if err != nil {
		return snapshot.GeoRow{}, fmt.Errorf("facility %s latitude: %w", facilityID, err)
	}
	lon, err := f.Location.Longitude.Float()
	if err != nil {
		return snapshot.GeoRow{}, fmt.Errorf("facility %s longitude: %w", facilityID, err)
	}

	return snapshot.GeoRow{
		StationID: facilityID,
		FullName:  nonEmpty(f.FacilityName),
		ShortName: nonEmpty(f.Location.Suburb),
		Address:   nonEmpty(f.Location.Address),
		Latitude:  &lat,
		Longitude: &lon,
	}, nil
}

// BuildOccupancyRow maps a facility payload to its occupancy row. Zones
// without a name are dropped.
func BuildOccupancyRow(facilityID string, f models.Facility) (snapshot.OccupancyRow, error) {
	total, err := f.Spots.Int()
	if err != nil {
		return snapshot.OccupancyRow{}, fmt.Errorf("facility %s spots: %w", facilityID, err)
	}
	occupied, err := f.Occupancy.Total.Int()
	if err != nil {
		return snapshot.OccupancyRow{}, fmt.Errorf("facility %s occupancy: %w", facilityID, err)
	}
	available := total - occupied

	zones := make([]models.Zone, 0, len(f.Zones))
	for _, z := range f.Zones {
		if z.Name != "" {
			zones = append(zones, z)
		}
	}
	encoded, err := json.Marshal(zones)
	if err != nil {
		return snapshot.OccupancyRow{}, fmt.Errorf("facility %s zones: %w", facilityID, err)
	}

	return snapshot.OccupancyRow{
		StationID: facilityID,
		Total:     &total,
		Occupied:  &occupied,
		Available: &available,
		Timestamp: nonEmpty(f.MessageDate),
		Zones:     string(encoded),
	}, nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
