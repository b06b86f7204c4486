package stations

import (
	"github.com/parkride/parkride/services/api/snapshot"
)

// Join left-joins registry with geo and then with occupancy on the station
// id. Every registry row appears at least once, in registry order; a key
// matched by several right-hand rows yields one record per match, in the
// right-hand table's order. Stale rows are kept.
func Join(registry []snapshot.RegistryRow, geo []snapshot.GeoRow, occupancy []snapshot.OccupancyRow) []Record {
	geoByID := indexRows(geo, func(r snapshot.GeoRow) string { return r.StationID })
	occByID := indexRows(occupancy, func(r snapshot.OccupancyRow) string { return r.StationID })

	records := make([]Record, 0, len(registry))
	for _, reg := range registry {
		geoMatches := geoByID[reg.StationID]
		if len(geoMatches) == 0 {
			geoMatches = []int{-1}
		}
		occMatches := occByID[reg.StationID]
		if len(occMatches) == 0 {
			occMatches = []int{-1}
		}

		for _, gi := range geoMatches {
			for _, oi := range occMatches {
				rec := Record{StationID: reg.StationID}
				if gi >= 0 {
					applyGeo(&rec, geo[gi])
				}
				if oi >= 0 {
					applyOccupancy(&rec, occupancy[oi])
				}
				records = append(records, rec)
			}
		}
	}
	return records
}

// Merge joins the three tables and drops records without an occupancy
// timestamp. Identical inputs always give identical output.
func Merge(registry []snapshot.RegistryRow, geo []snapshot.GeoRow, occupancy []snapshot.OccupancyRow) []Record {
	return FilterFresh(Join(registry, geo, occupancy))
}

// FilterFresh keeps the records that have a timestamp, preserving order.
func FilterFresh(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Fresh() {
			out = append(out, rec)
		}
	}
	return out
}

func indexRows[T any](rows []T, key func(T) string) map[string][]int {
	idx := make(map[string][]int, len(rows))
	for i, row := range rows {
		k := key(row)
		idx[k] = append(idx[k], i)
	}
	return idx
}

func applyGeo(rec *Record, g snapshot.GeoRow) {
	rec.ShortName = clone(g.ShortName)
	rec.FullName = clone(g.FullName)
	rec.Address = clone(g.Address)
	rec.Coordinates = Coordinates{
		Latitude:  clone(g.Latitude),
		Longitude: clone(g.Longitude),
	}
}

func applyOccupancy(rec *Record, o snapshot.OccupancyRow) {
	rec.Total = clone(o.Total)
	rec.Available = clone(o.Available)
	rec.Occupied = clone(o.Occupied)
	rec.Timestamp = clone(o.Timestamp)
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
