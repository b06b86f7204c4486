package stations

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/parkride/parkride/services/api/cache"
	"github.com/parkride/parkride/services/api/snapshot"
)

// ErrStationNotFound is returned when a station is absent from the served
// view, either unknown or stale.
var ErrStationNotFound = errors.New("station not found")

// Service serves the merged view for a source through the refresh cache.
type Service struct {
	loader snapshot.Loader
	cache  *cache.Cache[[]Record]
}

// NewService wires a loader to a cache.
func NewService(loader snapshot.Loader, c *cache.Cache[[]Record]) *Service {
	return &Service{loader: loader, cache: c}
}

// Stations returns the fresh records for src. The slice is shared with other
// callers and must not be modified.
func (s *Service) Stations(ctx context.Context, src snapshot.Source) ([]Record, error) {
	return s.cache.GetOrCompute(ctx, src.String(), func(ctx context.Context) ([]Record, error) {
		return s.refresh(ctx, src)
	})
}

// Station returns the record for stationID from the view of src. A station
// present more than once yields *DataIntegrityError.
func (s *Service) Station(ctx context.Context, src snapshot.Source, stationID string) (Record, error) {
	records, err := s.Stations(ctx, src)
	if err != nil {
		return Record{}, err
	}
	var (
		found Record
		seen  bool
	)
	for _, rec := range records {
		if rec.StationID != stationID {
			continue
		}
		if seen {
			return Record{}, &DataIntegrityError{StationID: stationID}
		}
		found, seen = rec, true
	}
	if !seen {
		return Record{}, ErrStationNotFound
	}
	return found, nil
}

func (s *Service) refresh(ctx context.Context, src snapshot.Source) ([]Record, error) {
	tables, err := s.loader.Load(ctx, src)
	if err != nil {
		var noData *snapshot.NoDataError
		if !errors.As(err, &noData) {
			return nil, err
		}
		log.Warn().
			Str("source", src.String()).
			Str("dir", noData.Dir).
			Msg("No occupancy data, every station is stale")
		tables.Occupancy = nil
	}

	records := Merge(tables.Registry, tables.Geo, tables.Occupancy)
	log.Info().
		Str("source", src.String()).
		Int("registered", len(tables.Registry)).
		Int("served", len(records)).
		Msg("Rebuilt station view")
	return records, nil
}
