package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

// Default file names inside a data directory.
const (
	RegistryFileName  = "station.csv"
	GeoFileName       = "station_geo.csv"
	OccupancyFileName = "parking_lots.csv"
	FragmentExt       = ".json"
)

// FileStore loads tables from CSV files and JSON fragments on disk.
type FileStore struct {
	RegistryPath  string
	GeoPath       string
	OccupancyPath string
	FragmentDir   string
}

// NewFileStore returns a FileStore using the default file names in dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		RegistryPath:  filepath.Join(dir, RegistryFileName),
		GeoPath:       filepath.Join(dir, GeoFileName),
		OccupancyPath: filepath.Join(dir, OccupancyFileName),
		FragmentDir:   dir,
	}
}

// Load implements Loader.
func (s *FileStore) Load(ctx context.Context, src Source) (Tables, error) {
	if !src.Valid() {
		return Tables{}, fmt.Errorf("%w: %s", ErrUnknownSource, src)
	}

	registry, err := ReadRegistryFile(s.RegistryPath)
	if err != nil {
		return Tables{}, err
	}
	geo, err := ReadGeoFile(s.GeoPath)
	if err != nil {
		return Tables{}, err
	}
	tables := Tables{Registry: registry, Geo: geo}

	switch src {
	case SourceSnapshot:
		tables.Occupancy, err = ReadOccupancyFile(s.OccupancyPath)
	case SourceDirectory:
		tables.Occupancy, err = ReadFragments(ctx, s.FragmentDir)
	}
	return tables, err
}

// registryCSV and friends describe the on-disk columns. Every cell is read
// as text so empty cells can be told apart from zero values.
type registryCSV struct {
	FacilityID  string `csv:"facility_id"`
	StationName string `csv:"station_name"`
}

type geoCSV struct {
	FacilityID string `csv:"facility_id"`
	FullName   string `csv:"full_name"`
	ShortName  string `csv:"short_name"`
	Address    string `csv:"address"`
	Latitude   string `csv:"latitude"`
	Longitude  string `csv:"longitude"`
}

type occupancyCSV struct {
	FacilityID string `csv:"facility_id"`
	Total      string `csv:"total"`
	Occupied   string `csv:"occupied"`
	Available  string `csv:"available"`
	Timestamp  string `csv:"timestamp"`
	Zones      string `csv:"zones"`
}

// fragment is the JSON document written per station by the ingest job.
type fragment struct {
	FacilityID string  `json:"facility_id"`
	Total      *int    `json:"total"`
	Occupied   *int    `json:"occupied"`
	Available  *int    `json:"available"`
	Timestamp  *string `json:"timestamp"`
	Zones      string  `json:"zones"`
}

// ReadRegistryFile reads the station registry table.
func ReadRegistryFile(path string) ([]RegistryRow, error) {
	raw, err := readTable[registryCSV](path)
	if err != nil {
		return nil, err
	}

	rows := make([]RegistryRow, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, RegistryRow{
			StationID:   strings.TrimSpace(r.FacilityID),
			StationName: r.StationName,
		})
	}
	return rows, nil
}

// ReadGeoFile reads the station geo table.
func ReadGeoFile(path string) ([]GeoRow, error) {
	raw, err := readTable[geoCSV](path)
	if err != nil {
		return nil, err
	}

	rows := make([]GeoRow, 0, len(raw))
	for i, r := range raw {
		lat, err := optionalFloat(r.Latitude)
		if err != nil {
			return nil, rowError(path, i, "latitude", err)
		}
		lon, err := optionalFloat(r.Longitude)
		if err != nil {
			return nil, rowError(path, i, "longitude", err)
		}
		rows = append(rows, GeoRow{
			StationID: strings.TrimSpace(r.FacilityID),
			FullName:  optionalString(r.FullName),
			ShortName: optionalString(r.ShortName),
			Address:   optionalString(r.Address),
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return rows, nil
}

// ReadOccupancyFile reads the pre-aggregated occupancy table.
func ReadOccupancyFile(path string) ([]OccupancyRow, error) {
	raw, err := readTable[occupancyCSV](path)
	if err != nil {
		return nil, err
	}

	rows := make([]OccupancyRow, 0, len(raw))
	for i, r := range raw {
		row := OccupancyRow{
			StationID: strings.TrimSpace(r.FacilityID),
			Timestamp: optionalString(r.Timestamp),
			Zones:     r.Zones,
		}
		if row.Total, err = optionalInt(r.Total); err != nil {
			return nil, rowError(path, i, "total", err)
		}
		if row.Occupied, err = optionalInt(r.Occupied); err != nil {
			return nil, rowError(path, i, "occupied", err)
		}
		if row.Available, err = optionalInt(r.Available); err != nil {
			return nil, rowError(path, i, "available", err)
		}
		rows = append(rows, row)
	}
	return NormalizeOccupancy(rows), nil
}

// ReadFragments concatenates every *.json fragment in dir, in file name
// order. An existing directory without fragments yields *NoDataError.
func ReadFragments(ctx context.Context, dir string) ([]OccupancyRow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &SourceUnavailableError{Path: dir, Err: err}
	}

	rows := make([]OccupancyRow, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FragmentExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &SourceUnavailableError{Path: path, Err: err}
		}

		var frag fragment
		if err := json.Unmarshal(data, &frag); err != nil {
			return nil, &SourceUnavailableError{Path: path, Err: fmt.Errorf("decode fragment: %w", err)}
		}
		if frag.Timestamp != nil && strings.TrimSpace(*frag.Timestamp) == "" {
			frag.Timestamp = nil
		}

		rows = append(rows, OccupancyRow{
			StationID: strings.TrimSpace(frag.FacilityID),
			Total:     frag.Total,
			Occupied:  frag.Occupied,
			Available: frag.Available,
			Timestamp: frag.Timestamp,
			Zones:     frag.Zones,
		})
	}

	if len(rows) == 0 {
		return nil, &NoDataError{Dir: dir}
	}

	log.Debug().Str("dir", dir).Int("fragments", len(rows)).Msg("Loaded occupancy fragments")
	return NormalizeOccupancy(rows), nil
}

// WriteRegistryFile writes the registry table, replacing path atomically.
func WriteRegistryFile(path string, rows []RegistryRow) error {
	out := make([]registryCSV, 0, len(rows))
	for _, r := range rows {
		out = append(out, registryCSV{FacilityID: r.StationID, StationName: r.StationName})
	}
	return writeTable(path, out)
}

// WriteGeoFile writes the geo table, replacing path atomically.
func WriteGeoFile(path string, rows []GeoRow) error {
	out := make([]geoCSV, 0, len(rows))
	for _, r := range rows {
		out = append(out, geoCSV{
			FacilityID: r.StationID,
			FullName:   formatString(r.FullName),
			ShortName:  formatString(r.ShortName),
			Address:    formatString(r.Address),
			Latitude:   formatFloat(r.Latitude),
			Longitude:  formatFloat(r.Longitude),
		})
	}
	return writeTable(path, out)
}

// WriteOccupancyFile writes the pre-aggregated occupancy table, replacing path
// atomically.
func WriteOccupancyFile(path string, rows []OccupancyRow) error {
	out := make([]occupancyCSV, 0, len(rows))
	for _, r := range rows {
		out = append(out, occupancyCSV{
			FacilityID: r.StationID,
			Total:      formatInt(r.Total),
			Occupied:   formatInt(r.Occupied),
			Available:  formatInt(r.Available),
			Timestamp:  formatString(r.Timestamp),
			Zones:      r.Zones,
		})
	}
	return writeTable(path, out)
}

// WriteFragment writes <dir>/<station_id>.json for one occupancy row.
func WriteFragment(dir string, row OccupancyRow) error {
	data, err := json.Marshal(fragment{
		FacilityID: row.StationID,
		Total:      row.Total,
		Occupied:   row.Occupied,
		Available:  row.Available,
		Timestamp:  row.Timestamp,
		Zones:      row.Zones,
	})
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, row.StationID+FragmentExt), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

func readTable[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceUnavailableError{Path: path, Err: err}
	}
	defer f.Close()

	rows := make([]T, 0)
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, &SourceUnavailableError{Path: path, Err: err}
	}
	return rows, nil
}

func writeTable[T any](path string, rows []T) error {
	return writeAtomic(path, func(f *os.File) error {
		return gocsv.Marshal(&rows, f)
	})
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func rowError(path string, row int, column string, err error) error {
	return &SourceUnavailableError{Path: path, Err: fmt.Errorf("row %d column %s: %w", row+1, column, err)}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func optionalInt(v string) (*int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// pandas writes integer columns holding nulls as floats
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return nil, err
		}
		n = int(f)
	}
	return &n, nil
}

func optionalFloat(v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
