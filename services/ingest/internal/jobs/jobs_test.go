package jobs

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/parkride/parkride/services/api/snapshot"
	"github.com/parkride/parkride/services/ingest/internal/carpark"
	"github.com/parkride/parkride/services/ingest/internal/models"
)

type fakeFetcher struct {
	list       []models.StationEntry
	facilities map[string]models.Facility
	failures   map[string]error
}

func (f *fakeFetcher) FetchStationList(context.Context) ([]models.StationEntry, error) {
	return f.list, nil
}

func (f *fakeFetcher) FetchFacility(_ context.Context, id string) (models.Facility, error) {
	if err, ok := f.failures[id]; ok {
		return models.Facility{}, err
	}
	return f.facilities[id], nil
}

type recordingMirror struct {
	stations  []snapshot.RegistryRow
	geo       []snapshot.GeoRow
	occupancy []snapshot.OccupancyRow
}

func (m *recordingMirror) ReplaceStations(_ context.Context, rows []snapshot.RegistryRow) error {
	m.stations = rows
	return nil
}

func (m *recordingMirror) ReplaceStationGeo(_ context.Context, rows []snapshot.GeoRow) error {
	m.geo = rows
	return nil
}

func (m *recordingMirror) UpsertParkingLots(_ context.Context, rows []snapshot.OccupancyRow) error {
	m.occupancy = rows
	return nil
}

func newFetcher() *fakeFetcher {
	return &fakeFetcher{
		list: []models.StationEntry{
			{FacilityID: "487", Name: "Kogarah Station Car Park"},
			{FacilityID: "486", Name: "Ashfield Station Car Park"},
			{FacilityID: "999", Name: "Closed Car Park"},
		},
		facilities: map[string]models.Facility{
			"486": {
				FacilityName: "Park&Ride - Ashfield",
				Spots:        "205",
				Occupancy:    models.Occupancy{Total: "5"},
				MessageDate:  "2024-09-04T20:09:02",
				Location:     models.Location{Suburb: "Ashfield", Address: "Brown Street", Latitude: "-33.888104", Longitude: "151.126577"},
			},
			"487": {
				FacilityName: "Park&Ride - Kogarah",
				Spots:        "259",
				Occupancy:    models.Occupancy{Total: "9"},
				MessageDate:  "2024-09-04T20:09:01",
				Location:     models.Location{Suburb: "Kogarah", Address: "Railway Parade", Latitude: "-33.963", Longitude: "151.133"},
			},
		},
		failures: map[string]error{
			"999": &carpark.StatusError{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		},
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	mirror := &recordingMirror{}
	runner := &Runner{Client: newFetcher(), DataDir: dir, Mirror: mirror}
	ctx := context.Background()

	if err := runner.Registry(ctx); err != nil {
		t.Fatalf("Registry failed: %v", err)
	}
	if err := runner.Geo(ctx); err != nil {
		t.Fatalf("Geo failed: %v", err)
	}
	if err := runner.Occupancy(ctx); err != nil {
		t.Fatalf("Occupancy failed: %v", err)
	}

	if len(mirror.stations) != 3 || len(mirror.geo) != 2 || len(mirror.occupancy) != 2 {
		t.Errorf("unexpected mirror contents: %d/%d/%d", len(mirror.stations), len(mirror.geo), len(mirror.occupancy))
	}

	tables, err := snapshot.NewFileStore(dir).Load(ctx, snapshot.SourceDirectory)
	if err != nil {
		t.Fatalf("Load(directory) failed: %v", err)
	}
	if tables.Registry[0].StationID != "487" {
		t.Errorf("registry order lost: %+v", tables.Registry)
	}
	if len(tables.Occupancy) != 2 {
		t.Fatalf("expected two fragments, got %+v", tables.Occupancy)
	}
	for _, row := range tables.Occupancy {
		if *row.Occupied+*row.Available != *row.Total || row.Timestamp == nil {
			t.Errorf("unexpected occupancy row: %+v", row)
		}
	}

	snap, err := snapshot.NewFileStore(dir).Load(ctx, snapshot.SourceSnapshot)
	if err != nil {
		t.Fatalf("Load(snapshot) failed: %v", err)
	}
	if len(snap.Occupancy) != 2 || snap.Occupancy[0].StationID != "487" {
		t.Errorf("unexpected snapshot occupancy: %+v", snap.Occupancy)
	}
}

func TestOccupancyKeepsPreviousFragment(t *testing.T) {
	dir := t.TempDir()
	fetcher := newFetcher()
	runner := &Runner{Client: fetcher, DataDir: dir}
	ctx := context.Background()

	if err := runner.Registry(ctx); err != nil {
		t.Fatal(err)
	}
	if err := runner.Occupancy(ctx); err != nil {
		t.Fatal(err)
	}

	fetcher.failures["486"] = &carpark.StatusError{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}
	fetcher.facilities["487"] = models.Facility{Spots: "259", Occupancy: models.Occupancy{Total: "100"}, MessageDate: "2024-09-04T20:19:01"}
	if err := runner.Occupancy(ctx); err != nil {
		t.Fatal(err)
	}

	rows, err := snapshot.ReadFragments(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]snapshot.OccupancyRow{}
	for _, row := range rows {
		byID[row.StationID] = row
	}
	if *byID["486"].Available != 200 {
		t.Errorf("previous 486 fragment lost: %+v", byID["486"])
	}
	if *byID["487"].Occupied != 100 {
		t.Errorf("487 fragment not refreshed: %+v", byID["487"])
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	runner := &Runner{Client: newFetcher(), DataDir: dir, DryRun: true}

	if err := runner.Registry(context.Background()); err != nil {
		t.Fatalf("Registry failed: %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("dry run created %s: %v", dir, err)
	}
}

func TestGeoWithoutRegistry(t *testing.T) {
	runner := &Runner{Client: newFetcher(), DataDir: t.TempDir()}

	if err := runner.Geo(context.Background()); err == nil {
		t.Fatal("expected an error without station.csv")
	}
}

func TestTransportErrorAborts(t *testing.T) {
	dir := t.TempDir()
	fetcher := newFetcher()
	runner := &Runner{Client: fetcher, DataDir: dir}
	if err := runner.Registry(context.Background()); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("connection reset")
	fetcher.failures["486"] = boom
	if err := runner.Occupancy(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
