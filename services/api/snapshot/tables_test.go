package snapshot

import (
	"errors"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestNormalizeOccupancy(t *testing.T) {
	ts := "2024-09-04T20:09:02"
	tests := []struct {
		name          string
		row           OccupancyRow
		wantStale     bool
		wantAvailable int
	}{
		{"consistent", OccupancyRow{Total: intPtr(205), Occupied: intPtr(5), Available: intPtr(200), Timestamp: &ts}, false, 200},
		{"derived available", OccupancyRow{Total: intPtr(10), Occupied: intPtr(3), Timestamp: &ts}, false, 7},
		{"inconsistent available", OccupancyRow{Total: intPtr(10), Occupied: intPtr(3), Available: intPtr(9), Timestamp: &ts}, false, 7},
		{"missing total", OccupancyRow{Occupied: intPtr(3), Timestamp: &ts}, true, 0},
		{"over capacity", OccupancyRow{Total: intPtr(3), Occupied: intPtr(4), Timestamp: &ts}, true, 0},
		{"negative", OccupancyRow{Total: intPtr(3), Occupied: intPtr(-1), Timestamp: &ts}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeOccupancy([]OccupancyRow{tt.row})[0]
			if stale := got.Timestamp == nil; stale != tt.wantStale {
				t.Fatalf("stale = %v, want %v", stale, tt.wantStale)
			}
			if tt.wantStale {
				return
			}
			if *got.Available != tt.wantAvailable {
				t.Errorf("available = %d, want %d", *got.Available, tt.wantAvailable)
			}
			if *got.Occupied+*got.Available != *got.Total {
				t.Errorf("sum invariant violated: %+v", got)
			}
		})
	}
}

func TestNormalizeOccupancyKeepsStaleRows(t *testing.T) {
	rows := NormalizeOccupancy([]OccupancyRow{{StationID: "1", Total: intPtr(4)}})
	if len(rows) != 1 || rows[0].Timestamp != nil || *rows[0].Total != 4 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestParseSource(t *testing.T) {
	tests := map[string]Source{
		"snapshot":            SourceSnapshot,
		"primary-snapshot":    SourceSnapshot,
		"PARQUET":             SourceSnapshot,
		" directory ":         SourceDirectory,
		"on-demand-directory": SourceDirectory,
		"json":                SourceDirectory,
	}
	for name, want := range tests {
		got, err := ParseSource(name)
		if err != nil {
			t.Errorf("ParseSource(%q) error: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseSource(%q) = %s, want %s", name, got, want)
		}
	}

	if _, err := ParseSource("ftp"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
	if got := SourceDirectory.String(); got != "on-demand-directory" {
		t.Errorf("String() = %q", got)
	}
	if Source(0).Valid() {
		t.Error("zero Source should be invalid")
	}
}
