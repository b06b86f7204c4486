package carpark

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const facilityPayload = `{
  "tsn": "2135",
  "time": "778740542",
  "spots": "205",
  "zones": [
    {"spots": "205", "zone_id": "1", "zone_name": "Ashfield Car Park", "occupancy": {"total": "5"}},
    {"spots": "0", "zone_id": "2", "zone_name": "", "occupancy": {"total": null}}
  ],
  "ParkID": "1",
  "occupancy": {"loop": null, "total": "5", "monthlies": null},
  "MessageDate": "2024-09-04T20:09:02",
  "facility_id": "486",
  "facility_name": "Park&Ride - Ashfield",
  "location": {"suburb": "Ashfield", "address": "Brown Street", "latitude": "-33.888104", "longitude": 151.126577}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/v1/carpark", "secret", 5*time.Second)
}

func TestFetchStationListKeepsOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "apikey secret" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Get("facility") != "" {
			t.Errorf("unexpected facility query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"487": "Kogarah Station Car Park", "10": "Tallawong Station Car Park", "486": "Ashfield Station Car Park"}`))
	})

	entries, err := client.FetchStationList(context.Background())
	if err != nil {
		t.Fatalf("FetchStationList failed: %v", err)
	}

	want := []string{"487", "10", "486"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, id := range want {
		if entries[i].FacilityID != id {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].FacilityID, id)
		}
	}
	if entries[2].Name != "Ashfield Station Car Park" {
		t.Errorf("unexpected name: %q", entries[2].Name)
	}
}

func TestFetchStationListRejectsArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["486"]`))
	})

	if _, err := client.FetchStationList(context.Background()); err == nil {
		t.Fatal("expected an error for a non-object payload")
	}
}

func TestFetchFacility(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("facility"); got != "486" {
			t.Errorf("facility = %q", got)
		}
		w.Write([]byte(facilityPayload))
	})

	facility, err := client.FetchFacility(context.Background(), "486")
	if err != nil {
		t.Fatalf("FetchFacility failed: %v", err)
	}

	if facility.FacilityName != "Park&Ride - Ashfield" || facility.MessageDate != "2024-09-04T20:09:02" {
		t.Errorf("unexpected facility: %+v", facility)
	}
	if spots, err := facility.Spots.Int(); err != nil || spots != 205 {
		t.Errorf("spots = %d, %v", spots, err)
	}
	if lon, err := facility.Location.Longitude.Float(); err != nil || lon != 151.126577 {
		t.Errorf("longitude = %v, %v", lon, err)
	}
	if len(facility.Zones) != 2 || facility.Zones[1].Name != "" {
		t.Errorf("unexpected zones: %+v", facility.Zones)
	}
}

func TestFetchFacilityStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	_, err := client.FetchFacility(context.Background(), "999")
	var status *StatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
}

func TestFetchFacilityInvalidID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	for _, id := range []string{"", "48a", "-1", " 486"} {
		if _, err := client.FetchFacility(context.Background(), id); !errors.Is(err, ErrInvalidFacilityID) {
			t.Errorf("FetchFacility(%q) = %v, want ErrInvalidFacilityID", id, err)
		}
	}
}
