package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number is a numeric field the car park API sends either as a JSON number
// or as a quoted string.
type Number string

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(strings.TrimSpace(s))
		return nil
	}
	*n = Number(data)
	return nil
}

// Int parses the value as a whole number. "12.0" is accepted.
func (n Number) Int() (int, error) {
	if v, err := strconv.Atoi(string(n)); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", string(n))
	}
	return int(f), nil
}

// Float parses the value as a float.
func (n Number) Float() (float64, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", string(n))
	}
	return f, nil
}

// Facility models the per-facility payload of the car park API.
type Facility struct {
	FacilityID   string    `json:"facility_id"`
	FacilityName string    `json:"facility_name"`
	Spots        Number    `json:"spots"`
	Zones        []Zone    `json:"zones"`
	Location     Location  `json:"location"`
	Occupancy    Occupancy `json:"occupancy"`
	MessageDate  string    `json:"MessageDate"`
}

// Zone is one parking zone. The raw document is kept so zones can be
// re-encoded unchanged.
type Zone struct {
	Name string
	raw  json.RawMessage
}

func (z *Zone) UnmarshalJSON(data []byte) error {
	var head struct {
		Name string `json:"zone_name"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	z.Name = head.Name
	z.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (z Zone) MarshalJSON() ([]byte, error) {
	if z.raw == nil {
		return json.Marshal(map[string]string{"zone_name": z.Name})
	}
	return z.raw, nil
}

// Location carries the facility address and coordinates.
type Location struct {
	Suburb    string `json:"suburb"`
	Address   string `json:"address"`
	Latitude  Number `json:"latitude"`
	Longitude Number `json:"longitude"`
}

// Occupancy holds the facility-wide counters.
type Occupancy struct {
	Total Number `json:"total"`
}

// StationEntry is one item of the facility list, in upstream order.
type StationEntry struct {
	FacilityID string
	Name       string
}
