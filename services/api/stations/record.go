// Package stations builds the per-station car park view: the merge of the
// registry, geo and occupancy tables, the projections served to API
// consumers, and the cached service tying them to a snapshot loader.
package stations

import (
	"encoding/json"
	"fmt"
)

// Coordinates is a (latitude, longitude) pair serialized as a two-element
// array. Missing components are null.
type Coordinates struct {
	Latitude  *float64
	Longitude *float64
}

func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]*float64{c.Latitude, c.Longitude})
}

func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var pair [2]*float64
	if string(data) != "null" {
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("coordinates: %w", err)
		}
	}
	c.Latitude, c.Longitude = pair[0], pair[1]
	return nil
}

// Record is one station of the merged view. Every field is always emitted;
// absent values encode as null.
type Record struct {
	StationID   string      `json:"station_id"`
	ShortName   *string     `json:"short_name"`
	FullName    *string     `json:"full_name"`
	Address     *string     `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	Total       *int        `json:"total"`
	Available   *int        `json:"available"`
	Occupied    *int        `json:"occupied"`
	Timestamp   *string     `json:"timestamp"`
}

// Fresh reports whether the record carries an occupancy timestamp.
func (r Record) Fresh() bool {
	return r.Timestamp != nil
}

// Announce describes the station availability in one sentence.
func (r Record) Announce() string {
	name := r.StationID
	if r.ShortName != nil {
		name = *r.ShortName
	}
	if r.Available == nil {
		return fmt.Sprintf("The station %s has no availability data", name)
	}
	return fmt.Sprintf("The station %s has %d available slots", name, *r.Available)
}
