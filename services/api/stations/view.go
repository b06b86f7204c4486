package stations

import "fmt"

// DataIntegrityError reports a station id that occurs more than once in the
// merged view. It points at a defect in the source tables.
type DataIntegrityError struct {
	StationID string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("duplicate station_id %q in merged view", e.StationID)
}

// ProjectMapping keys records by station id.
func ProjectMapping(records []Record) (map[string]Record, error) {
	out := make(map[string]Record, len(records))
	for _, rec := range records {
		if _, dup := out[rec.StationID]; dup {
			return nil, &DataIntegrityError{StationID: rec.StationID}
		}
		out[rec.StationID] = rec
	}
	return out, nil
}

// ProjectList returns a copy of records in merge order.
func ProjectList(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
