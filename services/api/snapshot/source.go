package snapshot

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSource is returned when a selector name matches no Source.
var ErrUnknownSource = errors.New("unknown data source")

// Source selects where occupancy figures are read from. Registry and geo
// tables are shared by every source.
type Source int

const (
	// SourceSnapshot reads the single pre-aggregated occupancy table.
	SourceSnapshot Source = iota + 1
	// SourceDirectory scans a directory of per-station occupancy fragments.
	SourceDirectory
)

// Sources lists every valid selector.
var Sources = []Source{SourceSnapshot, SourceDirectory}

func (s Source) String() string {
	switch s {
	case SourceSnapshot:
		return "primary-snapshot"
	case SourceDirectory:
		return "on-demand-directory"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Valid reports whether s is one of the declared selectors.
func (s Source) Valid() bool {
	return s == SourceSnapshot || s == SourceDirectory
}

// ParseSource maps a selector name to a Source. Short aliases are accepted
// for query strings and environment variables.
func ParseSource(name string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "snapshot", "primary-snapshot", "parquet":
		return SourceSnapshot, nil
	case "directory", "on-demand-directory", "json":
		return SourceDirectory, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSource, name)
}
