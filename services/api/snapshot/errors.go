package snapshot

import "fmt"

// SourceUnavailableError reports a snapshot file or fragment directory that is
// missing or unreadable. Loads are never retried here.
type SourceUnavailableError struct {
	Path string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("snapshot source unavailable: %s: %v", e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// NoDataError reports a fragment directory without any usable fragment. The
// accompanying Tables are still valid, with an empty occupancy table.
type NoDataError struct {
	Dir string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no occupancy fragments found in %s", e.Dir)
}
