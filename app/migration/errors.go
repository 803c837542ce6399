package migration

import (
	"errors"
	"fmt"
)

// ErrVersionNotFound is returned when a rollback target is absent from the
// version archive. The request is rejected with no state change and no
// migration record.
var ErrVersionNotFound = errors.New("version not found in archive")

// SizeAnomalyError reports a validation fetch whose size deviates from the
// active record's size by more than the configured factor, guarding against
// truncated or corrupted downloads.
type SizeAnomalyError struct {
	CurrentSize int64
	NewSize     int64
	Factor      float64
}

func (e *SizeAnomalyError) Error() string {
	return fmt.Sprintf("size anomaly: %d bytes vs current %d bytes (allowed factor %.1f)",
		e.NewSize, e.CurrentSize, e.Factor)
}
