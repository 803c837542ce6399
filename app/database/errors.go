package database

import "errors"

var (
	// ErrWriteConflict is returned when a compare-and-swap on the active
	// record finds that a concurrent writer got there first.
	ErrWriteConflict = errors.New("catalog write conflict")

	// ErrAssetNotFound is returned when no active record exists for the
	// requested base name.
	ErrAssetNotFound = errors.New("asset not found")
)
