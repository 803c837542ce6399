package database

import (
	"time"
)

type AssetRepository interface {
	GetAsset(baseName string) (*TrackedAsset, error)
	GetActiveAssets() ([]TrackedAsset, error)
	GetAssetCount() (int, error)

	// RegisterAsset inserts a new active record if none exists for the base
	// name. Returns true when a record was created.
	RegisterAsset(asset TrackedAsset) (bool, error)

	// ActivateVersion archives the current active state and overwrites the
	// active record in a single transaction. The expectedHash guard detects
	// concurrent writers: if the active record's content hash no longer
	// matches, ErrWriteConflict is returned and nothing is written.
	ActivateVersion(baseName, expectedHash string, next ActiveState, archive AssetVersion) error

	UpdateCheckResult(baseName, contentHash string, size int64, checkedAt time.Time) error

	// RecordFetchFailure increments the consecutive failure counter and
	// returns the new count.
	RecordFetchFailure(baseName string, at time.Time) (int, error)
	ResetFetchFailures(baseName string) error
}

type VersionRepository interface {
	// GetVersions returns the archive for a base name ordered by archived_at
	// ascending.
	GetVersions(baseName string) ([]AssetVersion, error)

	// GetVersion returns the most recent archived snapshot carrying the
	// given version token, or nil if none exists.
	GetVersion(baseName, version string) (*AssetVersion, error)

	SaveVersion(v AssetVersion) error
	GetVersionCount() (int, error)
}

type CandidateRepository interface {
	// SaveCandidate inserts a candidate keyed by locator. Returns false when
	// the locator is already known.
	SaveCandidate(c DiscoveredCandidate) (bool, error)
	CandidateExists(locator string) (bool, error)
	GetUnresolvedCandidates() ([]DiscoveredCandidate, error)
	GetUnresolvedCount() (int, error)
	MarkResolved(id int64, resolution string) error
	MarkNotified(id int64, at time.Time) error
}

type MigrationRepository interface {
	SaveRecord(r MigrationRecord) (int64, error)
	GetRecords(baseName string, limit int) ([]MigrationRecord, error)
	GetRecentRecords(limit int) ([]MigrationRecord, error)
	CountByOutcome() (map[MigrationOutcome]int, error)
}

type AlertRepository interface {
	SaveAlert(a VersionAlert) (int64, error)
	GetRecentAlerts(limit int) ([]VersionAlert, error)
	GetAlertCount() (int, error)
}
