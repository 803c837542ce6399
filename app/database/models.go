package database

import (
	"database/sql"
	"time"
)

// MigrationOutcome is the terminal result of one migration attempt.
type MigrationOutcome string

const (
	OutcomeSucceeded        MigrationOutcome = "SUCCEEDED"
	OutcomeValidationFailed MigrationOutcome = "VALIDATION_FAILED"
	OutcomeRolledBack       MigrationOutcome = "ROLLED_BACK"
)

// AlertKind classifies notification-worthy events.
type AlertKind string

const (
	AlertNewVersionDetected   AlertKind = "NEW_VERSION_DETECTED"
	AlertMigrationSucceeded   AlertKind = "MIGRATION_SUCCEEDED"
	AlertMigrationFailed      AlertKind = "MIGRATION_FAILED"
	AlertRollbackPerformed    AlertKind = "ROLLBACK_PERFORMED"
	AlertRepeatedFetchFailure AlertKind = "REPEATED_FETCH_FAILURE"
)

// TrackedAsset is the active record for one logical asset. Version is nil
// for assets whose locator carries no recognizable version token; those are
// migrated on content hash change only.
type TrackedAsset struct {
	ID                      int64
	BaseName                string
	Locator                 string
	Version                 *string
	FileType                string
	Domain                  string
	Category                string
	Priority                string
	ContentHash             string
	Size                    int64
	IsActive                bool
	ConsecutiveFailureCount int
	LastFailureAt           *time.Time
	LastCheckedAt           *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// AssetVersion is an immutable archived snapshot of a superseded active record.
type AssetVersion struct {
	ID          int64
	BaseName    string
	Version     *string
	Locator     string
	FileType    string
	Category    string
	Priority    string
	ContentHash string
	Size        int64
	ArchivedAt  time.Time
}

// DiscoveredCandidate is an observed locator not yet reconciled against the
// catalog. Terminal once Resolved is set (promoted, ignored or superseded).
type DiscoveredCandidate struct {
	ID           int64
	Locator      string
	BaseName     string
	Version      *string
	ContentHash  string
	Size         int64
	SourcePage   string
	DiscoveredAt time.Time
	NotifiedAt   *time.Time
	Resolved     bool
	Resolution   string
}

// MigrationRecord is one row of the append-only migration audit log.
type MigrationRecord struct {
	ID          int64
	BaseName    string
	FromVersion *string
	ToVersion   *string
	Outcome     MigrationOutcome
	Reason      string
	DurationMs  int64
	OccurredAt  time.Time
}

type VersionAlert struct {
	ID          int64
	Kind        AlertKind
	BaseName    string
	FromVersion *string
	ToVersion   *string
	Locator     string
	Details     string
	CreatedAt   time.Time
}

// ActiveState carries the fields the Migration Manager overwrites on the
// active record when a migration or rollback is applied.
type ActiveState struct {
	Locator     string
	Version     *string
	ContentHash string
	Size        int64
}

// Timestamps are stored as RFC3339Nano UTC strings.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func scanTime(s string, dst *time.Time) error {
	t, err := parseTime(s)
	if err != nil {
		return err
	}
	*dst = t
	return nil
}

func scanNullableTime(ns sql.NullString, dst **time.Time) error {
	if !ns.Valid || ns.String == "" {
		*dst = nil
		return nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return err
	}
	*dst = &t
	return nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableStringArg(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
