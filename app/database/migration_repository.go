package database

import (
	"database/sql"
	"fmt"
)

var _ MigrationRepository = (*MigrationRepositoryImpl)(nil)

// MigrationRepositoryImpl handles the append-only migration audit log
type MigrationRepositoryImpl struct {
	db *DB
}

func NewMigrationRepository(db *DB) *MigrationRepositoryImpl {
	return &MigrationRepositoryImpl{db: db}
}

func (r *MigrationRepositoryImpl) SaveRecord(rec MigrationRecord) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO migration_records (
			base_name, from_version, to_version, outcome, reason, duration_ms, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.BaseName, nullableStringArg(rec.FromVersion), nullableStringArg(rec.ToVersion),
		string(rec.Outcome), rec.Reason, rec.DurationMs, formatTime(rec.OccurredAt))
	if err != nil {
		return 0, fmt.Errorf("failed to save migration record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id: %w", err)
	}

	return id, nil
}

func (r *MigrationRepositoryImpl) GetRecords(baseName string, limit int) ([]MigrationRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, base_name, from_version, to_version, outcome, reason, duration_ms, occurred_at
		FROM migration_records
		WHERE base_name = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, baseName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *MigrationRepositoryImpl) GetRecentRecords(limit int) ([]MigrationRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, base_name, from_version, to_version, outcome, reason, duration_ms, occurred_at
		FROM migration_records
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent migration records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *MigrationRepositoryImpl) CountByOutcome() (map[MigrationOutcome]int, error) {
	rows, err := r.db.Query(`
		SELECT outcome, COUNT(*) FROM migration_records GROUP BY outcome
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count migration records: %w", err)
	}
	defer rows.Close()

	counts := make(map[MigrationOutcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[MigrationOutcome(outcome)] = count
	}

	return counts, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]MigrationRecord, error) {
	var records []MigrationRecord
	for rows.Next() {
		var rec MigrationRecord
		var fromVersion, toVersion sql.NullString
		var outcome, occurredAt string

		err := rows.Scan(
			&rec.ID, &rec.BaseName, &fromVersion, &toVersion,
			&outcome, &rec.Reason, &rec.DurationMs, &occurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}

		rec.FromVersion = nullableString(fromVersion)
		rec.ToVersion = nullableString(toVersion)
		rec.Outcome = MigrationOutcome(outcome)
		if err := scanTime(occurredAt, &rec.OccurredAt); err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
