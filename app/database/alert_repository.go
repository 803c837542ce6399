package database

import (
	"database/sql"
	"fmt"
)

var _ AlertRepository = (*AlertRepositoryImpl)(nil)

// AlertRepositoryImpl handles database operations for version alerts
type AlertRepositoryImpl struct {
	db *DB
}

func NewAlertRepository(db *DB) *AlertRepositoryImpl {
	return &AlertRepositoryImpl{db: db}
}

func (r *AlertRepositoryImpl) SaveAlert(a VersionAlert) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO version_alerts (
			kind, base_name, from_version, to_version, locator, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(a.Kind), a.BaseName, nullableStringArg(a.FromVersion),
		nullableStringArg(a.ToVersion), a.Locator, a.Details, formatTime(a.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to save alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id: %w", err)
	}

	return id, nil
}

func (r *AlertRepositoryImpl) GetRecentAlerts(limit int) ([]VersionAlert, error) {
	rows, err := r.db.Query(`
		SELECT id, kind, base_name, from_version, to_version, locator, details, created_at
		FROM version_alerts
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []VersionAlert
	for rows.Next() {
		var a VersionAlert
		var fromVersion, toVersion sql.NullString
		var kind, createdAt string

		err := rows.Scan(
			&a.ID, &kind, &a.BaseName, &fromVersion, &toVersion,
			&a.Locator, &a.Details, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}

		a.Kind = AlertKind(kind)
		a.FromVersion = nullableString(fromVersion)
		a.ToVersion = nullableString(toVersion)
		if err := scanTime(createdAt, &a.CreatedAt); err != nil {
			return nil, err
		}

		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

func (r *AlertRepositoryImpl) GetAlertCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM version_alerts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get alert count: %w", err)
	}
	return count, nil
}
