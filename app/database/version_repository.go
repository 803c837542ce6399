package database

import (
	"database/sql"
	"fmt"
)

var _ VersionRepository = (*VersionRepositoryImpl)(nil)

// VersionRepositoryImpl handles database operations for archived asset versions
type VersionRepositoryImpl struct {
	db *DB
}

func NewVersionRepository(db *DB) *VersionRepositoryImpl {
	return &VersionRepositoryImpl{db: db}
}

const versionColumns = `id, base_name, version, locator, file_type, category, priority,
	       content_hash, size, archived_at`

func (r *VersionRepositoryImpl) GetVersions(baseName string) ([]AssetVersion, error) {
	rows, err := r.db.Query(`
		SELECT `+versionColumns+`
		FROM asset_versions
		WHERE base_name = ?
		ORDER BY archived_at ASC, id ASC
	`, baseName)
	if err != nil {
		return nil, fmt.Errorf("failed to get versions: %w", err)
	}
	defer rows.Close()

	var versions []AssetVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		versions = append(versions, *v)
	}

	return versions, rows.Err()
}

func (r *VersionRepositoryImpl) GetVersion(baseName, version string) (*AssetVersion, error) {
	row := r.db.QueryRow(`
		SELECT `+versionColumns+`
		FROM asset_versions
		WHERE base_name = ? AND version = ?
		ORDER BY archived_at DESC, id DESC
		LIMIT 1
	`, baseName, version)

	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	return v, nil
}

func (r *VersionRepositoryImpl) SaveVersion(v AssetVersion) error {
	_, err := r.db.Exec(`
		INSERT INTO asset_versions (
			base_name, version, locator, file_type, category, priority,
			content_hash, size, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.BaseName, nullableStringArg(v.Version), v.Locator, v.FileType,
		v.Category, v.Priority, v.ContentHash, v.Size, formatTime(v.ArchivedAt))
	if err != nil {
		return fmt.Errorf("failed to save version: %w", err)
	}
	return nil
}

func (r *VersionRepositoryImpl) GetVersionCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM asset_versions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get version count: %w", err)
	}
	return count, nil
}

func scanVersion(row rowScanner) (*AssetVersion, error) {
	var v AssetVersion
	var version sql.NullString
	var archivedAt string

	err := row.Scan(
		&v.ID, &v.BaseName, &version, &v.Locator, &v.FileType,
		&v.Category, &v.Priority, &v.ContentHash, &v.Size, &archivedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Version = nullableString(version)
	if err := scanTime(archivedAt, &v.ArchivedAt); err != nil {
		return nil, err
	}

	return &v, nil
}
