package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ AssetRepository = (*AssetRepositoryImpl)(nil)

// AssetRepositoryImpl handles database operations for tracked assets
type AssetRepositoryImpl struct {
	db *DB
}

func NewAssetRepository(db *DB) *AssetRepositoryImpl {
	return &AssetRepositoryImpl{db: db}
}

const assetColumns = `id, base_name, locator, version, file_type, domain, category, priority,
	       content_hash, size, is_active, consecutive_failure_count,
	       last_failure_at, last_checked_at, created_at, updated_at`

func (r *AssetRepositoryImpl) GetAsset(baseName string) (*TrackedAsset, error) {
	row := r.db.QueryRow(`
		SELECT `+assetColumns+`
		FROM tracked_assets
		WHERE base_name = ? AND is_active = 1
	`, baseName)

	asset, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return asset, nil
}

func (r *AssetRepositoryImpl) GetActiveAssets() ([]TrackedAsset, error) {
	rows, err := r.db.Query(`
		SELECT ` + assetColumns + `
		FROM tracked_assets
		WHERE is_active = 1
		ORDER BY base_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active assets: %w", err)
	}
	defer rows.Close()

	var assets []TrackedAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset row: %w", err)
		}
		assets = append(assets, *asset)
	}

	return assets, rows.Err()
}

func (r *AssetRepositoryImpl) GetAssetCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM tracked_assets WHERE is_active = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get asset count: %w", err)
	}
	return count, nil
}

func (r *AssetRepositoryImpl) RegisterAsset(asset TrackedAsset) (bool, error) {
	existing, err := r.GetAsset(asset.BaseName)
	if err != nil {
		return false, fmt.Errorf("failed to check existing asset: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	now := time.Now()
	_, err = r.db.Exec(`
		INSERT INTO tracked_assets (
			base_name, locator, version, file_type, domain, category, priority,
			content_hash, size, is_active, consecutive_failure_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?)
	`, asset.BaseName, asset.Locator, nullableStringArg(asset.Version),
		asset.FileType, asset.Domain, asset.Category, asset.Priority,
		asset.ContentHash, asset.Size, formatTime(now), formatTime(now))
	if err != nil {
		return false, fmt.Errorf("failed to register asset: %w", err)
	}

	return true, nil
}

// ActivateVersion performs the archive-then-activate transition as one
// transaction so no reader ever observes a base name without exactly one
// active record.
func (r *AssetRepositoryImpl) ActivateVersion(baseName, expectedHash string, next ActiveState, archive AssetVersion) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO asset_versions (
			base_name, version, locator, file_type, category, priority,
			content_hash, size, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, archive.BaseName, nullableStringArg(archive.Version), archive.Locator,
		archive.FileType, archive.Category, archive.Priority,
		archive.ContentHash, archive.Size, formatTime(archive.ArchivedAt))
	if err != nil {
		return fmt.Errorf("failed to archive version: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE tracked_assets
		SET locator = ?, version = ?, content_hash = ?, size = ?,
		    consecutive_failure_count = 0, last_failure_at = NULL, updated_at = ?
		WHERE base_name = ? AND is_active = 1 AND content_hash = ?
	`, next.Locator, nullableStringArg(next.Version), next.ContentHash, next.Size,
		formatTime(time.Now()), baseName, expectedHash)
	if err != nil {
		return fmt.Errorf("failed to activate version: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		err = tx.QueryRow(`SELECT COUNT(*) FROM tracked_assets WHERE base_name = ? AND is_active = 1`, baseName).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check active record: %w", err)
		}
		if exists == 0 {
			return ErrAssetNotFound
		}
		return ErrWriteConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}

	return nil
}

func (r *AssetRepositoryImpl) UpdateCheckResult(baseName, contentHash string, size int64, checkedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE tracked_assets
		SET content_hash = ?, size = ?, last_checked_at = ?, updated_at = ?
		WHERE base_name = ? AND is_active = 1
	`, contentHash, size, formatTime(checkedAt), formatTime(time.Now()), baseName)
	if err != nil {
		return fmt.Errorf("failed to update check result: %w", err)
	}
	return nil
}

func (r *AssetRepositoryImpl) RecordFetchFailure(baseName string, at time.Time) (int, error) {
	result, err := r.db.Exec(`
		UPDATE tracked_assets
		SET consecutive_failure_count = consecutive_failure_count + 1,
		    last_failure_at = ?, updated_at = ?
		WHERE base_name = ? AND is_active = 1
	`, formatTime(at), formatTime(time.Now()), baseName)
	if err != nil {
		return 0, fmt.Errorf("failed to record fetch failure: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return 0, ErrAssetNotFound
	}

	var count int
	err = r.db.QueryRow(`
		SELECT consecutive_failure_count FROM tracked_assets
		WHERE base_name = ? AND is_active = 1
	`, baseName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to read failure count: %w", err)
	}

	return count, nil
}

func (r *AssetRepositoryImpl) ResetFetchFailures(baseName string) error {
	_, err := r.db.Exec(`
		UPDATE tracked_assets
		SET consecutive_failure_count = 0, updated_at = ?
		WHERE base_name = ? AND is_active = 1
	`, formatTime(time.Now()), baseName)
	if err != nil {
		return fmt.Errorf("failed to reset fetch failures: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (*TrackedAsset, error) {
	var asset TrackedAsset
	var version sql.NullString
	var lastFailureAt, lastCheckedAt sql.NullString
	var createdAt, updatedAt string
	var isActive int

	err := row.Scan(
		&asset.ID, &asset.BaseName, &asset.Locator, &version,
		&asset.FileType, &asset.Domain, &asset.Category, &asset.Priority,
		&asset.ContentHash, &asset.Size, &isActive, &asset.ConsecutiveFailureCount,
		&lastFailureAt, &lastCheckedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	asset.Version = nullableString(version)
	asset.IsActive = isActive != 0
	if err := scanNullableTime(lastFailureAt, &asset.LastFailureAt); err != nil {
		return nil, err
	}
	if err := scanNullableTime(lastCheckedAt, &asset.LastCheckedAt); err != nil {
		return nil, err
	}
	if err := scanTime(createdAt, &asset.CreatedAt); err != nil {
		return nil, err
	}
	if err := scanTime(updatedAt, &asset.UpdatedAt); err != nil {
		return nil, err
	}

	return &asset, nil
}
