package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ CandidateRepository = (*CandidateRepositoryImpl)(nil)

// CandidateRepositoryImpl handles database operations for discovered candidates
type CandidateRepositoryImpl struct {
	db *DB
}

func NewCandidateRepository(db *DB) *CandidateRepositoryImpl {
	return &CandidateRepositoryImpl{db: db}
}

func (r *CandidateRepositoryImpl) SaveCandidate(c DiscoveredCandidate) (bool, error) {
	result, err := r.db.Exec(`
		INSERT OR IGNORE INTO discovered_candidates (
			locator, base_name, version, content_hash, size, source_page,
			discovered_at, resolved
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`, c.Locator, c.BaseName, nullableStringArg(c.Version), c.ContentHash,
		c.Size, c.SourcePage, formatTime(c.DiscoveredAt))
	if err != nil {
		return false, fmt.Errorf("failed to save candidate: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *CandidateRepositoryImpl) CandidateExists(locator string) (bool, error) {
	var id int64
	err := r.db.QueryRow(`SELECT id FROM discovered_candidates WHERE locator = ?`, locator).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check candidate: %w", err)
	}
	return true, nil
}

func (r *CandidateRepositoryImpl) GetUnresolvedCandidates() ([]DiscoveredCandidate, error) {
	rows, err := r.db.Query(`
		SELECT id, locator, base_name, version, content_hash, size, source_page,
		       discovered_at, notified_at, resolved, resolution
		FROM discovered_candidates
		WHERE resolved = 0
		ORDER BY base_name, discovered_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get unresolved candidates: %w", err)
	}
	defer rows.Close()

	var candidates []DiscoveredCandidate
	for rows.Next() {
		var c DiscoveredCandidate
		var version, notifiedAt sql.NullString
		var discoveredAt string
		var resolved int

		err := rows.Scan(
			&c.ID, &c.Locator, &c.BaseName, &version, &c.ContentHash,
			&c.Size, &c.SourcePage, &discoveredAt, &notifiedAt, &resolved, &c.Resolution,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}

		c.Version = nullableString(version)
		c.Resolved = resolved != 0
		if err := scanTime(discoveredAt, &c.DiscoveredAt); err != nil {
			return nil, err
		}
		if err := scanNullableTime(notifiedAt, &c.NotifiedAt); err != nil {
			return nil, err
		}

		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

func (r *CandidateRepositoryImpl) GetUnresolvedCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM discovered_candidates WHERE resolved = 0`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get unresolved count: %w", err)
	}
	return count, nil
}

func (r *CandidateRepositoryImpl) MarkResolved(id int64, resolution string) error {
	_, err := r.db.Exec(`
		UPDATE discovered_candidates SET resolved = 1, resolution = ? WHERE id = ?
	`, resolution, id)
	if err != nil {
		return fmt.Errorf("failed to mark candidate resolved: %w", err)
	}
	return nil
}

func (r *CandidateRepositoryImpl) MarkNotified(id int64, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE discovered_candidates SET notified_at = ? WHERE id = ?
	`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark candidate notified: %w", err)
	}
	return nil
}
