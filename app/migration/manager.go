package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/fetch"
)

const DefaultSizeAnomalyFactor = 5.0

// Manager validates and applies version migrations as atomic transitions
// against the catalog store, and performs rollbacks to archived versions.
// Two operations for the same base name never interleave: each base name is
// guarded by its own mutex, so migrations for different assets may proceed
// concurrently.
type Manager struct {
	assets     database.AssetRepository
	versions   database.VersionRepository
	migrations database.MigrationRepository
	alerts     database.AlertRepository
	candidates database.CandidateRepository
	fetcher    fetch.Fetcher

	sizeAnomalyFactor float64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(assets database.AssetRepository, versions database.VersionRepository,
	migrations database.MigrationRepository, alerts database.AlertRepository,
	candidates database.CandidateRepository, fetcher fetch.Fetcher,
	sizeAnomalyFactor float64) *Manager {
	if sizeAnomalyFactor <= 1 {
		sizeAnomalyFactor = DefaultSizeAnomalyFactor
	}
	return &Manager{
		assets:            assets,
		versions:          versions,
		migrations:        migrations,
		alerts:            alerts,
		candidates:        candidates,
		fetcher:           fetcher,
		sizeAnomalyFactor: sizeAnomalyFactor,
		locks:             make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(baseName string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[baseName]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[baseName] = lock
	}
	return lock
}

// Migrate validates the target locator and, if it passes, archives the
// current active state and activates the new version as one transaction.
// Validation failures are terminal outcomes, not errors: they return a
// VALIDATION_FAILED record and leave the active record untouched. The
// re-fetch is bounded by the caller's context.
func (m *Manager) Migrate(ctx context.Context, baseName, targetLocator string) (*database.MigrationRecord, error) {
	lock := m.lockFor(baseName)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	active, err := m.assets.GetAsset(baseName)
	if err != nil {
		return nil, fmt.Errorf("failed to load active asset: %w", err)
	}
	if active == nil {
		return nil, database.ErrAssetNotFound
	}

	slog.Info("Starting migration", "base_name", baseName,
		"from", active.Locator, "to", targetLocator)

	identity := catalog.Identify(targetLocator)

	result, err := m.validate(ctx, targetLocator, active)
	if err != nil {
		return m.recordFailure(baseName, active.Version, identity.Version, err.Error(), targetLocator, start)
	}

	if result.Hash == active.ContentHash {
		// Identical content: a no-op, recorded for the audit trail.
		return m.recordOutcome(database.MigrationRecord{
			BaseName:    baseName,
			FromVersion: active.Version,
			ToVersion:   active.Version,
			Outcome:     database.OutcomeSucceeded,
			Reason:      "content unchanged",
			DurationMs:  time.Since(start).Milliseconds(),
			OccurredAt:  time.Now(),
		}, nil)
	}

	next := database.ActiveState{
		Locator:     targetLocator,
		Version:     identity.Version,
		ContentHash: result.Hash,
		Size:        result.Size,
	}

	if err := m.activate(baseName, active, next); err != nil {
		if errors.Is(err, database.ErrWriteConflict) {
			return m.recordFailure(baseName, active.Version, identity.Version, "conflict", targetLocator, start)
		}
		return nil, err
	}

	slog.Info("Migration completed", "base_name", baseName,
		"from_version", versionLabel(active.Version), "to_version", versionLabel(identity.Version),
		"duration", time.Since(start))

	return m.recordOutcome(database.MigrationRecord{
		BaseName:    baseName,
		FromVersion: active.Version,
		ToVersion:   identity.Version,
		Outcome:     database.OutcomeSucceeded,
		DurationMs:  time.Since(start).Milliseconds(),
		OccurredAt:  time.Now(),
	}, &database.VersionAlert{
		Kind:        database.AlertMigrationSucceeded,
		BaseName:    baseName,
		FromVersion: active.Version,
		ToVersion:   identity.Version,
		Locator:     targetLocator,
		CreatedAt:   time.Now(),
	})
}

// Rollback reactivates an archived version. The historical content hash is
// trusted as previously verified, so no re-fetch happens: this is an
// explicit operator escape hatch and the only sanctioned version-order
// violation in the archive.
func (m *Manager) Rollback(ctx context.Context, baseName, toVersion string) (*database.MigrationRecord, error) {
	lock := m.lockFor(baseName)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	archived, err := m.versions.GetVersion(baseName, toVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to look up archived version: %w", err)
	}
	if archived == nil {
		return nil, fmt.Errorf("%w: %s v%s", ErrVersionNotFound, baseName, toVersion)
	}

	active, err := m.assets.GetAsset(baseName)
	if err != nil {
		return nil, fmt.Errorf("failed to load active asset: %w", err)
	}
	if active == nil {
		return nil, database.ErrAssetNotFound
	}

	slog.Info("Starting rollback", "base_name", baseName,
		"from_version", versionLabel(active.Version), "to_version", toVersion)

	next := database.ActiveState{
		Locator:     archived.Locator,
		Version:     archived.Version,
		ContentHash: archived.ContentHash,
		Size:        archived.Size,
	}

	if err := m.activate(baseName, active, next); err != nil {
		if errors.Is(err, database.ErrWriteConflict) {
			return m.recordFailure(baseName, active.Version, archived.Version, "conflict", archived.Locator, start)
		}
		return nil, err
	}

	slog.Info("Rollback completed", "base_name", baseName, "restored_version", toVersion)

	return m.recordOutcome(database.MigrationRecord{
		BaseName:    baseName,
		FromVersion: active.Version,
		ToVersion:   archived.Version,
		Outcome:     database.OutcomeRolledBack,
		Reason:      "operator rollback",
		DurationMs:  time.Since(start).Milliseconds(),
		OccurredAt:  time.Now(),
	}, &database.VersionAlert{
		Kind:        database.AlertRollbackPerformed,
		BaseName:    baseName,
		FromVersion: active.Version,
		ToVersion:   archived.Version,
		Locator:     archived.Locator,
		CreatedAt:   time.Now(),
	})
}

// Adopt brings a base name with no active record under tracking. There is
// no prior version to archive, so this is an insert rather than a
// transition.
func (m *Manager) Adopt(ctx context.Context, locator, category string, tier catalog.Tier) (*database.MigrationRecord, error) {
	identity := catalog.Identify(locator)
	if identity.BaseName == "" {
		return nil, fmt.Errorf("cannot identify asset from locator: %s", locator)
	}

	lock := m.lockFor(identity.BaseName)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	result, err := m.fetcher.Fetch(ctx, locator)
	if err != nil {
		return m.recordFailure(identity.BaseName, nil, identity.Version,
			fmt.Sprintf("fetch unreachable: %v", err), locator, start)
	}

	created, err := m.assets.RegisterAsset(database.TrackedAsset{
		BaseName:    identity.BaseName,
		Locator:     locator,
		Version:     identity.Version,
		FileType:    identity.FileType,
		Domain:      identity.Domain,
		Category:    category,
		Priority:    string(tier),
		ContentHash: result.Hash,
		Size:        result.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register asset: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("asset %s is already tracked", identity.BaseName)
	}

	slog.Info("Asset adopted", "base_name", identity.BaseName,
		"version", versionLabel(identity.Version), "locator", locator)

	return m.recordOutcome(database.MigrationRecord{
		BaseName:   identity.BaseName,
		ToVersion:  identity.Version,
		Outcome:    database.OutcomeSucceeded,
		Reason:     "new asset adopted",
		DurationMs: time.Since(start).Milliseconds(),
		OccurredAt: time.Now(),
	}, &database.VersionAlert{
		Kind:      database.AlertMigrationSucceeded,
		BaseName:  identity.BaseName,
		ToVersion: identity.Version,
		Locator:   locator,
		Details:   "new asset adopted",
		CreatedAt: time.Now(),
	})
}

// validate re-fetches the target locator and applies the pre-activation
// checks. Any returned error is a validation outcome, not an infrastructure
// failure.
func (m *Manager) validate(ctx context.Context, targetLocator string, active *database.TrackedAsset) (*fetch.Result, error) {
	result, err := m.fetcher.Fetch(ctx, targetLocator)
	if err != nil {
		return nil, fmt.Errorf("fetch unreachable: %w", err)
	}

	if active.Size > 0 {
		ratio := float64(result.Size) / float64(active.Size)
		if ratio > m.sizeAnomalyFactor || ratio < 1/m.sizeAnomalyFactor {
			return nil, &SizeAnomalyError{
				CurrentSize: active.Size,
				NewSize:     result.Size,
				Factor:      m.sizeAnomalyFactor,
			}
		}
	}

	return result, nil
}

// activate performs the archive-then-activate transition, retrying once if
// a concurrent writer invalidated the expected hash.
func (m *Manager) activate(baseName string, active *database.TrackedAsset, next database.ActiveState) error {
	archive := snapshotOf(active)

	err := m.assets.ActivateVersion(baseName, active.ContentHash, next, archive)
	if !errors.Is(err, database.ErrWriteConflict) {
		return err
	}

	// Lost a race with a concurrent writer: re-read the active record and
	// retry once against its fresh state.
	slog.Warn("Catalog write conflict, retrying once", "base_name", baseName)

	fresh, readErr := m.assets.GetAsset(baseName)
	if readErr != nil {
		return fmt.Errorf("failed to re-read active asset: %w", readErr)
	}
	if fresh == nil {
		return database.ErrAssetNotFound
	}
	if fresh.ContentHash == next.ContentHash {
		// The concurrent writer applied the same transition.
		return database.ErrWriteConflict
	}

	return m.assets.ActivateVersion(baseName, fresh.ContentHash, next, snapshotOf(fresh))
}

func (m *Manager) recordFailure(baseName string, fromVersion, toVersion *string, reason, locator string, start time.Time) (*database.MigrationRecord, error) {
	slog.Error("Migration validation failed", "base_name", baseName, "reason", reason)

	return m.recordOutcome(database.MigrationRecord{
		BaseName:    baseName,
		FromVersion: fromVersion,
		ToVersion:   toVersion,
		Outcome:     database.OutcomeValidationFailed,
		Reason:      reason,
		DurationMs:  time.Since(start).Milliseconds(),
		OccurredAt:  time.Now(),
	}, &database.VersionAlert{
		Kind:        database.AlertMigrationFailed,
		BaseName:    baseName,
		FromVersion: fromVersion,
		ToVersion:   toVersion,
		Locator:     locator,
		Details:     reason,
		CreatedAt:   time.Now(),
	})
}

func (m *Manager) recordOutcome(record database.MigrationRecord, alert *database.VersionAlert) (*database.MigrationRecord, error) {
	id, err := m.migrations.SaveRecord(record)
	if err != nil {
		return nil, fmt.Errorf("failed to save migration record: %w", err)
	}
	record.ID = id

	if alert != nil {
		if _, err := m.alerts.SaveAlert(*alert); err != nil {
			return nil, fmt.Errorf("failed to save alert: %w", err)
		}
	}

	return &record, nil
}

func snapshotOf(asset *database.TrackedAsset) database.AssetVersion {
	return database.AssetVersion{
		BaseName:    asset.BaseName,
		Version:     asset.Version,
		Locator:     asset.Locator,
		FileType:    asset.FileType,
		Category:    asset.Category,
		Priority:    asset.Priority,
		ContentHash: asset.ContentHash,
		Size:        asset.Size,
		ArchivedAt:  time.Now(),
	}
}

func versionLabel(version *string) string {
	if version == nil {
		return "unversioned"
	}
	return *version
}
