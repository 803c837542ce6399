package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/migration"
)

// SyncAssetConfigTask brings one configured asset group under tracking:
// every locator without an active record is adopted.
type SyncAssetConfigTask struct {
	Task
	group     *catalog.Group
	assetRepo database.AssetRepository
	manager   *migration.Manager
}

func NewSyncAssetConfigTask(group *catalog.Group, assetRepo database.AssetRepository,
	manager *migration.Manager) *SyncAssetConfigTask {
	return &SyncAssetConfigTask{
		Task:      NewTask(TaskTypeSyncAssetConfig, group.Category),
		group:     group,
		assetRepo: assetRepo,
		manager:   manager,
	}
}

func (t *SyncAssetConfigTask) Execute(ctx context.Context) error {
	adopted := 0
	skipped := 0
	failed := 0

	for _, locator := range t.group.Locators {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		identity := catalog.Identify(locator)
		if identity.BaseName == "" {
			slog.Warn("Cannot identify configured locator, skipping",
				"category", t.group.Category, "locator", locator)
			continue
		}

		existing, err := t.assetRepo.GetAsset(identity.BaseName)
		if err != nil {
			return fmt.Errorf("failed to check asset %s: %w", identity.BaseName, err)
		}
		if existing != nil {
			skipped++
			continue
		}

		record, err := t.manager.Adopt(ctx, locator, t.group.Category, catalog.ParseTier(t.group.Priority))
		if err != nil {
			return fmt.Errorf("failed to adopt %s: %w", locator, err)
		}

		if record.Outcome == database.OutcomeSucceeded {
			adopted++
		} else {
			failed++
		}
	}

	slog.Info("Task completed",
		"type", "SyncAssetConfig",
		"category", t.group.Category,
		"duration", t.GetDuration(),
		"total", len(t.group.Locators),
		"adopted", adopted,
		"already_tracked", skipped,
		"failed", failed)

	return nil
}
