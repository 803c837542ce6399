package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/fetch"
	"github.com/lysyi3m/cdn-comb/app/migration"
)

// CheckAssetTask re-fetches one tracked asset's active locator. Fetch
// outcomes feed the failure monitor; a changed content hash under the same
// locator is applied as an in-place migration so the previous content is
// archived.
type CheckAssetTask struct {
	Task
	fetcher   fetch.Fetcher
	assetRepo database.AssetRepository
	monitor   *catalog.FailureMonitor
	manager   *migration.Manager
	scheduler TaskSchedulerInterface
}

func NewCheckAssetTask(baseName string, fetcher fetch.Fetcher, assetRepo database.AssetRepository,
	monitor *catalog.FailureMonitor, manager *migration.Manager,
	scheduler TaskSchedulerInterface) *CheckAssetTask {
	return &CheckAssetTask{
		Task:      NewTask(TaskTypeCheckAsset, baseName),
		fetcher:   fetcher,
		assetRepo: assetRepo,
		monitor:   monitor,
		manager:   manager,
		scheduler: scheduler,
	}
}

func (t *CheckAssetTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	asset, err := t.assetRepo.GetAsset(t.Subject)
	if err != nil {
		return fmt.Errorf("failed to load asset: %w", err)
	}
	if asset == nil {
		slog.Debug("Asset no longer tracked, skipping", "base_name", t.Subject)
		return nil
	}

	result, err := t.fetcher.Fetch(ctx, asset.Locator)
	if err != nil {
		slog.Warn("Asset fetch failed", "base_name", t.Subject,
			"locator", asset.Locator, "error", err)

		requested, monitorErr := t.monitor.RecordFetchOutcome(t.Subject, false)
		if monitorErr != nil {
			return monitorErr
		}
		if requested {
			if reqErr := t.scheduler.RequestDiscovery(); reqErr != nil {
				slog.Warn("Failed to request discovery", "base_name", t.Subject, "error", reqErr)
			}
		}
		return nil
	}

	if _, err := t.monitor.RecordFetchOutcome(t.Subject, true); err != nil {
		return err
	}

	if result.Hash != asset.ContentHash {
		slog.Info("Content change detected at active locator",
			"base_name", t.Subject, "locator", asset.Locator)

		record, err := t.manager.Migrate(ctx, t.Subject, asset.Locator)
		if err != nil {
			return fmt.Errorf("failed to migrate changed content: %w", err)
		}

		slog.Info("Task completed",
			"type", "CheckAsset",
			"base_name", t.Subject,
			"duration", t.GetDuration(),
			"outcome", string(record.Outcome))
		return nil
	}

	if err := t.assetRepo.UpdateCheckResult(t.Subject, asset.ContentHash, result.Size, time.Now()); err != nil {
		return fmt.Errorf("failed to update check result: %w", err)
	}

	slog.Debug("Task completed",
		"type", "CheckAsset",
		"base_name", t.Subject,
		"duration", t.GetDuration(),
		"outcome", "unchanged")

	return nil
}
