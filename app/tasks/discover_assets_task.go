package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/discovery"
)

// DiscoverAssetsTask scans the configured canary pages for asset locators
// not yet reconciled against the catalog. When anything new is stored, a
// detection pass is requested immediately.
type DiscoverAssetsTask struct {
	Task
	scanner     *discovery.Scanner
	configCache *catalog.ConfigCache
	pages       []string
	scheduler   TaskSchedulerInterface
}

func NewDiscoverAssetsTask(scanner *discovery.Scanner, configCache *catalog.ConfigCache,
	pages []string, scheduler TaskSchedulerInterface) *DiscoverAssetsTask {
	return &DiscoverAssetsTask{
		Task:        NewTask(TaskTypeDiscoverAssets, "canary"),
		scanner:     scanner,
		configCache: configCache,
		pages:       pages,
		scheduler:   scheduler,
	}
}

func (t *DiscoverAssetsTask) Execute(ctx context.Context) error {
	if len(t.pages) == 0 {
		slog.Debug("No canary pages configured, skipping discovery")
		return nil
	}

	stored, err := t.scanner.Run(ctx, t.pages, t.configCache.GetDomains())
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "DiscoverAssets",
		"duration", t.GetDuration(),
		"pages", len(t.pages),
		"new_candidates", stored)

	if stored > 0 {
		if err := t.scheduler.RequestDetection(); err != nil {
			slog.Warn("Failed to request detection after discovery", "error", err)
		}
	}

	return nil
}
