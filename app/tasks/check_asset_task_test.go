package tasks

import (
	"context"
	"testing"

	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/fetch"
)

type fakeScheduler struct {
	detections  int
	discoveries int
}

func (f *fakeScheduler) Start() {}

func (f *fakeScheduler) Stop() {}

func (f *fakeScheduler) EnqueueTask(TaskInterface) error { return nil }
func (f *fakeScheduler) RequestDetection() error {
	f.detections++
	return nil
}
func (f *fakeScheduler) RequestDiscovery() error {
	f.discoveries++
	return nil
}

func (f *taskFixture) checkTask(baseName string, scheduler TaskSchedulerInterface) *CheckAssetTask {
	monitor := catalog.NewFailureMonitor(f.assetRepo, f.alertRepo, 3)
	return NewCheckAssetTask(baseName, f.fetcher, f.assetRepo, monitor, f.manager, scheduler)
}

func TestCheckAssetUnchangedContent(t *testing.T) {
	f := newTaskFixture(t)
	f.track(t, "tilda-cart", "1.1", "https://cdn.example/tilda-cart-1.1.min.js", "v1", "MEDIUM")

	task := f.checkTask("tilda-cart", &fakeScheduler{})
	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	asset, _ := f.assetRepo.GetAsset("tilda-cart")
	if asset.LastCheckedAt == nil {
		t.Error("Expected check timestamp to be stamped")
	}

	records, _ := f.migrationRepo.GetRecentRecords(10)
	if len(records) != 0 {
		t.Errorf("Unchanged content should produce no migration record, got %d", len(records))
	}
}

func TestCheckAssetContentChangeMigratesInPlace(t *testing.T) {
	f := newTaskFixture(t)
	locator := "https://cdn.example/tilda-cart-1.1.min.js"
	f.track(t, "tilda-cart", "1.1", locator, "v1", "MEDIUM")

	// The CDN republished different content under the same locator.
	f.fetcher.serve(locator, "v1 republished")

	task := f.checkTask("tilda-cart", &fakeScheduler{})
	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	asset, _ := f.assetRepo.GetAsset("tilda-cart")
	if asset.ContentHash != fetch.HashBytes([]byte("v1 republished")) {
		t.Error("Active record should carry the republished content hash")
	}

	// The previous content is archived before the hash moves.
	versions, _ := f.versionRepo.GetVersions("tilda-cart")
	if len(versions) != 1 {
		t.Fatalf("Expected 1 archived snapshot, got %d", len(versions))
	}
	if versions[0].ContentHash != fetch.HashBytes([]byte("v1")) {
		t.Error("Archive should carry the superseded content hash")
	}
}

func TestCheckAssetFailureCrossesThreshold(t *testing.T) {
	f := newTaskFixture(t)
	locator := "https://cdn.example/tilda-cart-1.1.min.js"
	f.track(t, "tilda-cart", "1.1", locator, "v1", "MEDIUM")

	// The locator starts returning 404.
	delete(f.fetcher.results, locator)

	scheduler := &fakeScheduler{}
	for i := 0; i < 3; i++ {
		task := f.checkTask("tilda-cart", scheduler)
		if err := task.Execute(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if scheduler.discoveries != 1 {
		t.Errorf("Discovery should be requested exactly once at the threshold, got %d", scheduler.discoveries)
	}

	asset, _ := f.assetRepo.GetAsset("tilda-cart")
	if asset.ConsecutiveFailureCount != 3 {
		t.Errorf("Expected 3 consecutive failures, got %d", asset.ConsecutiveFailureCount)
	}

	alerts, _ := f.alertRepo.GetRecentAlerts(10)
	if len(alerts) != 1 || alerts[0].Kind != database.AlertRepeatedFetchFailure {
		t.Errorf("Expected one REPEATED_FETCH_FAILURE alert, got %+v", alerts)
	}

	// A fourth failure does not re-fire.
	task := f.checkTask("tilda-cart", scheduler)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if scheduler.discoveries != 1 {
		t.Errorf("Discovery request should not re-fire beyond the threshold, got %d", scheduler.discoveries)
	}
}

func TestCheckAssetUntracked(t *testing.T) {
	f := newTaskFixture(t)

	task := f.checkTask("ghost", &fakeScheduler{})
	if err := task.Execute(context.Background()); err != nil {
		t.Errorf("Checking an untracked asset should be a silent no-op, got %v", err)
	}
}
