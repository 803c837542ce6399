package catalog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/cdn-comb/app/database"
)

const DefaultFailureThreshold = 3

// FailureMonitor tracks consecutive fetch failures per tracked asset and
// raises a re-discovery request once the threshold is crossed.
type FailureMonitor struct {
	assets    database.AssetRepository
	alerts    database.AlertRepository
	threshold int
}

func NewFailureMonitor(assets database.AssetRepository, alerts database.AlertRepository, threshold int) *FailureMonitor {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &FailureMonitor{
		assets:    assets,
		alerts:    alerts,
		threshold: threshold,
	}
}

// RecordFetchOutcome updates the failure counter for one fetch attempt. It
// returns true when this exact attempt crossed the threshold: the alert and
// the discovery request fire once per crossing, not on every failure beyond
// it. A success resets the counter unconditionally.
func (m *FailureMonitor) RecordFetchOutcome(baseName string, success bool) (bool, error) {
	if success {
		if err := m.assets.ResetFetchFailures(baseName); err != nil {
			return false, fmt.Errorf("failed to reset failure count: %w", err)
		}
		return false, nil
	}

	count, err := m.assets.RecordFetchFailure(baseName, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to record fetch failure: %w", err)
	}

	if count != m.threshold {
		return false, nil
	}

	slog.Warn("Repeated fetch failures, requesting re-discovery",
		"base_name", baseName, "consecutive_failures", count)

	_, err = m.alerts.SaveAlert(database.VersionAlert{
		Kind:      database.AlertRepeatedFetchFailure,
		BaseName:  baseName,
		Details:   fmt.Sprintf("%d consecutive fetch failures", count),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to save failure alert: %w", err)
	}

	return true, nil
}
