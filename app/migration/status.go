package migration

import (
	"fmt"

	"github.com/lysyi3m/cdn-comb/app/database"
)

// Status aggregates catalog and migration-log counters for operators.
type Status struct {
	ActiveAssets      int                        `json:"active_assets"`
	ArchivedVersions  int                        `json:"archived_versions"`
	PendingCandidates int                        `json:"pending_candidates"`
	Outcomes          map[string]int             `json:"outcomes"`
	Recent            []database.MigrationRecord `json:"-"`
}

func (m *Manager) Status() (*Status, error) {
	assetCount, err := m.assets.GetAssetCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count assets: %w", err)
	}

	versionCount, err := m.versions.GetVersionCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count versions: %w", err)
	}

	candidateCount, err := m.candidates.GetUnresolvedCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	outcomes, err := m.migrations.CountByOutcome()
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}

	recent, err := m.migrations.GetRecentRecords(20)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent records: %w", err)
	}

	status := &Status{
		ActiveAssets:      assetCount,
		ArchivedVersions:  versionCount,
		PendingCandidates: candidateCount,
		Outcomes:          make(map[string]int, len(outcomes)),
		Recent:            recent,
	}
	for outcome, count := range outcomes {
		status.Outcomes[string(outcome)] = count
	}

	return status, nil
}
