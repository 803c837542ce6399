package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/migration"
)

// DetectUpdatesTask reconciles unresolved candidates against the active
// catalog, then applies every proposal whose dwell time has elapsed.
// Cancellation is checked between proposals, never mid-migration: a started
// migration always runs to a terminal outcome.
type DetectUpdatesTask struct {
	Task
	detector      *catalog.Detector
	policy        *catalog.SchedulerPolicy
	manager       *migration.Manager
	assetRepo     database.AssetRepository
	candidateRepo database.CandidateRepository
	alertRepo     database.AlertRepository
}

func NewDetectUpdatesTask(detector *catalog.Detector, policy *catalog.SchedulerPolicy,
	manager *migration.Manager, assetRepo database.AssetRepository,
	candidateRepo database.CandidateRepository, alertRepo database.AlertRepository) *DetectUpdatesTask {
	return &DetectUpdatesTask{
		Task:          NewTask(TaskTypeDetectUpdates, "catalog"),
		detector:      detector,
		policy:        policy,
		manager:       manager,
		assetRepo:     assetRepo,
		candidateRepo: candidateRepo,
		alertRepo:     alertRepo,
	}
}

func (t *DetectUpdatesTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	candidates, err := t.candidateRepo.GetUnresolvedCandidates()
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}
	if len(candidates) == 0 {
		slog.Debug("No unresolved candidates")
		return nil
	}

	assets, err := t.assetRepo.GetActiveAssets()
	if err != nil {
		return fmt.Errorf("failed to load active assets: %w", err)
	}

	result := t.detector.Run(candidates, assets)

	for _, ignored := range result.Ignored {
		if err := t.candidateRepo.MarkResolved(ignored.CandidateID, ignored.Reason); err != nil {
			return fmt.Errorf("failed to resolve candidate: %w", err)
		}
		slog.Debug("Candidate retired", "locator", ignored.Locator, "reason", ignored.Reason)
	}

	candidateIndex := make(map[int64]database.DiscoveredCandidate, len(candidates))
	for _, candidate := range candidates {
		candidateIndex[candidate.ID] = candidate
	}

	applied := 0
	deferred := 0

	for _, proposal := range result.Proposals {
		// Cancellation is cooperative: bail out between proposals only.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.notifyOnce(proposal, candidateIndex); err != nil {
			return err
		}

		if !t.policy.Eligible(proposal, time.Now()) {
			deferred++
			slog.Debug("Proposal still dwelling", "base_name", proposal.BaseName,
				"tier", string(proposal.Tier), "discovered_at", proposal.DiscoveredAt)
			continue
		}

		if err := t.apply(ctx, proposal); err != nil {
			return err
		}
		applied++
	}

	slog.Info("Task completed",
		"type", "DetectUpdates",
		"duration", t.GetDuration(),
		"candidates", len(candidates),
		"proposals", len(result.Proposals),
		"applied", applied,
		"dwelling", deferred,
		"retired", len(result.Ignored))

	return nil
}

// notifyOnce emits the NEW_VERSION_DETECTED alert the first time a
// candidate surfaces as a proposal.
func (t *DetectUpdatesTask) notifyOnce(proposal catalog.Proposal, index map[int64]database.DiscoveredCandidate) error {
	candidate, ok := index[proposal.CandidateID]
	if !ok || candidate.NotifiedAt != nil {
		return nil
	}

	_, err := t.alertRepo.SaveAlert(database.VersionAlert{
		Kind:        database.AlertNewVersionDetected,
		BaseName:    proposal.BaseName,
		FromVersion: proposal.CurrentVersion,
		ToVersion:   proposal.NewVersion,
		Locator:     proposal.NewLocator,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to save detection alert: %w", err)
	}

	if err := t.candidateRepo.MarkNotified(proposal.CandidateID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark candidate notified: %w", err)
	}

	slog.Info("New version detected", "base_name", proposal.BaseName,
		"current", label(proposal.CurrentVersion), "new", label(proposal.NewVersion),
		"tier", string(proposal.Tier))

	return nil
}

func (t *DetectUpdatesTask) apply(ctx context.Context, proposal catalog.Proposal) error {
	var record *database.MigrationRecord
	var err error

	if proposal.NewAsset {
		record, err = t.manager.Adopt(ctx, proposal.NewLocator, "unknown", proposal.Tier)
	} else {
		record, err = t.manager.Migrate(ctx, proposal.BaseName, proposal.NewLocator)
	}
	if err != nil {
		return fmt.Errorf("failed to apply proposal for %s: %w", proposal.BaseName, err)
	}

	if record.Outcome == database.OutcomeSucceeded {
		if err := t.candidateRepo.MarkResolved(proposal.CandidateID, catalog.ResolutionPromoted); err != nil {
			return fmt.Errorf("failed to resolve promoted candidate: %w", err)
		}
	}
	// A VALIDATION_FAILED outcome leaves the candidate pending for the next
	// pass; the failure is already on the audit log.

	return nil
}

func label(version *string) string {
	if version == nil {
		return "unversioned"
	}
	return *version
}
