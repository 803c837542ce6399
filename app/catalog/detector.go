package catalog

import (
	"log/slog"
	"sort"

	"github.com/lysyi3m/cdn-comb/app/database"
)

// DetectionResult splits a candidate batch into migration proposals and
// candidates that detection retired without promotion.
type DetectionResult struct {
	Proposals []Proposal
	Ignored   []Resolution
}

// Detector reconciles freshly observed candidates against the active
// catalog. When pickHighest is set (the default policy) and several newer
// candidates exist for one base name, only the highest-ordered one is
// proposed and the rest are superseded; otherwise the earliest-discovered
// newer candidate wins.
type Detector struct {
	pickHighest bool
}

func NewDetector(pickHighest bool) *Detector {
	return &Detector{pickHighest: pickHighest}
}

func (d *Detector) Run(candidates []database.DiscoveredCandidate, assets []database.TrackedAsset) DetectionResult {
	result := DetectionResult{}

	activeIndex := make(map[string]*database.TrackedAsset, len(assets))
	for i := range assets {
		if assets[i].IsActive {
			activeIndex[assets[i].BaseName] = &assets[i]
		}
	}

	grouped := make(map[string][]database.DiscoveredCandidate)
	for _, candidate := range candidates {
		if candidate.BaseName == "" {
			continue
		}
		grouped[candidate.BaseName] = append(grouped[candidate.BaseName], candidate)
	}

	for baseName, group := range grouped {
		active := activeIndex[baseName]

		var eligible []database.DiscoveredCandidate
		for _, candidate := range group {
			verdict, reason := d.classify(candidate, active)
			if verdict {
				eligible = append(eligible, candidate)
			} else if reason != "" {
				result.Ignored = append(result.Ignored, Resolution{
					CandidateID: candidate.ID,
					Locator:     candidate.Locator,
					Reason:      reason,
				})
			}
		}

		if len(eligible) == 0 {
			continue
		}

		chosen, superseded := d.choose(eligible)
		for _, candidate := range superseded {
			result.Ignored = append(result.Ignored, Resolution{
				CandidateID: candidate.ID,
				Locator:     candidate.Locator,
				Reason:      ResolutionSuperseded,
			})
		}

		result.Proposals = append(result.Proposals, buildProposal(chosen, active))
	}

	sort.Slice(result.Proposals, func(i, j int) bool {
		a, b := result.Proposals[i], result.Proposals[j]
		if a.Tier.Rank() != b.Tier.Rank() {
			return a.Tier.Rank() < b.Tier.Rank()
		}
		return a.BaseName < b.BaseName
	})

	return result
}

// classify decides whether a candidate can be proposed against the active
// record. The second return value names the reason a rejected candidate is
// retired; an empty reason keeps the candidate pending untouched.
func (d *Detector) classify(candidate database.DiscoveredCandidate, active *database.TrackedAsset) (bool, string) {
	if active == nil {
		// Nothing tracked under this base name: new-asset adoption.
		return true, ""
	}

	if candidate.Version == nil || active.Version == nil {
		// Incomparable (or both unversioned): only a content change counts.
		if candidate.ContentHash != "" && candidate.ContentHash != active.ContentHash {
			return true, ""
		}
		return false, ResolutionStale
	}

	ordering, err := Compare(*active.Version, *candidate.Version)
	if err != nil {
		slog.Warn("Discarding candidate with malformed version",
			"base_name", candidate.BaseName, "locator", candidate.Locator, "error", err)
		return false, ResolutionMalformed
	}

	switch ordering {
	case Less:
		return true, ""
	case Equal:
		if candidate.ContentHash != "" && candidate.ContentHash != active.ContentHash {
			return true, ""
		}
		return false, ResolutionStale
	default:
		// A downgrade is never auto-applied.
		return false, ResolutionStale
	}
}

func (d *Detector) choose(eligible []database.DiscoveredCandidate) (database.DiscoveredCandidate, []database.DiscoveredCandidate) {
	best := 0
	for i := 1; i < len(eligible); i++ {
		if d.pickHighest {
			if candidateOrdering(eligible[i], eligible[best]) == Greater {
				best = i
			}
		} else {
			if eligible[i].DiscoveredAt.Before(eligible[best].DiscoveredAt) {
				best = i
			}
		}
	}

	var superseded []database.DiscoveredCandidate
	for i, candidate := range eligible {
		if i != best {
			superseded = append(superseded, candidate)
		}
	}

	return eligible[best], superseded
}

// candidateOrdering orders two already-classified candidates. A versioned
// candidate always outranks an unversioned one; ties fall back to discovery
// order.
func candidateOrdering(a, b database.DiscoveredCandidate) Ordering {
	switch {
	case a.Version == nil && b.Version == nil:
		return Equal
	case a.Version == nil:
		return Less
	case b.Version == nil:
		return Greater
	}

	ordering, err := Compare(*a.Version, *b.Version)
	if err != nil {
		return Equal
	}
	return ordering
}

func buildProposal(candidate database.DiscoveredCandidate, active *database.TrackedAsset) Proposal {
	proposal := Proposal{
		CandidateID:  candidate.ID,
		BaseName:     candidate.BaseName,
		NewVersion:   candidate.Version,
		NewLocator:   candidate.Locator,
		NewHash:      candidate.ContentHash,
		NewSize:      candidate.Size,
		Tier:         TierMedium,
		DiscoveredAt: candidate.DiscoveredAt,
	}

	if active == nil {
		proposal.NewAsset = true
		return proposal
	}

	proposal.CurrentVersion = active.Version
	proposal.CurrentLocator = active.Locator
	proposal.CurrentHash = active.ContentHash
	proposal.Tier = ParseTier(active.Priority)

	return proposal
}
