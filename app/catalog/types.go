package catalog

import (
	"time"
)

// Tier is the priority classification of a tracked asset. It controls both
// batch ordering and the dwell time before an auto-migration may apply.
type Tier string

const (
	TierCritical Tier = "CRITICAL"
	TierHigh     Tier = "HIGH"
	TierMedium   Tier = "MEDIUM"
	TierLow      Tier = "LOW"
)

func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierCritical, TierHigh, TierMedium, TierLow:
		return Tier(s)
	default:
		return TierMedium
	}
}

func (t Tier) Rank() int {
	switch t {
	case TierCritical:
		return 0
	case TierHigh:
		return 1
	case TierMedium:
		return 2
	case TierLow:
		return 3
	default:
		return 4
	}
}

// Proposal is a detected, not-yet-applied migration opportunity. NewAsset
// marks a candidate with no active record (adoption rather than migration).
type Proposal struct {
	CandidateID    int64
	BaseName       string
	NewAsset       bool
	CurrentVersion *string
	CurrentLocator string
	CurrentHash    string
	NewVersion     *string
	NewLocator     string
	NewHash        string
	NewSize        int64
	Tier           Tier
	DiscoveredAt   time.Time
}

// Resolution records a candidate that detection retired without promotion.
type Resolution struct {
	CandidateID int64
	Locator     string
	Reason      string
}

const (
	ResolutionPromoted   = "promoted"
	ResolutionStale      = "stale"
	ResolutionSuperseded = "superseded"
	ResolutionMalformed  = "malformed_version"
)
