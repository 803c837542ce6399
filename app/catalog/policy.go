package catalog

import (
	"time"
)

// Dwell times before an auto-detected migration may apply. Lower-priority
// assets bake longer before being trusted; manual operator requests bypass
// the policy entirely.
var defaultDwell = map[Tier]time.Duration{
	TierCritical: 0,
	TierHigh:     time.Hour,
	TierMedium:   24 * time.Hour,
	TierLow:      7 * 24 * time.Hour,
}

type SchedulerPolicy struct {
	dwell map[Tier]time.Duration
}

func NewSchedulerPolicy() *SchedulerPolicy {
	dwell := make(map[Tier]time.Duration, len(defaultDwell))
	for tier, d := range defaultDwell {
		dwell[tier] = d
	}
	return &SchedulerPolicy{dwell: dwell}
}

func (p *SchedulerPolicy) Dwell(tier Tier) time.Duration {
	if d, ok := p.dwell[tier]; ok {
		return d
	}
	return p.dwell[TierMedium]
}

// Eligible reports whether a proposal's dwell time has elapsed.
func (p *SchedulerPolicy) Eligible(proposal Proposal, now time.Time) bool {
	return now.Sub(proposal.DiscoveredAt) >= p.Dwell(proposal.Tier)
}
