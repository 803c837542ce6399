package catalog

import (
	"testing"
	"time"

	"github.com/lysyi3m/cdn-comb/app/database"
)

func strPtr(s string) *string {
	return &s
}

func activeAsset(baseName, version, hash, priority string) database.TrackedAsset {
	asset := database.TrackedAsset{
		BaseName:    baseName,
		Locator:     "https://cdn.example/" + baseName + "-" + version + ".min.js",
		ContentHash: hash,
		Priority:    priority,
		IsActive:    true,
	}
	if version != "" {
		asset.Version = strPtr(version)
	}
	return asset
}

func candidate(id int64, baseName, version, hash string, discoveredAt time.Time) database.DiscoveredCandidate {
	c := database.DiscoveredCandidate{
		ID:           id,
		BaseName:     baseName,
		Locator:      "https://cdn.example/" + baseName + "-" + version + ".min.js",
		ContentHash:  hash,
		DiscoveredAt: discoveredAt,
	}
	if version != "" {
		c.Version = strPtr(version)
	}
	return c
}

func TestDetectorProposesNewerVersion(t *testing.T) {
	detector := NewDetector(true)
	now := time.Now()

	assets := []database.TrackedAsset{activeAsset("tilda-cart", "1.1", "hash-old", "HIGH")}
	candidates := []database.DiscoveredCandidate{candidate(1, "tilda-cart", "1.2", "hash-new", now)}

	result := detector.Run(candidates, assets)

	if len(result.Proposals) != 1 {
		t.Fatalf("Expected 1 proposal, got %d", len(result.Proposals))
	}
	proposal := result.Proposals[0]
	if proposal.BaseName != "tilda-cart" {
		t.Errorf("Expected base name 'tilda-cart', got '%s'", proposal.BaseName)
	}
	if proposal.NewVersion == nil || *proposal.NewVersion != "1.2" {
		t.Errorf("Expected new version '1.2', got %v", proposal.NewVersion)
	}
	if proposal.CurrentVersion == nil || *proposal.CurrentVersion != "1.1" {
		t.Errorf("Expected current version '1.1', got %v", proposal.CurrentVersion)
	}
	if proposal.Tier != TierHigh {
		t.Errorf("Expected HIGH tier inherited from active record, got %s", proposal.Tier)
	}
	if proposal.NewAsset {
		t.Error("Proposal against an active record should not be marked as new asset")
	}
	if len(result.Ignored) != 0 {
		t.Errorf("Expected no ignored candidates, got %d", len(result.Ignored))
	}
}

func TestDetectorRetiresStaleAndDowngrade(t *testing.T) {
	detector := NewDetector(true)
	now := time.Now()

	assets := []database.TrackedAsset{activeAsset("tilda-cart", "1.2", "hash-current", "MEDIUM")}
	candidates := []database.DiscoveredCandidate{
		candidate(1, "tilda-cart", "1.2", "hash-current", now), // same version, same content
		candidate(2, "tilda-cart", "1.1", "hash-older", now),   // downgrade
	}

	result := detector.Run(candidates, assets)

	if len(result.Proposals) != 0 {
		t.Fatalf("Expected no proposals, got %d", len(result.Proposals))
	}
	if len(result.Ignored) != 2 {
		t.Fatalf("Expected 2 ignored candidates, got %d", len(result.Ignored))
	}
	for _, ignored := range result.Ignored {
		if ignored.Reason != ResolutionStale {
			t.Errorf("Expected reason '%s', got '%s'", ResolutionStale, ignored.Reason)
		}
	}
}

func TestDetectorSameVersionChangedContent(t *testing.T) {
	detector := NewDetector(true)
	now := time.Now()

	assets := []database.TrackedAsset{activeAsset("tilda-cart", "1.2", "hash-current", "MEDIUM")}
	candidates := []database.DiscoveredCandidate{candidate(1, "tilda-cart", "1.2", "hash-republished", now)}

	result := detector.Run(candidates, assets)

	if len(result.Proposals) != 1 {
		t.Fatalf("Expected 1 proposal for republished content, got %d", len(result.Proposals))
	}
}

func TestDetectorPicksHighestAmongMultiple(t *testing.T) {
	detector := NewDetector(true)
	now := time.Now()

	assets := []database.TrackedAsset{activeAsset("tilda-cart", "1.1", "hash-old", "MEDIUM")}
	candidates := []database.DiscoveredCandidate{
		candidate(1, "tilda-cart", "1.2", "hash-a", now.Add(-2*time.Hour)),
		candidate(2, "tilda-cart", "1.10", "hash-b", now.Add(-time.Hour)),
		candidate(3, "tilda-cart", "1.3", "hash-c", now),
	}

	result := detector.Run(candidates, assets)

	if len(result.Proposals) != 1 {
		t.Fatalf("Expected exactly 1 proposal, got %d", len(result.Proposals))
	}
	if *result.Proposals[0].NewVersion != "1.10" {
		t.Errorf("Expected highest version '1.10' to win, got '%s'", *result.Proposals[0].NewVersion)
	}

	if len(result.Ignored) != 2 {
		t.Fatalf("Expected 2 superseded candidates, got %d", len(result.Ignored))
	}
	for _, ignored := range result.Ignored {
		if ignored.Reason != ResolutionSuperseded {
			t.Errorf("Expected reason '%s', got '%s'", ResolutionSuperseded, ignored.Reason)
		}
	}
}

func TestDetectorPicksEarliestWhenConfigured(t *testing.T) {
	detector := NewDetector(false)
	now := time.Now()

	assets := []database.TrackedAsset{activeAsset("tilda-cart", "1.1", "hash-old", "MEDIUM")}
	candidates := []database.DiscoveredCandidate{
		candidate(1, "tilda-cart", "1.3", "hash-a", now),
		candidate(2, "tilda-cart", "1.2", "hash-b", now.Add(-time.Hour)),
	}

	result := detector.Run(candidates, assets)

	if len(result.Proposals) != 1 {
		t.Fatalf("Expected 1 proposal, got %d", len(result.Proposals))
	}
	if *result.Proposals[0].NewVersion != "1.2" {
		t.Errorf("Expected earliest-discovered '1.2' to win, got '%s'", *result.Proposals[0].NewVersion)
	}
}

func TestDetectorMalformedVersionRetired(t *testing.T) {
	detector := NewDetector(true)
	now := time.Now()

	assets := []database.TrackedAsset{activeAsset("tilda-cart", "1.1", "hash-old", "MEDIUM")}
	bad := candidate(1, "tilda-cart", "", "hash-bad", now)
	bad.Version = strPtr("1.x")

	result := detector.Run([]database.DiscoveredCandidate{bad}, assets)

	if len(result.Proposals) != 0 {
		t.Fatalf("Expected no proposals for malformed version, got %d", len(result.Proposals))
	}
	if len(result.Ignored) != 1 {
		t.Fatalf("Expected 1 ignored candidate, got %d", len(result.Ignored))
	}
	if result.Ignored[0].Reason != ResolutionMalformed {
		t.Errorf("Expected reason '%s', got '%s'", ResolutionMalformed, result.Ignored[0].Reason)
	}
}

func TestDetectorNewAssetAdoption(t *testing.T) {
	detector := NewDetector(true)
	now := time.Now()

	result := detector.Run([]database.DiscoveredCandidate{
		candidate(1, "tilda-zoom", "2.0", "hash-zoom", now),
	}, nil)

	if len(result.Proposals) != 1 {
		t.Fatalf("Expected 1 adoption proposal, got %d", len(result.Proposals))
	}
	if !result.Proposals[0].NewAsset {
		t.Error("Candidate without an active record should be marked as new asset")
	}
	if result.Proposals[0].Tier != TierMedium {
		t.Errorf("Expected default MEDIUM tier for adoption, got %s", result.Proposals[0].Tier)
	}
}

func TestDetectorUnversionedContentChange(t *testing.T) {
	detector := NewDetector(true)
	now := time.Now()

	assets := []database.TrackedAsset{activeAsset("fonts", "", "hash-old", "LOW")}
	candidates := []database.DiscoveredCandidate{
		candidate(1, "fonts", "", "hash-new", now),
		candidate(2, "fonts", "", "hash-old", now),
	}

	result := detector.Run(candidates, assets)

	if len(result.Proposals) != 1 {
		t.Fatalf("Expected 1 proposal for unversioned content change, got %d", len(result.Proposals))
	}
	if result.Proposals[0].NewHash != "hash-new" {
		t.Errorf("Expected proposal for changed content, got hash '%s'", result.Proposals[0].NewHash)
	}
	if len(result.Ignored) != 1 || result.Ignored[0].Reason != ResolutionStale {
		t.Errorf("Unchanged unversioned candidate should be retired as stale, got %+v", result.Ignored)
	}
}

func TestDetectorOrdersByTier(t *testing.T) {
	detector := NewDetector(true)
	now := time.Now()

	assets := []database.TrackedAsset{
		activeAsset("tilda-low", "1.0", "h1", "LOW"),
		activeAsset("tilda-crit", "1.0", "h2", "CRITICAL"),
		activeAsset("tilda-med", "1.0", "h3", "MEDIUM"),
	}
	candidates := []database.DiscoveredCandidate{
		candidate(1, "tilda-low", "1.1", "n1", now),
		candidate(2, "tilda-crit", "1.1", "n2", now),
		candidate(3, "tilda-med", "1.1", "n3", now),
	}

	result := detector.Run(candidates, assets)

	if len(result.Proposals) != 3 {
		t.Fatalf("Expected 3 proposals, got %d", len(result.Proposals))
	}
	order := []string{result.Proposals[0].BaseName, result.Proposals[1].BaseName, result.Proposals[2].BaseName}
	want := []string{"tilda-crit", "tilda-med", "tilda-low"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Proposal %d: expected '%s', got '%s'", i, want[i], order[i])
		}
	}
}
