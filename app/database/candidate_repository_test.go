package database

import (
	"testing"
	"time"
)

func testCandidate(locator, baseName, version string) DiscoveredCandidate {
	c := DiscoveredCandidate{
		Locator:      locator,
		BaseName:     baseName,
		ContentHash:  "hash-" + version,
		Size:         512,
		SourcePage:   "https://example.com/",
		DiscoveredAt: time.Now(),
	}
	if version != "" {
		c.Version = &version
	}
	return c
}

func TestSaveCandidateKeyedByLocator(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandidateRepository(db)

	locator := "https://cdn.example/tilda-cart-1.2.min.js"

	created, err := repo.SaveCandidate(testCandidate(locator, "tilda-cart", "1.2"))
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("Expected candidate to be created")
	}

	// The same locator is a duplicate regardless of the other fields.
	created, err = repo.SaveCandidate(testCandidate(locator, "tilda-cart", "1.2"))
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("Saving the same locator twice should be a no-op")
	}

	exists, err := repo.CandidateExists(locator)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("Expected candidate to exist")
	}

	count, _ := repo.GetUnresolvedCount()
	if count != 1 {
		t.Errorf("Expected 1 unresolved candidate, got %d", count)
	}
}

func TestCandidateResolution(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandidateRepository(db)

	if _, err := repo.SaveCandidate(testCandidate("https://cdn.example/tilda-cart-1.2.min.js", "tilda-cart", "1.2")); err != nil {
		t.Fatal(err)
	}

	candidates, err := repo.GetUnresolvedCandidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 unresolved candidate, got %d", len(candidates))
	}
	if candidates[0].NotifiedAt != nil {
		t.Error("Fresh candidate should not be marked notified")
	}

	if err := repo.MarkResolved(candidates[0].ID, "promoted"); err != nil {
		t.Fatal(err)
	}

	remaining, err := repo.GetUnresolvedCandidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("Resolved candidate should leave the pending set, got %d", len(remaining))
	}

	// Resolution is terminal: the locator stays known forever.
	exists, _ := repo.CandidateExists("https://cdn.example/tilda-cart-1.2.min.js")
	if !exists {
		t.Error("Resolved candidate should still be known by locator")
	}
}

func TestCandidateMarkNotified(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandidateRepository(db)

	if _, err := repo.SaveCandidate(testCandidate("https://cdn.example/tilda-cart-1.2.min.js", "tilda-cart", "1.2")); err != nil {
		t.Fatal(err)
	}

	candidates, _ := repo.GetUnresolvedCandidates()
	notifiedAt := time.Now().UTC().Truncate(time.Second)
	if err := repo.MarkNotified(candidates[0].ID, notifiedAt); err != nil {
		t.Fatal(err)
	}

	candidates, _ = repo.GetUnresolvedCandidates()
	if len(candidates) != 1 {
		t.Fatal("Notified candidate should still be unresolved")
	}
	if candidates[0].NotifiedAt == nil || !candidates[0].NotifiedAt.Equal(notifiedAt) {
		t.Errorf("Expected notified at %v, got %v", notifiedAt, candidates[0].NotifiedAt)
	}
}

func TestGetUnresolvedCandidatesGrouping(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCandidateRepository(db)

	seed := []struct {
		locator  string
		baseName string
		version  string
	}{
		{"https://cdn.example/tilda-zoom-2.1.min.js", "tilda-zoom", "2.1"},
		{"https://cdn.example/tilda-cart-1.2.min.js", "tilda-cart", "1.2"},
		{"https://cdn.example/tilda-cart-1.3.min.js", "tilda-cart", "1.3"},
	}
	for _, s := range seed {
		if _, err := repo.SaveCandidate(testCandidate(s.locator, s.baseName, s.version)); err != nil {
			t.Fatal(err)
		}
	}

	candidates, err := repo.GetUnresolvedCandidates()
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(candidates))
	}
	// Ordered by base name so detection sees one group at a time.
	if candidates[0].BaseName != "tilda-cart" || candidates[1].BaseName != "tilda-cart" {
		t.Errorf("Expected tilda-cart candidates first, got %s, %s",
			candidates[0].BaseName, candidates[1].BaseName)
	}
	if candidates[2].BaseName != "tilda-zoom" {
		t.Errorf("Expected tilda-zoom last, got %s", candidates[2].BaseName)
	}
}
