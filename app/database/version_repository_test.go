package database

import (
	"testing"
	"time"
)

func archivedVersion(baseName, version string, archivedAt time.Time) AssetVersion {
	v := AssetVersion{
		BaseName:    baseName,
		Locator:     "https://cdn.example/" + baseName + "-" + version + ".min.js",
		FileType:    "js",
		Category:    "commerce",
		Priority:    "MEDIUM",
		ContentHash: "hash-" + version,
		Size:        1024,
		ArchivedAt:  archivedAt,
	}
	if version != "" {
		v.Version = &version
	}
	return v
}

func TestVersionArchiveOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVersionRepository(db)

	now := time.Now()
	for i, version := range []string{"1.0", "1.1", "1.2"} {
		v := archivedVersion("tilda-cart", version, now.Add(time.Duration(i)*time.Hour))
		if err := repo.SaveVersion(v); err != nil {
			t.Fatal(err)
		}
	}

	versions, err := repo.GetVersions("tilda-cart")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 3 {
		t.Fatalf("Expected 3 versions, got %d", len(versions))
	}

	// Oldest first.
	want := []string{"1.0", "1.1", "1.2"}
	for i := range want {
		if *versions[i].Version != want[i] {
			t.Errorf("Position %d: expected '%s', got '%s'", i, want[i], *versions[i].Version)
		}
	}

	count, _ := repo.GetVersionCount()
	if count != 3 {
		t.Errorf("Expected version count 3, got %d", count)
	}
}

func TestGetVersionPicksLatestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVersionRepository(db)

	now := time.Now()

	// The same version token can be archived more than once (a rollback
	// re-archives the state it supersedes). Lookup returns the newest.
	first := archivedVersion("tilda-cart", "1.1", now.Add(-2*time.Hour))
	first.ContentHash = "hash-earlier"
	if err := repo.SaveVersion(first); err != nil {
		t.Fatal(err)
	}

	second := archivedVersion("tilda-cart", "1.1", now)
	second.ContentHash = "hash-later"
	if err := repo.SaveVersion(second); err != nil {
		t.Fatal(err)
	}

	v, err := repo.GetVersion("tilda-cart", "1.1")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil {
		t.Fatal("Expected version to be found")
	}
	if v.ContentHash != "hash-later" {
		t.Errorf("Expected latest snapshot, got hash '%s'", v.ContentHash)
	}
}

func TestGetVersionMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVersionRepository(db)

	v, err := repo.GetVersion("tilda-cart", "9.9")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Error("Expected nil for unknown version")
	}
}
