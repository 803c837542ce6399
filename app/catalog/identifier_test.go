package catalog

import (
	"testing"
)

func TestIdentifyDashVersion(t *testing.T) {
	identity := Identify("https://static.cdn.example/js/tilda-cart-1.1.min.js")

	if identity.BaseName != "tilda-cart" {
		t.Errorf("Expected base name 'tilda-cart', got '%s'", identity.BaseName)
	}
	if identity.Version == nil || *identity.Version != "1.1" {
		t.Errorf("Expected version '1.1', got %v", identity.Version)
	}
	if identity.FileType != "js" {
		t.Errorf("Expected file type 'js', got '%s'", identity.FileType)
	}
	if identity.Domain != "static.cdn.example" {
		t.Errorf("Expected domain 'static.cdn.example', got '%s'", identity.Domain)
	}
	if identity.Filename != "tilda-cart-1.1.min.js" {
		t.Errorf("Expected filename 'tilda-cart-1.1.min.js', got '%s'", identity.Filename)
	}
}

func TestIdentifyPatterns(t *testing.T) {
	tests := []struct {
		name        string
		locator     string
		wantBase    string
		wantVersion string // empty string means nil expected
		wantType    string
	}{
		{"dash version three segments", "https://cdn.example/tilda-zero-scale-1.1.0.js", "tilda-zero-scale", "1.1.0", "js"},
		{"v-prefixed version", "https://cdn.example/tilda-forms-v2.min.js", "tilda-forms", "2", "js"},
		{"v-prefixed dotted version", "https://cdn.example/tilda-forms-v2.1.min.js", "tilda-forms", "2.1", "js"},
		{"dot separated version", "https://cdn.example/tilda-blocks.1.0.min.css", "tilda-blocks", "1.0", "css"},
		{"css with dash version", "https://cdn.example/tilda-grid-3.0.min.css", "tilda-grid", "3.0", "css"},
		{"versionless js", "https://cdn.example/tilda-polyfill.min.js", "tilda-polyfill", "", "js"},
		{"versionless css", "https://cdn.example/fonts.css", "fonts", "", "css"},
		{"underscore base name", "https://cdn.example/lazy_load-1.2.js", "lazy_load", "1.2", "js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := Identify(tt.locator)

			if identity.BaseName != tt.wantBase {
				t.Errorf("Expected base name '%s', got '%s'", tt.wantBase, identity.BaseName)
			}
			if tt.wantVersion == "" {
				if identity.Version != nil {
					t.Errorf("Expected no version, got '%s'", *identity.Version)
				}
			} else {
				if identity.Version == nil {
					t.Fatalf("Expected version '%s', got nil", tt.wantVersion)
				}
				if *identity.Version != tt.wantVersion {
					t.Errorf("Expected version '%s', got '%s'", tt.wantVersion, *identity.Version)
				}
			}
			if identity.FileType != tt.wantType {
				t.Errorf("Expected file type '%s', got '%s'", tt.wantType, identity.FileType)
			}
		})
	}
}

func TestIdentifyIsPure(t *testing.T) {
	locator := "https://static.cdn.example/js/tilda-slider-1.4.min.js"

	first := Identify(locator)
	second := Identify(locator)

	if first.BaseName != second.BaseName {
		t.Errorf("Base name differs between calls: '%s' vs '%s'", first.BaseName, second.BaseName)
	}
	if (first.Version == nil) != (second.Version == nil) {
		t.Fatal("Version presence differs between calls")
	}
	if first.Version != nil && *first.Version != *second.Version {
		t.Errorf("Version differs between calls: '%s' vs '%s'", *first.Version, *second.Version)
	}
}

func TestIdentifySameBaseDifferentVersions(t *testing.T) {
	a := Identify("https://cdn.example/tilda-cart-1.1.min.js")
	b := Identify("https://cdn.example/tilda-cart-1.2.min.js")

	if a.BaseName != b.BaseName {
		t.Errorf("Different versions of the same asset should share a base name: '%s' vs '%s'", a.BaseName, b.BaseName)
	}
	if *a.Version == *b.Version {
		t.Error("Different locators should carry different version tokens")
	}
}

func TestIdentifyUnparseableFilename(t *testing.T) {
	identity := Identify("https://cdn.example/download?id=42")

	if identity.Version != nil {
		t.Errorf("Expected no version for unparseable filename, got '%s'", *identity.Version)
	}
	if identity.FileType != "" {
		t.Errorf("Expected empty file type, got '%s'", identity.FileType)
	}
}
