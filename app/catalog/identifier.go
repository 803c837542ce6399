package catalog

import (
	"net/url"
	"regexp"
	"strings"
)

// Identity is the parsed form of an asset locator: the version-stripped base
// name plus the version token, if one is recognizable.
type Identity struct {
	BaseName string
	Version  *string
	FileType string
	Domain   string
	Filename string
}

// Locator filename grammar, most specific first. The first matching rule
// wins, so ambiguous filenames resolve deterministically.
var versionPatterns = []*regexp.Regexp{
	// tilda-cart-1.1.min.js
	regexp.MustCompile(`^(?P<base>[\w-]+?)-(?P<version>\d+\.\d+(?:\.\d+)?)(?:\.min)?\.(?P<ext>js|css)$`),
	// tilda-cart-v2.min.js
	regexp.MustCompile(`^(?P<base>[\w-]+?)-v(?P<version>\d+(?:\.\d+)*)(?:\.min)?\.(?P<ext>js|css)$`),
	// tilda-cart.1.0.min.js
	regexp.MustCompile(`^(?P<base>[\w-]+?)\.(?P<version>\d+\.\d+(?:\.\d+)?)(?:\.min)?\.(?P<ext>js|css)$`),
}

var extensionSuffixes = []struct {
	suffix   string
	fileType string
}{
	{".min.js", "js"},
	{".js", "js"},
	{".min.css", "css"},
	{".css", "css"},
}

// Identify parses a locator into a stable (base name, version) pair. It is
// pure: the same locator always yields the same identity.
func Identify(locator string) Identity {
	identity := Identity{}

	filename := locator
	if parsed, err := url.Parse(locator); err == nil {
		identity.Domain = parsed.Host
		if parsed.Path != "" {
			segments := strings.Split(parsed.Path, "/")
			filename = segments[len(segments)-1]
		}
	}
	identity.Filename = filename

	for _, pattern := range versionPatterns {
		match := pattern.FindStringSubmatch(filename)
		if match == nil {
			continue
		}

		for i, name := range pattern.SubexpNames() {
			switch name {
			case "base":
				identity.BaseName = match[i]
			case "version":
				version := match[i]
				identity.Version = &version
			case "ext":
				identity.FileType = match[i]
			}
		}
		return identity
	}

	// No recognizable version token: strip the extension suffix and keep the
	// rest as the base name.
	for _, ext := range extensionSuffixes {
		if strings.HasSuffix(filename, ext.suffix) {
			identity.BaseName = strings.TrimSuffix(filename, ext.suffix)
			identity.FileType = ext.fileType
			return identity
		}
	}

	identity.BaseName = filename
	return identity
}
