package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Ordering is the result of comparing two version tokens.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "LESS"
	case Greater:
		return "GREATER"
	default:
		return "EQUAL"
	}
}

// MalformedVersionError reports a version token whose segments cannot be
// parsed as integers. Comparison never silently defaults.
type MalformedVersionError struct {
	Version string
	Segment string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("malformed version %q: segment %q is not numeric", e.Version, e.Segment)
}

// Compare orders two version tokens by their dot-separated numeric segments,
// compared as integers so that "1.10" > "1.2". A shorter token is
// zero-extended, so "1.2" == "1.2.0".
func Compare(a, b string) (Ordering, error) {
	segmentsA, err := parseSegments(a)
	if err != nil {
		return Equal, err
	}
	segmentsB, err := parseSegments(b)
	if err != nil {
		return Equal, err
	}

	length := len(segmentsA)
	if len(segmentsB) > length {
		length = len(segmentsB)
	}

	for i := 0; i < length; i++ {
		var valueA, valueB int
		if i < len(segmentsA) {
			valueA = segmentsA[i]
		}
		if i < len(segmentsB) {
			valueB = segmentsB[i]
		}

		if valueA < valueB {
			return Less, nil
		}
		if valueA > valueB {
			return Greater, nil
		}
	}

	return Equal, nil
}

func parseSegments(version string) ([]int, error) {
	if version == "" {
		return nil, &MalformedVersionError{Version: version, Segment: ""}
	}

	parts := strings.Split(version, ".")
	segments := make([]int, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return nil, &MalformedVersionError{Version: version, Segment: part}
		}
		segments = append(segments, value)
	}

	return segments, nil
}
