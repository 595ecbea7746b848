package models

import (
	"fmt"
	"regexp"
	"strconv"
)

// maxSafeVersionComponent bounds each numeric field so that arithmetic on
// Version values (comparisons, commitHeight deltas) never risks overflow.
// 2^53-1 mirrors JavaScript's safe-integer ceiling, since these values
// round-trip through JSON consumers that may not have 64-bit integers.
const maxSafeVersionComponent = 1<<53 - 1

var versionPattern = regexp.MustCompile(
	`^(\d+)\.(\d+)\.(\d+)(?:-dev\.(\d+)\+([0-9a-f]{7,9}))?$`,
)

// DevInfo is the development-build suffix of a Version: -dev.<height>+<commit>.
type DevInfo struct {
	CommitHeight uint64
	CommitID     string
}

// Version is a parsed ZLS/Zig semver value: MAJOR.MINOR.PATCH, optionally
// followed by a development suffix.
type Version struct {
	Major, Minor, Patch uint64
	Dev                 *DevInfo
}

// ParseVersion parses exactly "MAJOR.MINOR.PATCH" or
// "MAJOR.MINOR.PATCH-dev.HEIGHT+COMMITID"; any other shape fails.
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformedVersion, s)
	}

	major, err := parseSafeUint(m[1])
	if err != nil {
		return Version{}, fmt.Errorf("%w: major component of %q: %w", ErrMalformedVersion, s, err)
	}
	minor, err := parseSafeUint(m[2])
	if err != nil {
		return Version{}, fmt.Errorf("%w: minor component of %q: %w", ErrMalformedVersion, s, err)
	}
	patch, err := parseSafeUint(m[3])
	if err != nil {
		return Version{}, fmt.Errorf("%w: patch component of %q: %w", ErrMalformedVersion, s, err)
	}

	v := Version{Major: major, Minor: minor, Patch: patch}

	if m[4] != "" {
		height, err := parseSafeUint(m[4])
		if err != nil {
			return Version{}, fmt.Errorf("%w: commit height of %q: %w", ErrMalformedVersion, s, err)
		}
		v.Dev = &DevInfo{CommitHeight: height, CommitID: m[5]}
	}

	return v, nil
}

func parseSafeUint(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n > maxSafeVersionComponent {
		return 0, fmt.Errorf("%d exceeds safe integer range", n)
	}
	return n, nil
}

// IsTagged reports whether v has no development suffix.
func (v Version) IsTagged() bool {
	return v.Dev == nil
}

// String round-trips ParseVersion for every value ParseVersion can produce.
func (v Version) String() string {
	if v.Dev == nil {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d.%d-dev.%d+%s", v.Major, v.Minor, v.Patch, v.Dev.CommitHeight, v.Dev.CommitID)
}

// MarshalText implements encoding.TextMarshaler, matching how the rest of
// the domain stack marshals versioned identifiers.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Ordering is LT, EQ, or GT — the result of comparing two Versions.
type Ordering int

const (
	LT Ordering = -1
	EQ Ordering = 0
	GT Ordering = 1
)

// CompareVersions implements a total order: lexicographic on (major, minor,
// patch); for equal triples a tagged version is greater than any dev
// version at that triple; between two dev versions, order by commitHeight.
// commitId never participates.
func CompareVersions(a, b Version) Ordering {
	if o := compareUint(a.Major, b.Major); o != EQ {
		return o
	}
	if o := compareUint(a.Minor, b.Minor); o != EQ {
		return o
	}
	if o := compareUint(a.Patch, b.Patch); o != EQ {
		return o
	}

	switch {
	case a.Dev == nil && b.Dev == nil:
		return EQ
	case a.Dev == nil:
		return GT
	case b.Dev == nil:
		return LT
	default:
		return compareUint(a.Dev.CommitHeight, b.Dev.CommitHeight)
	}
}

func compareUint(a, b uint64) Ordering {
	switch {
	case a < b:
		return LT
	case a > b:
		return GT
	default:
		return EQ
	}
}

// Less, LessOrEqual, GreaterOrEqual are convenience wrappers over
// CompareVersions used throughout the selector, where they read closer to
// the underlying inequalities than repeated CompareVersions calls.
func (a Version) Less(b Version) bool           { return CompareVersions(a, b) == LT }
func (a Version) LessOrEqual(b Version) bool    { return CompareVersions(a, b) != GT }
func (a Version) GreaterOrEqual(b Version) bool { return CompareVersions(a, b) != LT }
func (a Version) Equal(b Version) bool          { return CompareVersions(a, b) == EQ }

// MaxVersion returns whichever of a, b orders greater.
func MaxVersion(a, b Version) Version {
	if CompareVersions(a, b) == LT {
		return b
	}
	return a
}

// MajorMinor is a small helper for the "handoff" and index-lookup
// paths, which key queries off of a bare (major, minor) pair rather than a
// full Version.
func (v Version) MajorMinor() (uint64, uint64) {
	return v.Major, v.Minor
}

// ValidZLSMajor is the only ZLS major version this service will ever
// accept, since the project is pre-1.0.
const ValidZLSMajor = 0
