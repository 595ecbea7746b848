package models

import (
	"fmt"
	"regexp"
)

// currentSchemaVersion is bumped whenever ReleaseRecord gains a field that
// must be defaulted on read of older rows — e.g. Minisign was added after
// the table already had rows.
const currentSchemaVersion = 1

// ExtTarXZ, ExtTarGZ and ExtZip are the three artifact archive formats
// enumerated for ReleaseArtifact.
const (
	ExtTarXZ = "tar.xz"
	ExtTarGZ = "tar.gz"
	ExtZip   = "zip"
)

var shasumPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ReleaseArtifact is a single downloadable build for one (os, arch).
type ReleaseArtifact struct {
	OS         string  `json:"os"`
	Arch       string  `json:"arch"`
	Version    Version `json:"version"`
	Extension  string  `json:"extension"`
	FileShasum string  `json:"fileShasum"`
	FileSize   int64   `json:"fileSize"`
}

// ValidateShape checks the artifact's own well-formedness (cross-artifact
// checks over the whole group happen in the validator, not here): a known
// extension, a 64-char lowercase-hex shasum, and a positive size.
func (a ReleaseArtifact) ValidateShape() error {
	switch a.Extension {
	case ExtTarXZ, ExtTarGZ, ExtZip:
	default:
		return fmt.Errorf("%w: unknown extension %q", ErrArtifactNaming, a.Extension)
	}
	if !shasumPattern.MatchString(a.FileShasum) {
		return fmt.Errorf("%w: fileShasum must be 64 lowercase hex characters", ErrArtifactShasumShape)
	}
	if a.FileSize <= 0 {
		return fmt.Errorf("%w: fileSize must be positive", ErrArtifactEmpty)
	}
	return nil
}

// BlobKey is the content-addressed object key this artifact is stored
// under in the blob store, using the os-first file-name convention. ZLS
// versions >= 0.15.0 flip the file-name portion to arch-first; see
// VersionedBlobKey.
func (a ReleaseArtifact) BlobKey() string {
	return fmt.Sprintf("zls-%s-%s-%s.%s", a.OS, a.Arch, a.Version, a.Extension)
}

// targetStringFlipVersion is the ZLS version at which the artifact
// file-name portion flips from "zls-<os>-<arch>-..." to
// "zls-<arch>-<os>-...". The manifest key "<arch>-<os>" is unchanged
// across the flip.
var targetStringFlipVersion = Version{Major: 0, Minor: 15, Patch: 0}

// VersionedBlobKey returns the object key using whichever file-name
// convention applies to a.Version: os-first below 0.15.0, arch-first at
// or above it.
func (a ReleaseArtifact) VersionedBlobKey() string {
	if a.Version.GreaterOrEqual(targetStringFlipVersion) {
		return fmt.Sprintf("zls-%s-%s-%s.%s", a.Arch, a.OS, a.Version, a.Extension)
	}
	return a.BlobKey()
}

// ManifestKey is the "<arch>-<os>" key used in both the single-release and
// index manifests; it never changes shape across the target-string flip.
func (a ReleaseArtifact) ManifestKey() string {
	return fmt.Sprintf("%s-%s", a.Arch, a.OS)
}

// ReleaseRecord is the unit of storage, keyed by ZLS version string.
type ReleaseRecord struct {
	SchemaVersion int `json:"schemaVersion"`

	ZLSVersion               Version `json:"zlsVersion"`
	ZigVersion               Version `json:"zigVersion"`
	MinimumBuildZigVersion   Version `json:"minimumBuildZigVersion"`
	MinimumRuntimeZigVersion Version `json:"minimumRuntimeZigVersion"`

	// DateMillis is the timestamp, in milliseconds, of first publish.
	DateMillis int64 `json:"date"`

	Artifacts []ReleaseArtifact `json:"artifacts"`

	// TestedZigVersions maps a Zig version string to the Compatibility
	// observed for it. Stored as a string-keyed map (the wire/storage
	// shape); ParsedTestedZigVersions gives the sorted, parsed view the
	// selector needs.
	TestedZigVersions map[string]Compatibility `json:"testedZigVersions"`

	// Minisign records whether signature files accompany the artifacts.
	// Optional: absent on records written before minisign support was
	// added, which MinisignEnabled reports as false.
	Minisign *bool `json:"minisign,omitempty"`
}

// NewReleaseRecord constructs a record with the fields the validator fills
// in at accept-time (date, empty testedZigVersions).
func NewReleaseRecord(zls, zig, minBuild, minRuntime Version, artifacts []ReleaseArtifact, dateMillis int64) *ReleaseRecord {
	return &ReleaseRecord{
		SchemaVersion:            currentSchemaVersion,
		ZLSVersion:               zls,
		ZigVersion:               zig,
		MinimumBuildZigVersion:   minBuild,
		MinimumRuntimeZigVersion: minRuntime,
		DateMillis:               dateMillis,
		Artifacts:                artifacts,
		TestedZigVersions:        map[string]Compatibility{},
	}
}

// TestedPoint is one entry of a record's testedZigVersions, with its key
// parsed into a Version and its Compatibility reduced to a pass/fail bit
// for the requested compatibility regime.
type TestedPoint struct {
	Version Version
	Success bool
}

// ParsedTestedZigVersions parses and sorts r.TestedZigVersions ascending by
// version, reducing each Compatibility to a Success bit under req. Entries
// with an unparseable key are skipped (they cannot have been written by
// this service's own validator, which always stores a valid Version
// string, but a defensive skip keeps a corrupt row from panicking a read
// path instead of merely degrading the enclosed-in-failure search).
func (r *ReleaseRecord) ParsedTestedZigVersions(req RequestedCompatibility) []TestedPoint {
	points := make([]TestedPoint, 0, len(r.TestedZigVersions))
	for raw, compat := range r.TestedZigVersions {
		v, err := ParseVersion(raw)
		if err != nil {
			continue
		}
		points = append(points, TestedPoint{Version: v, Success: compat.SuccessUnderRequest(req)})
	}
	sortTestedPoints(points)
	return points
}

func sortTestedPoints(points []TestedPoint) {
	for i := 1; i < len(points); i++ {
		for j := i; j > 0 && points[j].Version.Less(points[j-1].Version); j-- {
			points[j-1], points[j] = points[j], points[j-1]
		}
	}
}

// EffectiveMinimum computes the Zig-version floor a requested compatibility
// regime must clear: Full requires both the build and runtime floors;
// OnlyRuntime requires only the runtime floor.
func (r *ReleaseRecord) EffectiveMinimum(req RequestedCompatibility) Version {
	if req == RequestOnlyRuntime {
		return r.MinimumRuntimeZigVersion
	}
	return MaxVersion(r.MinimumBuildZigVersion, r.MinimumRuntimeZigVersion)
}

// HasArtifacts reports whether this record carries any build output, i.e.
// is not a "failed build" record.
func (r *ReleaseRecord) HasArtifacts() bool {
	return len(r.Artifacts) > 0
}

// MinisignEnabled reports r.Minisign, defaulting to false for records
// written before the field existed.
func (r *ReleaseRecord) MinisignEnabled() bool {
	return r.Minisign != nil && *r.Minisign
}

// LoadReleaseRecord deserializes a stored record and rejects rows written
// by a schema newer than this binary understands.
func LoadReleaseRecord(data []byte, unmarshal func([]byte, interface{}) error) (*ReleaseRecord, error) {
	var r ReleaseRecord
	if err := unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode release record: %w", err)
	}
	if r.SchemaVersion > currentSchemaVersion {
		return nil, fmt.Errorf("release record schema version %d is newer than this binary understands (%d)", r.SchemaVersion, currentSchemaVersion)
	}
	if r.TestedZigVersions == nil {
		r.TestedZigVersions = map[string]Compatibility{}
	}
	return &r, nil
}
