package models

import (
	"fmt"
	"regexp"
)

// ArtifactUpload is one entry of a PublishRequest's artifacts map: the
// file name maps to shasum/size metadata.
type ArtifactUpload struct {
	FileName string `json:"fileName"`
	Shasum   string `json:"shasum"`
	Size     int64  `json:"size"`
	// Content carries the raw artifact bytes for the blob write that
	// follows acceptance; it is never persisted on the ReleaseRecord
	// itself. Minisig is the optional accompanying signature.
	Content []byte `json:"-"`
	Minisig []byte `json:"-"`
}

// PublishRequest is the input to the publish validator.
type PublishRequest struct {
	ZLSVersion               string                    `json:"zlsVersion"`
	ZigVersion               string                    `json:"zigVersion"`
	MinimumBuildZigVersion   string                    `json:"minimumBuildZigVersion"`
	MinimumRuntimeZigVersion string                    `json:"minimumRuntimeZigVersion"`
	Compatibility            string                    `json:"compatibility"`
	Artifacts                map[string]ArtifactUpload `json:"artifacts"`
}

var artifactFileNamePattern = regexp.MustCompile(
	`^zls-([a-z0-9_]+)-([a-z0-9_]+)-(.+)\.(tar\.xz|tar\.gz|zip)$`,
)

// ParsedArtifactName is the (os, arch, version, extension) decomposition
// of an artifact's file name: zls-<os>-<arch>-<version>.(tar.xz|tar.gz|zip).
type ParsedArtifactName struct {
	OS, Arch, VersionString, Extension string
}

// ParseArtifactFileName validates and decomposes a file name.
func ParseArtifactFileName(name string) (ParsedArtifactName, error) {
	m := artifactFileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return ParsedArtifactName{}, fmt.Errorf("%w: %q does not match zls-<os>-<arch>-<version>.<ext>", ErrArtifactNaming, name)
	}
	return ParsedArtifactName{OS: m[1], Arch: m[2], VersionString: m[3], Extension: m[4]}, nil
}
