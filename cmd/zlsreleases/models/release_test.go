package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionedBlobKeyBelowFlipIsOSFirst(t *testing.T) {
	a := ReleaseArtifact{
		OS:        "linux",
		Arch:      "x86_64",
		Version:   Version{Major: 0, Minor: 14, Patch: 0},
		Extension: ExtTarXZ,
	}
	assert.Equal(t, "zls-linux-x86_64-0.14.0.tar.xz", a.VersionedBlobKey())
}

func TestVersionedBlobKeyAtFlipIsArchFirst(t *testing.T) {
	a := ReleaseArtifact{
		OS:        "linux",
		Arch:      "x86_64",
		Version:   Version{Major: 0, Minor: 15, Patch: 0},
		Extension: ExtTarXZ,
	}
	assert.Equal(t, "zls-x86_64-linux-0.15.0.tar.xz", a.VersionedBlobKey())
}

func TestVersionedBlobKeyAboveFlipIsArchFirst(t *testing.T) {
	a := ReleaseArtifact{
		OS:        "windows",
		Arch:      "aarch64",
		Version:   Version{Major: 0, Minor: 16, Patch: 2},
		Extension: ExtZip,
	}
	assert.Equal(t, "zls-aarch64-windows-0.16.2.zip", a.VersionedBlobKey())
}

func TestManifestKeyUnchangedAcrossFlip(t *testing.T) {
	below := ReleaseArtifact{OS: "linux", Arch: "x86_64", Version: Version{Major: 0, Minor: 14, Patch: 0}}
	above := ReleaseArtifact{OS: "linux", Arch: "x86_64", Version: Version{Major: 0, Minor: 15, Patch: 0}}
	assert.Equal(t, below.ManifestKey(), above.ManifestKey())
	assert.Equal(t, "x86_64-linux", above.ManifestKey())
}
