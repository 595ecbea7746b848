package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
)

func artifact(os, arch, version, ext string) models.ReleaseArtifact {
	return models.ReleaseArtifact{
		OS:         os,
		Arch:       arch,
		Version:    mustVersion(version),
		Extension:  ext,
		FileShasum: testShasum,
		FileSize:   1024,
	}
}

func TestFormatReleaseExcludesTarGZ(t *testing.T) {
	f := NewFormatter("https://builds.zigtools.org")
	rec := &models.ReleaseRecord{
		ZLSVersion: mustVersion("0.12.0"),
		DateMillis: 1700000000000,
		Artifacts: []models.ReleaseArtifact{
			artifact("linux", "x86_64", "0.12.0", models.ExtTarXZ),
			artifact("linux", "x86_64", "0.12.0", models.ExtTarGZ),
			artifact("windows", "x86_64", "0.12.0", models.ExtZip),
		},
	}

	out, err := f.FormatRelease(rec)
	require.NoError(t, err)

	assert.Equal(t, "0.12.0", out["version"])
	assert.Contains(t, out, "x86_64-linux")
	assert.Contains(t, out, "x86_64-windows")

	entry := out["x86_64-linux"].(ArtifactManifest)
	assert.Contains(t, entry.Tarball, "zls-linux-x86_64-0.12.0.tar.xz")
}

func TestFormatReleaseRejectsDuplicateManifestKey(t *testing.T) {
	f := NewFormatter("https://builds.zigtools.org")
	rec := &models.ReleaseRecord{
		ZLSVersion: mustVersion("0.12.0"),
		DateMillis: 1700000000000,
		Artifacts: []models.ReleaseArtifact{
			artifact("linux", "x86_64", "0.12.0", models.ExtTarXZ),
			artifact("linux", "x86_64", "0.12.0", models.ExtZip),
		},
	}

	_, err := f.FormatRelease(rec)
	assert.ErrorIs(t, err, models.ErrDuplicateManifestKey)
}

func TestFormatIndexOmitsVersionKeyPerEntry(t *testing.T) {
	f := NewFormatter("https://builds.zigtools.org")
	records := []*models.ReleaseRecord{
		{
			ZLSVersion: mustVersion("0.13.0"),
			DateMillis: 1700000000000,
			Artifacts:  []models.ReleaseArtifact{artifact("linux", "x86_64", "0.13.0", models.ExtTarXZ)},
		},
		{
			ZLSVersion: mustVersion("0.12.0"),
			DateMillis: 1690000000000,
			Artifacts:  []models.ReleaseArtifact{artifact("linux", "x86_64", "0.12.0", models.ExtTarXZ)},
		},
	}

	index, err := f.FormatIndex(records)
	require.NoError(t, err)
	require.Contains(t, index, "0.13.0")
	require.Contains(t, index, "0.12.0")

	entry := index["0.13.0"].(map[string]interface{})
	assert.NotContains(t, entry, "version")
	assert.Contains(t, entry, "date")
}
