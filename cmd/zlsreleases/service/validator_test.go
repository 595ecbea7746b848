package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
	"github.com/zigtools/zlsreleases/common/logger"
)

const testShasum = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func newTestValidator(store *fakeStore, forceMinisign bool) *Validator {
	now := func() int64 { return 1700000000000 }
	return NewValidator(store, forceMinisign, now, logger.New("error", "json"))
}

func fullArtifactSet(version string) map[string]models.ArtifactUpload {
	return map[string]models.ArtifactUpload{
		"zls-linux-x86_64-" + version + ".tar.xz": {Shasum: testShasum, Size: 1024},
		"zls-linux-x86_64-" + version + ".tar.gz": {Shasum: testShasum, Size: 2048},
		"zls-windows-x86_64-" + version + ".zip":  {Shasum: testShasum, Size: 4096},
	}
}

// TestPublishTaggedReleaseAccepted checks that a tagged publish with a
// complete extension set is accepted, and that the stored record's
// testedZigVersions reflects the publish's own (zigVersion, compatibility).
func TestPublishTaggedReleaseAccepted(t *testing.T) {
	store := newFakeStore()
	v := newTestValidator(store, false)

	req := &models.PublishRequest{
		ZLSVersion:               "0.1.0",
		ZigVersion:               "0.1.0",
		MinimumBuildZigVersion:   "0.1.0",
		MinimumRuntimeZigVersion: "0.1.0",
		Compatibility:            "full",
		Artifacts:                fullArtifactSet("0.1.0"),
	}

	outcome, err := v.Publish(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, outcome.FirstWrite)
	assert.Len(t, outcome.Uploads, 3)

	stored, err := store.GetByVersion(context.Background(), mustVersion("0.1.0"))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.CompatibilityFull, stored.TestedZigVersions["0.1.0"])
}

// TestPublishTaggedReleaseMissingExtensionRejected checks that a tagged
// publish carrying only tar.xz for a non-windows group fails the
// extension-set check.
func TestPublishTaggedReleaseMissingExtensionRejected(t *testing.T) {
	store := newFakeStore()
	v := newTestValidator(store, false)

	req := &models.PublishRequest{
		ZLSVersion:               "0.1.0",
		ZigVersion:               "0.1.0",
		MinimumBuildZigVersion:   "0.1.0",
		MinimumRuntimeZigVersion: "0.1.0",
		Compatibility:            "full",
		Artifacts: map[string]models.ArtifactUpload{
			"zls-linux-x86_64-0.1.0.tar.xz": {Shasum: testShasum, Size: 1024},
		},
	}

	_, err := v.Publish(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrExtensionSetMismatch)
}

// TestPublishDevConflictingCommitRejected checks that a second publish at
// the same (major, minor, patch, commitHeight) quad with a different
// commitId is rejected; first writer wins.
func TestPublishDevConflictingCommitRejected(t *testing.T) {
	store := newFakeStore()
	v := newTestValidator(store, false)

	first := &models.PublishRequest{
		ZLSVersion:               "0.13.0-dev.1+aaaaaaa",
		ZigVersion:               "0.13.0-dev.1+aaaaaaa",
		MinimumBuildZigVersion:   "0.13.0-dev.1+aaaaaaa",
		MinimumRuntimeZigVersion: "0.13.0-dev.1+aaaaaaa",
		Compatibility:            "full",
		Artifacts:                fullArtifactSet("0.13.0-dev.1+aaaaaaa"),
	}
	_, err := v.Publish(context.Background(), first)
	require.NoError(t, err)

	second := &models.PublishRequest{
		ZLSVersion:               "0.13.0-dev.1+bbbbbbb",
		ZigVersion:               "0.13.0-dev.1+bbbbbbb",
		MinimumBuildZigVersion:   "0.13.0-dev.1+bbbbbbb",
		MinimumRuntimeZigVersion: "0.13.0-dev.1+bbbbbbb",
		Compatibility:            "full",
		Artifacts:                fullArtifactSet("0.13.0-dev.1+bbbbbbb"),
	}
	_, err = v.Publish(context.Background(), second)
	assert.ErrorIs(t, err, models.ErrConflictingDevCommit)
}

// TestPublishUnsupportedMajorRejected checks that any zlsVersion with
// major != 0 is rejected, regardless of how well-formed the rest of the
// request is.
func TestPublishUnsupportedMajorRejected(t *testing.T) {
	store := newFakeStore()
	v := newTestValidator(store, false)

	req := &models.PublishRequest{
		ZLSVersion:               "1.0.0",
		ZigVersion:               "1.0.0",
		MinimumBuildZigVersion:   "1.0.0",
		MinimumRuntimeZigVersion: "1.0.0",
		Compatibility:            "full",
		Artifacts:                fullArtifactSet("1.0.0"),
	}

	_, err := v.Publish(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrUnsupportedMajor)
}

func TestPublishTaggedWithoutArtifactsRejected(t *testing.T) {
	store := newFakeStore()
	v := newTestValidator(store, false)

	req := &models.PublishRequest{
		ZLSVersion:               "0.1.0",
		ZigVersion:               "0.1.0",
		MinimumBuildZigVersion:   "0.1.0",
		MinimumRuntimeZigVersion: "0.1.0",
		Compatibility:            "none",
	}

	_, err := v.Publish(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrTaggedWithoutArtifact)
}

func TestPublishArtifactEmptyUpdateRequiresExistingRecord(t *testing.T) {
	store := newFakeStore()
	v := newTestValidator(store, false)

	req := &models.PublishRequest{
		ZLSVersion:               "0.13.0-dev.1+aaaaaaa",
		ZigVersion:               "0.13.0-dev.5+bbbbbbb",
		MinimumBuildZigVersion:   "0.13.0-dev.1+aaaaaaa",
		MinimumRuntimeZigVersion: "0.13.0-dev.1+aaaaaaa",
		Compatibility:            "none",
	}

	_, err := v.Publish(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrFailedBuildNotUpdate)
}

func TestPublishForceMinisignRejectsUnsigned(t *testing.T) {
	store := newFakeStore()
	v := newTestValidator(store, true)

	req := &models.PublishRequest{
		ZLSVersion:               "0.1.0",
		ZigVersion:               "0.1.0",
		MinimumBuildZigVersion:   "0.1.0",
		MinimumRuntimeZigVersion: "0.1.0",
		Compatibility:            "full",
		Artifacts:                fullArtifactSet("0.1.0"),
	}

	_, err := v.Publish(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrMinisignInconsistent)
}
