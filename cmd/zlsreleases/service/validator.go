package service

import (
	"context"
	"fmt"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
	"github.com/zigtools/zlsreleases/cmd/zlsreleases/repository"
	"github.com/zigtools/zlsreleases/common/logger"
)

// PublishOutcome is what the validator hands back on acceptance: the
// stored record, whether this was the record's first publish (so the
// caller knows whether to schedule blob writes and a fresh index
// materialization), and the set of artifact uploads that still need to
// be written to the blob store.
type PublishOutcome struct {
	Record     *models.ReleaseRecord
	FirstWrite bool
	Uploads    []models.ArtifactUpload
}

// Validator implements the publish validator: it runs the eight ordered
// checks, then either mutates the release store atomically or rejects
// with one of the typed errors in models/errors.go.
type Validator struct {
	store         repository.ReleaseStore
	forceMinisign bool
	now           func() int64
	log           *logger.Logger
}

// NewValidator creates a new publish validator. now supplies the current
// time in milliseconds (injected so tests can pin it); forceMinisign
// mirrors the optional config flag requiring signed artifacts.
func NewValidator(store repository.ReleaseStore, forceMinisign bool, now func() int64, log *logger.Logger) *Validator {
	return &Validator{store: store, forceMinisign: forceMinisign, now: now, log: log}
}

// Publish runs all eight checks in order and, on acceptance, performs the
// atomic store batch. Pure validation (checks 1-5) runs before the two
// store lookups that checks 6 and 7 need, so a request that fails checks
// 1-5 never pays for a round trip to the store.
func (v *Validator) Publish(ctx context.Context, req *models.PublishRequest) (*PublishOutcome, error) {
	// 1. Scalar fields parse.
	zlsVersion, err := models.ParseVersion(req.ZLSVersion)
	if err != nil {
		return nil, err
	}
	zigVersion, err := models.ParseVersion(req.ZigVersion)
	if err != nil {
		return nil, err
	}
	minBuild, err := models.ParseVersion(req.MinimumBuildZigVersion)
	if err != nil {
		return nil, err
	}
	minRuntime, err := models.ParseVersion(req.MinimumRuntimeZigVersion)
	if err != nil {
		return nil, err
	}
	compat, err := models.ParseCompatibility(req.Compatibility)
	if err != nil {
		return nil, err
	}

	// ZLS major must be 0.
	if zlsVersion.Major != models.ValidZLSMajor {
		return nil, models.ErrUnsupportedMajor
	}

	// 2+3. Artifact naming, shasum shape, size, and per-group extension-set
	// validation.
	artifacts, uploads, err := v.validateArtifacts(req.Artifacts, zlsVersion)
	if err != nil {
		return nil, err
	}

	// 4. Invariants on the version triple and compatibility.
	if err := validateVersionInvariants(zlsVersion, zigVersion, compat, artifacts); err != nil {
		return nil, err
	}

	// 5. Exactly one of {artifacts empty, compatibility == None}.
	if (len(artifacts) == 0) != (compat == models.CompatibilityNone) {
		return nil, models.ErrCompatibilityMismatch
	}

	// 6. An artifacts-empty publish must be an update to an existing
	// record.
	var existing *models.ReleaseRecord
	if len(artifacts) == 0 {
		existing, err = v.store.GetByVersion(ctx, zlsVersion)
		if err != nil {
			return nil, fmt.Errorf("look up existing record: %w", err)
		}
		if existing == nil {
			return nil, models.ErrFailedBuildNotUpdate
		}
	}

	// 7. Development builds must not conflict on (major, minor,
	// commitHeight) with a different commitId.
	if !zlsVersion.IsTagged() {
		if err := v.checkDevConflict(ctx, zlsVersion); err != nil {
			return nil, err
		}
	}

	// Signature presence must be all-or-nothing across the artifact set,
	// or, if forceMinisign is set, present for every artifact.
	minisign, err := validateMinisignConsistency(req.Artifacts, v.forceMinisign)
	if err != nil {
		return nil, err
	}

	// 8. Accept. Construct the record (unless this is a tested-version-only
	// update to an existing record) and apply the atomic batch.
	firstWrite := existing == nil
	var rec *models.ReleaseRecord
	if firstWrite {
		rec = models.NewReleaseRecord(zlsVersion, zigVersion, minBuild, minRuntime, artifacts, v.now())
		if minisign {
			m := true
			rec.Minisign = &m
		}
	} else {
		rec = existing
	}

	created, err := v.store.UpsertAndPatch(ctx, rec, zigVersion, compat)
	if err != nil {
		return nil, fmt.Errorf("commit publish: %w", err)
	}

	stored, err := v.store.GetByVersion(ctx, zlsVersion)
	if err != nil {
		return nil, fmt.Errorf("read back published record: %w", err)
	}

	return &PublishOutcome{
		Record:     stored,
		FirstWrite: firstWrite && created,
		Uploads:    uploads,
	}, nil
}

// validateArtifacts implements checks 2 and 3: per-artifact naming and
// shape, plus the extension-set-per-group rule. It returns the typed
// ReleaseArtifact slice (for the stored record) alongside the raw uploads
// (for the blob writes the caller performs after acceptance).
func (v *Validator) validateArtifacts(raw map[string]models.ArtifactUpload, zlsVersion models.Version) ([]models.ReleaseArtifact, []models.ArtifactUpload, error) {
	if len(raw) == 0 {
		return nil, nil, nil
	}

	type groupKey struct{ os, arch, version string }
	groups := map[groupKey]map[string]bool{}

	artifacts := make([]models.ReleaseArtifact, 0, len(raw))
	uploads := make([]models.ArtifactUpload, 0, len(raw))

	for fileName, upload := range raw {
		parsed, err := models.ParseArtifactFileName(fileName)
		if err != nil {
			return nil, nil, err
		}
		if parsed.VersionString != zlsVersion.String() {
			return nil, nil, fmt.Errorf("%w: artifact %q names version %q, expected %q", models.ErrVersionMismatch, fileName, parsed.VersionString, zlsVersion)
		}

		artifact := models.ReleaseArtifact{
			OS:         parsed.OS,
			Arch:       parsed.Arch,
			Version:    zlsVersion,
			Extension:  parsed.Extension,
			FileShasum: upload.Shasum,
			FileSize:   upload.Size,
		}
		if err := artifact.ValidateShape(); err != nil {
			return nil, nil, err
		}

		key := groupKey{os: parsed.OS, arch: parsed.Arch, version: parsed.VersionString}
		if groups[key] == nil {
			groups[key] = map[string]bool{}
		}
		groups[key][parsed.Extension] = true

		artifacts = append(artifacts, artifact)
		upload.FileName = fileName
		uploads = append(uploads, upload)
	}

	for key, exts := range groups {
		if err := validateExtensionSet(key.os, exts); err != nil {
			return nil, nil, err
		}
	}

	return artifacts, uploads, nil
}

// validateExtensionSet requires windows groups to carry exactly {"zip"};
// all other OSes must carry exactly {"tar.xz", "tar.gz"}.
func validateExtensionSet(os string, exts map[string]bool) error {
	if os == "windows" {
		if len(exts) != 1 || !exts[models.ExtZip] {
			return fmt.Errorf("%w: windows artifact group must carry exactly {zip}", models.ErrExtensionSetMismatch)
		}
		return nil
	}
	if len(exts) != 2 || !exts[models.ExtTarXZ] || !exts[models.ExtTarGZ] {
		return fmt.Errorf("%w: non-windows artifact group must carry exactly {tar.xz, tar.gz}", models.ErrExtensionSetMismatch)
	}
	return nil
}

// validateVersionInvariants enforces the version-triple and
// compatibility-tag rules a publish request must satisfy.
func validateVersionInvariants(zlsVersion, zigVersion models.Version, compat models.Compatibility, artifacts []models.ReleaseArtifact) error {
	if zlsVersion.IsTagged() {
		if !zigVersion.IsTagged() {
			return fmt.Errorf("%w: tagged ZLS release %s requires a tagged Zig version, got %s", models.ErrTaggedWithoutArtifact, zlsVersion, zigVersion)
		}
		if len(artifacts) == 0 {
			return fmt.Errorf("%w: tagged ZLS release %s must carry artifacts", models.ErrTaggedWithoutArtifact, zlsVersion)
		}
		if compat != models.CompatibilityFull {
			return fmt.Errorf("%w: tagged ZLS release %s must publish with compatibility Full", models.ErrCompatibilityMismatch, zlsVersion)
		}
	}
	if !zlsVersion.IsTagged() && zlsVersion.Patch != 0 {
		return fmt.Errorf("%w: development build %s must have patch 0", models.ErrDevPatchNonzero, zlsVersion)
	}
	return nil
}

// checkDevConflict requires the dev-quad lookup to be either absent, or
// return the exact same version string (same commitId); a different
// commitId at the same (major, minor, patch, commitHeight) quad is
// rejected, first writer wins.
func (v *Validator) checkDevConflict(ctx context.Context, zlsVersion models.Version) error {
	existing, err := v.store.DevByQuad(ctx, zlsVersion.Major, zlsVersion.Minor, zlsVersion.Patch, zlsVersion.Dev.CommitHeight)
	if err != nil {
		return fmt.Errorf("look up dev quad: %w", err)
	}
	if existing == nil {
		return nil
	}
	if existing.ZLSVersion.String() != zlsVersion.String() {
		return fmt.Errorf("%w: %s conflicts with already-published %s at the same (major, minor, commitHeight)", models.ErrConflictingDevCommit, zlsVersion, existing.ZLSVersion)
	}
	return nil
}

// validateMinisignConsistency checks that signature presence is
// all-or-nothing across the artifact set (or, if forceMinisign is set,
// present for every artifact), and returns whether minisign is enabled
// for this publish.
func validateMinisignConsistency(raw map[string]models.ArtifactUpload, forceMinisign bool) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	signedCount := 0
	for _, upload := range raw {
		if len(upload.Minisig) > 0 {
			signedCount++
		}
	}
	switch signedCount {
	case 0:
		if forceMinisign {
			return false, fmt.Errorf("%w: minisign is required but no signatures were supplied", models.ErrMinisignInconsistent)
		}
		return false, nil
	case len(raw):
		return true, nil
	default:
		return false, fmt.Errorf("%w: signature presence must be all-or-nothing across the artifact set", models.ErrMinisignInconsistent)
	}
}
