package models

import "errors"

// Typed publish-validation errors. Each maps to a specific 4xx message in
// the HTTP layer.
var (
	ErrMalformedVersion      = errors.New("malformed version")
	ErrInvalidCompatibility  = errors.New("invalid compatibility")
	ErrArtifactNaming        = errors.New("artifact-naming")
	ErrArtifactShasumShape   = errors.New("artifact-shasum-shape")
	ErrArtifactEmpty         = errors.New("artifact-empty")
	ErrExtensionSetMismatch  = errors.New("extension-set-mismatch")
	ErrVersionMismatch       = errors.New("version-mismatch")
	ErrDevPatchNonzero       = errors.New("dev-patch-nonzero")
	ErrConflictingDevCommit  = errors.New("conflicting-dev-commit")
	ErrTaggedWithoutArtifact = errors.New("tagged-without-artifacts")
	ErrFailedBuildNotUpdate  = errors.New("failed-build-not-updatable")
	ErrCompatibilityMismatch = errors.New("compatibility-mismatch")

	// ErrUnsupportedMajor signals that the ZLS major version is not 0. The
	// HTTP layer maps this to the fixed 418 "teapot" response.
	ErrUnsupportedMajor = errors.New("zls major version must be 0")

	// ErrDuplicateManifestKey signals a formatter-level invariant
	// violation: two artifacts produced the same "<arch>-<os>" key.
	ErrDuplicateManifestKey = errors.New("duplicate manifest key")

	// ErrMinisignInconsistent signals a signature-presence mismatch across
	// an artifact set: not in the publish-validation taxonomy above, since
	// minisign is an optional, orthogonal concern layered on top of it.
	ErrMinisignInconsistent = errors.New("minisign-inconsistent")
)
