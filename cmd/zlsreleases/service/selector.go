// Package service holds the core algorithms of the release coordination
// service: version selection, publish validation, index materialization,
// and manifest formatting.
package service

import (
	"context"
	"fmt"

	"github.com/zigtools/zlsreleases/cmd/zlsreleases/models"
	"github.com/zigtools/zlsreleases/cmd/zlsreleases/repository"
	"github.com/zigtools/zlsreleases/common/logger"
)

// Selector implements selectVersion: given (zigVersion, compatibility),
// return either a selected ReleaseRecord or a typed FailureCode.
type Selector struct {
	store repository.ReleaseStore
	log   *logger.Logger
}

// NewSelector creates a new version selector.
func NewSelector(store repository.ReleaseStore, log *logger.Logger) *Selector {
	return &Selector{store: store, log: log}
}

// SelectVersion dispatches to tagged- or development-build selection
// depending on whether zigVersion itself is tagged.
func (s *Selector) SelectVersion(ctx context.Context, zigVersion models.Version, compat models.RequestedCompatibility) (models.SelectionResult, error) {
	if zigVersion.IsTagged() {
		return s.selectOnTaggedRelease(ctx, zigVersion)
	}
	return s.selectOnDevelopmentBuild(ctx, zigVersion, compat)
}

// selectOnTaggedRelease selects a release for a tagged Zig version.
func (s *Selector) selectOnTaggedRelease(ctx context.Context, zig models.Version) (models.SelectionResult, error) {
	major, minor := zig.MajorMinor()

	byMinor, err := s.store.TaggedByMinor(ctx, major, minor)
	if err != nil {
		return models.SelectionResult{}, fmt.Errorf("query tagged by minor: %w", err)
	}
	if len(byMinor) > 0 {
		return models.Selected(byMinor[0]), nil
	}

	oldest, err := s.store.AllTaggedAsc(ctx)
	if err != nil {
		return models.SelectionResult{}, fmt.Errorf("query all tagged asc: %w", err)
	}
	if len(oldest) == 0 {
		return models.Failed(models.FailureTaggedReleaseIncompatible), nil
	}
	if zig.Less(oldest[0].MinimumRuntimeZigVersion) {
		return models.Failed(models.FailureUnsupported), nil
	}
	return models.Failed(models.FailureTaggedReleaseIncompatible), nil
}

// selectOnDevelopmentBuild implements the four-phase algorithm for a
// development-build Zig version: candidate set, support floor,
// newest-admissible scan, and the enclosed-in-failure bracket search.
func (s *Selector) selectOnDevelopmentBuild(ctx context.Context, zig models.Version, compat models.RequestedCompatibility) (models.SelectionResult, error) {
	major, minor := zig.MajorMinor()

	// Phase A — candidate set.
	dev, err := s.store.DevByMinor(ctx, major, minor)
	if err != nil {
		return models.SelectionResult{}, fmt.Errorf("query dev by minor: %w", err)
	}

	candidates := dev
	handoff := len(dev) == 0
	if handoff {
		tagged, err := s.store.AllTaggedDesc(ctx)
		if err != nil {
			return models.SelectionResult{}, fmt.Errorf("query all tagged desc: %w", err)
		}
		if len(tagged) > 0 {
			candidates = tagged[:1]
		} else {
			candidates = nil
		}
	}

	if len(candidates) == 0 {
		return models.Failed(models.FailureDevelopmentBuildUnsupported), nil
	}

	// Phase B — support floor.
	floor := candidates[0].EffectiveMinimum(compat)
	if zig.Less(floor) {
		if !handoff {
			return models.Failed(models.FailureDevelopmentBuildUnsupported), nil
		}
		return models.Failed(models.FailureUnsupported), nil
	}

	// Phase C — pick newest admissible release. Minima are not required
	// to be monotonic with commitHeight, so the scan must not terminate
	// early on a regression; it must run to the end of candidates.
	selected := candidates[0]
	for _, cand := range candidates {
		m := cand.EffectiveMinimum(compat)
		if zig.GreaterOrEqual(m) {
			selected = cand
		}
	}

	// Phase D — enclosed-in-failure check.
	if isVersionEnclosedInFailure(selected.ParsedTestedZigVersions(compat), zig) {
		return models.Failed(models.FailureDevelopmentBuildIncompatible), nil
	}

	return models.Selected(selected), nil
}

// isVersionEnclosedInFailure reports whether v is enclosed in failure: both
// the nearest tested neighbor <= v and the nearest tested neighbor >= v
// failed (a tested equal neighbor counts as both). tested must be sorted
// ascending by Version and non-empty.
func isVersionEnclosedInFailure(tested []models.TestedPoint, v models.Version) bool {
	if v.LessOrEqual(tested[0].Version) {
		return !tested[0].Success
	}
	last := len(tested) - 1
	if v.GreaterOrEqual(tested[last].Version) {
		return !tested[last].Success
	}

	lo, hi := 0, last
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if tested[mid].Version.LessOrEqual(v) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	// lo is now the greatest index with tested[lo].Version <= v.
	if tested[lo].Version.Equal(v) {
		return !tested[lo].Success
	}
	hiIdx := lo + 1
	return !tested[lo].Success && !tested[hiIdx].Success
}

// ListAllTagged returns all tagged records in descending
// (major, minor, patch) order, for the index materializer.
func (s *Selector) ListAllTagged(ctx context.Context) ([]*models.ReleaseRecord, error) {
	records, err := s.store.AllTaggedDesc(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all tagged: %w", err)
	}
	return records, nil
}
