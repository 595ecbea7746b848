package models

import "fmt"

// FailureCode is the typed, recoverable result of a selectVersion call
// that did not find a usable release.
type FailureCode int

const (
	// FailureUnsupported: the Zig version predates even the oldest known
	// support floor.
	FailureUnsupported FailureCode = 0
	// FailureDevelopmentBuildUnsupported: no ZLS builds exist for this
	// release cycle yet.
	FailureDevelopmentBuildUnsupported FailureCode = 1
	// FailureDevelopmentBuildIncompatible: builds exist but none is
	// compatible with this exact Zig nightly.
	FailureDevelopmentBuildIncompatible FailureCode = 2
	// FailureTaggedReleaseIncompatible: ZLS for this tagged Zig minor has
	// not been released.
	FailureTaggedReleaseIncompatible FailureCode = 3
)

// Message renders the human-readable string the HTTP layer returns
// alongside the numeric code.
func (f FailureCode) Message(zig Version) string {
	switch f {
	case FailureUnsupported:
		return fmt.Sprintf("Zig %s is not supported by ZLS", zig)
	case FailureDevelopmentBuildUnsupported:
		return fmt.Sprintf("No builds for the %d.%d release cycle are currently available", zig.Major, zig.Minor)
	case FailureDevelopmentBuildIncompatible:
		return fmt.Sprintf("Zig %s has no compatible ZLS build (yet)", zig)
	case FailureTaggedReleaseIncompatible:
		return fmt.Sprintf("ZLS %d.%d has not been released yet", zig.Major, zig.Minor)
	default:
		return fmt.Sprintf("Zig %s is not supported by ZLS", zig)
	}
}

// SelectionResult is the tagged-variant result of selectVersion: exactly
// one of Record or Failure is set.
type SelectionResult struct {
	Record  *ReleaseRecord
	Failure *FailureCode
}

func Selected(r *ReleaseRecord) SelectionResult {
	return SelectionResult{Record: r}
}

func Failed(code FailureCode) SelectionResult {
	return SelectionResult{Failure: &code}
}

func (s SelectionResult) IsFailure() bool {
	return s.Failure != nil
}
