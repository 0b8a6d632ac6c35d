// Package cqcerrors provides the error taxonomy shared by the lifecycle
// engine, admin endpoint, and installer: a small set of kinds (not types)
// describing how the caller is expected to react.
package cqcerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the response the framework takes to it.
type Kind string

const (
	// KindTransientDependency marks a peer service (name server, security,
	// config repo) that is temporarily unreachable. The owning stage
	// should return Retry.
	KindTransientDependency Kind = "transient_dependency"

	// KindFatalConfig marks a self-inconsistent configuration (missing
	// port, duplicate port, unknown argument). The owning stage should
	// return Failed and the process exits with InitFailed.
	KindFatalConfig Kind = "fatal_config"

	// KindInfrastructureFailure marks an unexpected error that escaped a
	// stage (OS resource exhaustion, unexpected panic). Logged with full
	// context; process exits with FatalError.
	KindInfrastructureFailure Kind = "infrastructure_failure"

	// KindPlanRejection marks an installer dependency or port rule
	// violation. The filesystem is never mutated for a rejected plan.
	KindPlanRejection Kind = "plan_rejection"

	// KindCleanupFault marks an exception that escaped a cleanup action.
	// Logged at status severity; the reverse walk continues regardless.
	KindCleanupFault Kind = "cleanup_fault"
)

// Error is a classified error carrying its Kind and an optional wrapped
// cause, plus free-form detail fields for log correlation.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches a correlation field and returns the same error for
// chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a classified error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error wrapping an existing cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// TransientDependency wraps a peer-unreachable error.
func TransientDependency(dep string, err error) *Error {
	return Wrap(KindTransientDependency, "dependency unreachable", err).WithDetail("dependency", dep)
}

// FatalConfig builds a configuration error for a named field/reason.
func FatalConfig(field, reason string) *Error {
	return New(KindFatalConfig, reason).WithDetail("field", field)
}

// InfrastructureFailure wraps an unexpected escape from a stage.
func InfrastructureFailure(stage string, err error) *Error {
	return Wrap(KindInfrastructureFailure, "unexpected failure", err).WithDetail("stage", stage)
}

// PlanRejection builds an installer plan-validation error naming the rule
// that was violated.
func PlanRejection(rule, reason string) *Error {
	return New(KindPlanRejection, reason).WithDetail("rule", rule)
}

// CleanupFault wraps an error that escaped a cleanup action.
func CleanupFault(stage string, err error) *Error {
	return Wrap(KindCleanupFault, "cleanup action failed", err).WithDetail("stage", stage)
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, returning "" if err is not a *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// ErrEUGetCmdsXlat preserves a diagnostic-string quirk carried over from
// the original implementation's strXlatEUGetCmds call, which appears to
// have been intended as strLoadEUGetCmds. The mismatch is left in place
// per spec.md's open-questions policy: do not silently resolve it.
var ErrEUGetCmdsXlat = errors.New("strXlatEUGetCmds: unresolved translation key (carried verbatim, see SPEC_FULL.md open question 1)")
