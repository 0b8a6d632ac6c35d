package lifecycle

import (
	"context"
)

// StageAction is the signature of a startup extension point. attempt is 0
// on the first invocation of a stage and increments on every Retry.
type StageAction func(ctx context.Context, attempt int) StageResult

// CleanupAction is the signature of a shutdown extension point. Per
// spec.md §4.1, cleanup never propagates an error forward — the engine
// runs each stage's cleanup inside an exception barrier (cleanup.go's
// runCleanup), so a CleanupAction that panics is recovered and logged
// rather than aborting the reverse walk. RegSrvObjects cleanup calls
// DeregisterObjects then UnbindObjects under one barrier, so a panic in
// the first skips the second.
type CleanupAction func(ctx context.Context)

// AdminInfo is returned by the required QueryAdminInfo hook: the ACE
// binding path (possibly containing a %(h) hostname token), a
// description, and up to four opaque extras (spec.md §3.5).
type AdminInfo struct {
	BindingPath string
	Description string
	Extras      [4]string
}

// QueryAdminInfoFunc supplies the ACE binding identity; required because
// the SLE cannot register an admin object without it.
type QueryAdminInfoFunc func() AdminInfo

// WaitForTermFunc blocks until termination is requested, optionally doing
// periodic work; it must poll term at intervals <= 250ms (spec.md §5).
// The default implementation (DefaultWaitForTerm) just blocks on term.
type WaitForTermFunc func(ctx context.Context, term *TerminationEvent)

// Hooks is the table of typed extension points a derived server attaches
// to specific stages, following the teacher's composition-over-inheritance
// hook table (system/framework/lifecycle/hooks.go) generalized from
// phase-keyed slices to stage-keyed single functions, since every SLE
// stage has at most one owning extension point rather than an ordered
// chain of independent hooks.
type Hooks struct {
	// Startup hooks, keyed by the stage that invokes them. Nil means the
	// documented default.
	ParseParams  func(ctx context.Context, params []ParamPair, attempt int) StageResult
	MakeDirs     StageAction
	LoadConfig   StageAction
	WaitPrereqs  StageAction
	PreRegInit   StageAction
	RegisterObjects StageAction
	StartWorkers StageAction
	PreBindInit  StageAction

	// QueryAdminInfo is required: the SLE cannot register an ACE object
	// without a binding identity.
	QueryAdminInfo QueryAdminInfoFunc

	// WaitForTerm runs once the engine reaches Ready.
	WaitForTerm WaitForTermFunc

	// Cleanup hooks, dual to the startup hooks above.
	StoreConfig      CleanupAction
	StopWorkers      CleanupAction
	UnbindObjects    CleanupAction
	DeregisterObjects CleanupAction
	PostUnbindTerm   CleanupAction
	PostDeregTerm    CleanupAction
}

// ParamPair is one unrecognized /key[=value] CLI argument forwarded to the
// derived ParseParams hook, per spec.md's parameter-parsing section.
type ParamPair struct {
	Key   string
	Value string
}

func noopStage(ctx context.Context, attempt int) StageResult {
	return ResultSuccess()
}

func noopCleanup(ctx context.Context) {}

// fillDefaults returns a copy of h with every nil hook replaced by its
// documented no-op default, so engine.go never has to nil-check at call
// sites.
func (h Hooks) fillDefaults() Hooks {
	if h.ParseParams == nil {
		h.ParseParams = func(ctx context.Context, params []ParamPair, attempt int) StageResult {
			return ResultSuccess()
		}
	}
	if h.MakeDirs == nil {
		h.MakeDirs = noopStage
	}
	if h.LoadConfig == nil {
		h.LoadConfig = noopStage
	}
	if h.WaitPrereqs == nil {
		h.WaitPrereqs = noopStage
	}
	if h.PreRegInit == nil {
		h.PreRegInit = noopStage
	}
	if h.RegisterObjects == nil {
		h.RegisterObjects = noopStage
	}
	if h.StartWorkers == nil {
		h.StartWorkers = noopStage
	}
	if h.PreBindInit == nil {
		h.PreBindInit = noopStage
	}
	if h.WaitForTerm == nil {
		h.WaitForTerm = DefaultWaitForTerm
	}
	if h.StoreConfig == nil {
		h.StoreConfig = noopCleanup
	}
	if h.StopWorkers == nil {
		h.StopWorkers = noopCleanup
	}
	if h.UnbindObjects == nil {
		h.UnbindObjects = noopCleanup
	}
	if h.DeregisterObjects == nil {
		h.DeregisterObjects = noopCleanup
	}
	if h.PostUnbindTerm == nil {
		h.PostUnbindTerm = noopCleanup
	}
	if h.PostDeregTerm == nil {
		h.PostDeregTerm = noopCleanup
	}
	return h
}

// DefaultWaitForTerm blocks until term is signaled or ctx is canceled.
func DefaultWaitForTerm(ctx context.Context, term *TerminationEvent) {
	select {
	case <-term.Signaled():
	case <-ctx.Done():
	}
}
