package lifecycle

import (
	"context"

	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
)

// cleanup walks the stage cursor backward from the high-water mark to
// Start, running the cleanup dual of every stage that reached Success
// (spec.md §4.1 "Shutdown algorithm", invariant P3). Every cleanup action
// runs under its own exception barrier: a panic or error logs at status
// severity and the walk continues regardless (invariant: cleanup never
// aborts partway).
func (e *Engine) cleanup(ctx context.Context) {
	for s := e.Stage(); ; {
		if e.reached[s] {
			e.runCleanup(ctx, s)
		}
		prev, more := s.Prev()
		if !more {
			break
		}
		s = prev
		e.setStage(s)
	}
}

// runCleanup invokes the cleanup dual for stage s under a recover()
// barrier, converting any panic into a logged CleanupFault rather than
// letting it escape and abort the reverse walk.
func (e *Engine) runCleanup(ctx context.Context, s Stage) {
	defer func() {
		if r := recover(); r != nil {
			e.log().WithField("stage", s.String()).
				Warnf("cleanup panic recovered: %v", cqcerrors.CleanupFault(s.String(), errFmtRecover(r)))
		}
	}()

	switch s {
	case Ready:
		e.log().Info("shutting down")
	case EnableEvents:
		// stop event processing; the framework owns no event transport
		// of its own (Non-goals), so this is a log marker for derived
		// servers that hook into EnableEvents themselves.
	case StartRebinder:
		// bindings/rebinder teardown is owned by the nameservice
		// package, invoked by the derived server's StopWorkers or a
		// dedicated hook; the engine itself has no binder reference.
	case StartWorkers:
		e.hooks.StopWorkers(ctx)
	case RegSrvObjects:
		e.hooks.DeregisterObjects(ctx)
		e.hooks.UnbindObjects(ctx)
	case InitServerTransport:
		// no-op; undone at InitClientTransport cleanup per spec.md.
	case LoadConfig:
		e.hooks.StoreConfig(ctx)
	case InstallLogger:
		// force logger to local fallback mode; this package's logger
		// always writes locally (stdout or a local file), so there is
		// no remote sink to fall back from.
	case InitClientTransport:
		if e.transport.InitClient != nil {
			e.hooks.PostUnbindTerm(ctx)
			e.hooks.PostDeregTerm(ctx)
		}
	case SetSigHandler:
		if e.sig != nil {
			e.sig.remove()
		}
	case CreateEvent:
		if e.term != nil {
			e.term.Destroy()
		}
	}
}
