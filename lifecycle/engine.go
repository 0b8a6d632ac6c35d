package lifecycle

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cqcsystem/cqcsrv/pkg/cqclog"
	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
	"github.com/cqcsystem/cqcsrv/pkg/cqcmetrics"
)

// TransportHooks are the optional client/server transport init and
// teardown actions. The framework owns no transport of its own
// (spec.md §1 Non-goals); a derived server supplies these to actually
// bring an ORB connection up, or leaves them nil for a no-op transport.
type TransportHooks struct {
	InitClient StageAction
	InitServer StageAction
}

// Engine is the Server Lifecycle Engine: a value-type state machine
// driven by an injected table of hook functions rather than virtual
// overrides on a base class (spec.md design note 1). Collaborators
// (logger, secure store, security client factory, transport hooks) are
// supplied at construction rather than reached via singletons (design
// note 2).
type Engine struct {
	descriptor ServerDescriptor
	hooks      Hooks
	transport  TransportHooks
	logger     *cqclog.Logger
	vendor     string
	runID      string

	store     SecureStore
	newClient SecurityClientFactory

	term *TerminationEvent
	sig  *signalHandler

	cursor          int32 // Stage, atomic
	exitCode        int32 // ExitCode, atomic
	cancelRequested int32 // bool, atomic

	reached []bool // reached[s] is true once stage s returned Success

	login *LoginResult
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the default logger.
func WithLogger(l *cqclog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithVendor sets the vendor prefix used in the termination event name
// (spec.md §6: "<vendor>/<serverName>/<transportSuffix>").
func WithVendor(vendor string) Option {
	return func(e *Engine) { e.vendor = vendor }
}

// WithTransportHooks supplies the client/server transport init actions.
func WithTransportHooks(t TransportHooks) Option {
	return func(e *Engine) { e.transport = t }
}

// WithSecureStore overrides the login stage's secure-storage fallback.
func WithSecureStore(s SecureStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithSecurityClientFactory supplies the login stage's ORB security
// client factory.
func WithSecurityClientFactory(f SecurityClientFactory) Option {
	return func(e *Engine) { e.newClient = f }
}

// NewEngine constructs an Engine for the given descriptor and hook table.
func NewEngine(descriptor ServerDescriptor, hooks Hooks, opts ...Option) *Engine {
	e := &Engine{
		descriptor: descriptor,
		hooks:      hooks.fillDefaults(),
		vendor:     "CQC",
		reached:    make([]bool, Ready+1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = cqclog.NewDefault(descriptor.ServiceName)
	}
	e.runID = cqclog.NewRunID()
	return e
}

// Stage returns the high-water-mark stage the engine has reached.
func (e *Engine) Stage() Stage {
	return Stage(atomic.LoadInt32(&e.cursor))
}

func (e *Engine) setStage(s Stage) {
	atomic.StoreInt32(&e.cursor, int32(s))
}

func (e *Engine) log() *logrus.Entry {
	return e.logger.ForComponent(e.descriptor.ServiceName).WithField("run_id", e.runID)
}

// Run drives the full process lifecycle: parses args, walks the startup
// stages, waits for termination once Ready, then unwinds cleanup in
// reverse. It returns the final ExitCode; callers pass this to os.Exit.
func (e *Engine) Run(ctx context.Context, args []string) ExitCode {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var params ParsedParams

	e.sig = newSignalHandler()

	startupErr := e.startup(runCtx, args, &params)
	if startupErr != nil {
		e.log().WithField("stage", e.Stage().String()).Errorf("startup failed: %v", startupErr)
		if e.ExitCode() == Normal {
			e.Shutdown(InitFailed)
		}
	} else if e.Stage() == Ready && !e.cancellationRequested() {
		e.hooks.WaitForTerm(runCtx, e.term)
	}

	e.cleanup(context.Background())

	if e.ExitCode() == Normal && startupErr == nil {
		// Reached Ready and WaitForTerm returned without an explicit
		// Shutdown call recorded yet (e.g. ctx canceled by caller);
		// treat as AdminStop since that is the only graceful path that
		// does not itself call Shutdown first in degenerate test
		// harnesses.
		e.Shutdown(AdminStop)
	}

	return e.ExitCode()
}

// startup walks the stage cursor forward from Start to Ready, per
// spec.md's "Startup algorithm". Returns a non-nil error only when a
// stage returned Failed; cooperative cancellation (after a Success or
// during a Retry sleep) ends the loop with a nil error.
func (e *Engine) startup(ctx context.Context, args []string, params *ParsedParams) error {
	stage := Start
	attempt := 0

	for {
		result := e.runStage(ctx, stage, args, params, attempt)

		switch result.Outcome {
		case Success:
			cqcmetrics.StageTransitions.WithLabelValues(stage.String(), "success").Inc()
			e.reached[stage] = true
			attempt = 0

			if e.cancellationRequested() {
				return nil
			}
			next, more := stage.Next()
			if !more {
				e.setStage(Ready)
				return nil
			}
			stage = next
			e.setStage(stage)

		case Retry:
			cqcmetrics.StageTransitions.WithLabelValues(stage.String(), "retry").Inc()
			cqcmetrics.StageRetries.WithLabelValues(stage.String()).Inc()
			e.log().WithField("stage", stage.String()).WithField("attempt", attempt).
				Debugf("stage requested retry: %v", result.Err)

			if e.sleepInterruptible(ctx, result.Delay) {
				return nil
			}
			attempt++

		case Failed:
			cqcmetrics.StageTransitions.WithLabelValues(stage.String(), "failed").Inc()
			if cqcerrors.Is(result.Err, cqcerrors.KindInfrastructureFailure) {
				e.Shutdown(FatalError)
			}
			return cqcerrors.Wrap(cqcerrors.KindFatalConfig, "stage failed: "+stage.String(), result.Err)
		}
	}
}

// sleepInterruptible sleeps for delay, checking cancellation every second
// (spec.md §5 "cooperative, cancellable every 1s"). Returns true if
// canceled before the sleep elapsed.
func (e *Engine) sleepInterruptible(ctx context.Context, delay time.Duration) bool {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	remaining := delay
	for remaining > 0 {
		if e.cancellationRequested() {
			return true
		}
		select {
		case <-ctx.Done():
			return true
		case <-ticker.C:
			remaining -= 1 * time.Second
		}
	}
	return e.cancellationRequested()
}

// runStage dispatches to the action for stage, whether a framework-owned
// built-in or a derived hook. Every stage body runs under a recover()
// barrier so an escaping panic becomes a Failed result carrying
// KindInfrastructureFailure, never an uncaught exception (design note 4,
// "Exception-for-retry").
func (e *Engine) runStage(ctx context.Context, stage Stage, args []string, params *ParsedParams, attempt int) (result StageResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ResultFailed(cqcerrors.InfrastructureFailure(stage.String(), errFmtRecover(r)))
		}
	}()

	switch stage {
	case Start:
		return ResultSuccess()
	case LoadEnv:
		return ResultSuccess()
	case CreateEvent:
		return e.doCreateEvent()
	case SetSigHandler:
		e.sig.install(func() { e.Shutdown(AdminStop) })
		return ResultSuccess()
	case InitClientTransport:
		if e.transport.InitClient != nil {
			return e.transport.InitClient(ctx, attempt)
		}
		return ResultSuccess()
	case InstallLogger:
		return ResultSuccess()
	case ParseParams:
		parsed, err := ParseArgs(args)
		if err != nil {
			return ResultFailed(err)
		}
		*params = parsed
		return e.hooks.ParseParams(ctx, parsed.Forwarded, attempt)
	case MakeDirs:
		return e.hooks.MakeDirs(ctx, attempt)
	case LogIn:
		if !e.descriptor.RequiresLogin {
			return ResultSuccess()
		}
		res, login := runLogin(ctx, e.store, e.newClient, attempt)
		if res.Outcome == Success {
			e.login = login
		}
		return res
	case InitServerTransport:
		if e.transport.InitServer != nil {
			return e.transport.InitServer(ctx, attempt)
		}
		return ResultSuccess()
	case LoadConfig:
		return e.hooks.LoadConfig(ctx, attempt)
	case WaitPrereqs:
		return e.hooks.WaitPrereqs(ctx, attempt)
	case PreRegInit:
		return e.hooks.PreRegInit(ctx, attempt)
	case RegSrvObjects:
		if e.hooks.QueryAdminInfo == nil {
			return ResultFailed(cqcerrors.FatalConfig("QueryAdminInfo", "required hook not supplied"))
		}
		return e.hooks.RegisterObjects(ctx, attempt)
	case StartWorkers:
		return e.hooks.StartWorkers(ctx, attempt)
	case PreBindInit:
		return e.hooks.PreBindInit(ctx, attempt)
	case StartRebinder:
		return ResultSuccess()
	case EnableEvents:
		// The original's (eEvents | None) == None check is always true; it
		// is carried over as eventOpts()&0 == 0, which is likewise always
		// true, rather than silently correcting it to eEvents == None
		// (SPEC_FULL.md open question 3).
		if e.descriptor.eventOpts()&0 == 0 {
			return ResultSuccess()
		}
		return ResultSuccess()
	case Ready:
		e.log().Info("ready")
		return ResultSuccess()
	default:
		return ResultFailed(cqcerrors.InfrastructureFailure(stage.String(), errFmt("unknown stage")))
	}
}

func (e *Engine) doCreateEvent() StageResult {
	transportSuffix := "CoreAdmin"
	term, err := NewTerminationEvent(e.vendor, e.descriptor.ServiceName, transportSuffix)
	if err != nil {
		return ResultFailed(cqcerrors.InfrastructureFailure("CreateEvent", err))
	}
	e.term = term
	return ResultSuccess()
}

// AdminInfo returns the registered admin identity, valid only once
// RegSrvObjects has succeeded.
func (e *Engine) AdminInfo() AdminInfo {
	if e.hooks.QueryAdminInfo == nil {
		return AdminInfo{}
	}
	return e.hooks.QueryAdminInfo()
}

// LoginResult returns the stored login result, if the LogIn stage
// succeeded and RequiresLogin was set.
func (e *Engine) LoginResult() *LoginResult {
	return e.login
}

// TerminationEvent exposes the engine's termination event so collaborators
// (e.g. the admin endpoint's AdminStop handler) can hand it to Shutdown's
// callers or inspect its state.
func (e *Engine) TerminationEvent() *TerminationEvent {
	return e.term
}

func errFmtRecover(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errFmt(formatRecovered(r))
}

func formatRecovered(r interface{}) string {
	return "panic: " + toString(r)
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "non-string panic value"
}
