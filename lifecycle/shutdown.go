package lifecycle

import "sync/atomic"

// ExitCode is the small sum type set exactly once (last-writer-wins) per
// process, per spec.md §3.6.
type ExitCode int32

const (
	Normal ExitCode = iota
	AdminStop
	InitFailed
	FatalError
)

func (e ExitCode) String() string {
	switch e {
	case Normal:
		return "Normal"
	case AdminStop:
		return "AdminStop"
	case InitFailed:
		return "InitFailed"
	case FatalError:
		return "FatalError"
	default:
		return "Unknown"
	}
}

// Shutdown is the single reentrant-safe primitive every termination path —
// signal handler, remote AdminStop, stage-failure recovery, derived-class
// code — uses to end the process. Per spec.md's design notes, the exit
// code cell and cancellation flag are logically monotone, so atomics
// suffice; no mutex is required.
//
// Call sequence (spec.md §4.1 "Shutdown primitive"):
//  1. store exitCode in the exit-code cell (last-writer-wins)
//  2. if startup has not yet reached Ready, request cooperative
//     cancellation so a sleeping stage retry wakes and exits
//  3. if the termination event exists, signal it
func (e *Engine) Shutdown(code ExitCode) {
	atomic.StoreInt32(&e.exitCode, int32(code))
	if e.Stage() < Ready {
		atomic.StoreInt32(&e.cancelRequested, 1)
	}
	if e.term != nil {
		e.term.Signal()
	}
}

// ExitCode returns the exit code currently stored in the cell.
func (e *Engine) ExitCode() ExitCode {
	return ExitCode(atomic.LoadInt32(&e.exitCode))
}

// cancellationRequested reports whether Shutdown has been called before
// the engine reached Ready, for the cooperative cancellation checks the
// startup loop makes after Success and during a Retry sleep.
func (e *Engine) cancellationRequested() bool {
	return atomic.LoadInt32(&e.cancelRequested) != 0
}
