package lifecycle

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// TerminationEvent is the named, OS-visible, manual-reset synchronization
// object described in spec.md §3.4. In-process waiters block on Signaled();
// the "OS-visible" requirement (design note: "retain the named event
// because external tooling, e.g. a watchdog, may force-signal it") is
// satisfied by a sentinel file under os.TempDir() that a watchdog can
// create to force-release a wedged process, watched with fsnotify rather
// than polled.
type TerminationEvent struct {
	mu       sync.Mutex
	name     string
	sentinel string
	signaled bool
	ch       chan struct{}
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
}

// NewTerminationEvent creates a termination event named
// "<vendor>/<serverName>/<transportSuffix>" per spec.md §6, and arranges
// for the appearance of its on-disk sentinel to force-signal it.
func NewTerminationEvent(vendor, serverName, transportSuffix string) (*TerminationEvent, error) {
	name := vendor + "/" + serverName + "/" + transportSuffix
	sentinel := filepath.Join(os.TempDir(), "cqcsrv-term-"+sanitizeName(name))

	te := &TerminationEvent{
		name:     name,
		sentinel: sentinel,
		ch:       make(chan struct{}),
		stopCh:   make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// A watchdog-visible event is a convenience, not a hard
		// requirement of in-process correctness; fall back to an
		// event with no external force-release path rather than
		// fail CreateEvent outright.
		return te, nil
	}
	dir := filepath.Dir(sentinel)
	if watchErr := watcher.Add(dir); watchErr != nil {
		watcher.Close()
		return te, nil
	}
	te.watcher = watcher

	go te.watchSentinel()

	return te, nil
}

func (te *TerminationEvent) watchSentinel() {
	for {
		select {
		case ev, ok := <-te.watcher.Events:
			if !ok {
				return
			}
			if ev.Name == te.sentinel && (ev.Op&(fsnotify.Create|fsnotify.Write) != 0) {
				te.Signal()
			}
		case <-te.watcher.Errors:
			// Ignore; the sentinel path is best-effort.
		case <-te.stopCh:
			return
		}
	}
}

// Signal sets the event to the signaled state. Manual-reset: once
// signaled it stays signaled until Destroy. Idempotent.
func (te *TerminationEvent) Signal() {
	te.mu.Lock()
	defer te.mu.Unlock()
	if te.signaled {
		return
	}
	te.signaled = true
	close(te.ch)
	// Touch the sentinel so external tooling observing it (rather than
	// driving it) can see the process has begun shutting down.
	_ = os.WriteFile(te.sentinel, []byte{}, 0o644)
}

// Signaled returns a channel that is closed once the event is signaled.
func (te *TerminationEvent) Signaled() <-chan struct{} {
	return te.ch
}

// IsSignaled reports whether the event has been signaled.
func (te *TerminationEvent) IsSignaled() bool {
	te.mu.Lock()
	defer te.mu.Unlock()
	return te.signaled
}

// Destroy tears down the event's watcher and removes the sentinel file,
// matching the CreateEvent/cleanup pairing in spec.md §3.9.
func (te *TerminationEvent) Destroy() {
	te.mu.Lock()
	watcher := te.watcher
	te.watcher = nil
	te.mu.Unlock()

	if watcher != nil {
		close(te.stopCh)
		watcher.Close()
	}
	_ = os.Remove(te.sentinel)
}

func sanitizeName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '/' || c == '\\' || c == ':' {
			out = append(out, '-')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
