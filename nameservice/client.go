// Package nameservice implements the binding store and rebinder the
// GLOSSARY describes: "a background task that periodically re-asserts
// name-service bindings to survive name-service restarts." The framework
// treats the name service itself as an external collaborator (spec.md §1
// Non-goals); this package is one concrete client a derived server can
// start from one of its stage hooks (the entry points in cmd/ use
// PreBindInit; the engine's StartRebinder stage has no hook of its own).
package nameservice

import (
	"context"
	"time"
)

// Binder publishes, removes, and periodically re-asserts a binding →
// address mapping. Bind/Unbind/Rebind all take bounded contexts; callers
// are expected to wrap ctx with their own deadline.
type Binder interface {
	Bind(ctx context.Context, binding, address string, ttl time.Duration) error
	Unbind(ctx context.Context, binding string) error
	Rebind(ctx context.Context, binding, address string, ttl time.Duration) error
}
