// Package registry owns the live set of registered functions, guards it
// behind a single mutex shared with the scheduler loop, and checkpoints it
// to disk on every mutation.
package registry

import (
	"fmt"
	"sync"

	"github.com/schedulerd/schedulerd/internal/checkpoint"
	"github.com/schedulerd/schedulerd/internal/function"
	"github.com/schedulerd/schedulerd/internal/logging"
)

// Registry holds the function list in registration order. The scheduler
// loop is its sole mutator during a dispatch pass; the status endpoint
// reads it under the same lock for a consistent snapshot.
type Registry struct {
	mu   sync.Mutex
	fns  []*function.Function
	path string
	log  logging.Logger
}

// New loads any existing checkpoint at path and returns a Registry seeded
// with it. A missing checkpoint starts empty; a corrupt one fails startup
// rather than silently discarding state.
func New(path string, log logging.Logger) (*Registry, error) {
	if log == nil {
		log = logging.New(nil)
	}
	fns, err := checkpoint.Load(path)
	if err != nil {
		return nil, fmt.Errorf("registry: load checkpoint: %w", err)
	}
	log.Info("registry restored", "path", path, "functions", len(fns))
	return &Registry{fns: fns, path: path, log: log.Named("registry")}, nil
}

// Lock acquires the registry's mutex for the caller to hold across a full
// event-dispatch pass. Functions and Checkpoint are only safe to call
// under this lock; Register, Delete, and Snapshot take it themselves and
// must not be called while it is held.
func (r *Registry) Lock() { r.mu.Lock() }

// Unlock releases the mutex acquired by Lock.
func (r *Registry) Unlock() { r.mu.Unlock() }

// Functions returns the live function slice in registration order. Callers
// must hold Lock. The slice itself, and each *function.Function it points
// to, are mutated in place by matching — this is intentional, since the
// caller holding the lock is the only mutator.
func (r *Registry) Functions() []*function.Function {
	return r.fns
}

// Checkpoint persists the current function list to disk. Callers must
// hold Lock; the scheduler loop calls this once per successful invocation
// generation. Events that join a row without completing it are not
// written out until the next checkpoint (from an invocation, Register, or
// Delete), so a crash before then loses them.
func (r *Registry) Checkpoint() error {
	if err := checkpoint.Save(r.path, r.fns); err != nil {
		r.log.Error("checkpoint write failed", "path", r.path, "error", err)
		return err
	}
	return nil
}

func (r *Registry) indexOf(name string) int {
	for i, fn := range r.fns {
		if fn.Name == name {
			return i
		}
	}
	return -1
}

// Register appends fn, first deleting any existing function of the same
// name so re-registering always starts from a clean matching matrix, then
// checkpoints. It acquires the lock itself.
func (r *Registry) Register(fn *function.Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx := r.indexOf(fn.Name); idx >= 0 {
		r.log.Warn("function already registered, recreating", "name", fn.Name)
		r.removeAt(idx)
	}
	r.fns = append(r.fns, fn)
	r.log.Info("function registered", "name", fn.Name, "subs", fn.Subs)
	return r.Checkpoint()
}

// Delete removes the named function if present, but checkpoints either
// way: an absent name is a no-op on the function list, not an error, and
// the checkpoint on disk stays in sync regardless. It acquires the lock
// itself.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx := r.indexOf(name); idx >= 0 {
		r.removeAt(idx)
		r.log.Info("function deleted", "name", name)
	}
	return r.Checkpoint()
}

func (r *Registry) removeAt(idx int) {
	r.fns = append(r.fns[:idx], r.fns[idx+1:]...)
}

// FunctionStatus is the value-copy status report for one registered
// function, safe to return after the lock is released.
type FunctionStatus struct {
	Name       string
	Subs       []string
	LastInvoke *int64
	Rows       []function.RowStatus
}

// Snapshot returns a status report for every registered function, in
// registration order. It acquires the lock itself.
func (r *Registry) Snapshot() []FunctionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]FunctionStatus, 0, len(r.fns))
	for _, fn := range r.fns {
		out = append(out, FunctionStatus{
			Name:       fn.Name,
			Subs:       append([]string(nil), fn.Subs...),
			LastInvoke: fn.LastInvoke,
			Rows:       fn.RowStatuses(),
		})
	}
	return out
}
