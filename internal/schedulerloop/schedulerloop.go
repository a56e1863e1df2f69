// Package schedulerloop runs the single-threaded consumer that matches
// incoming events against the registry and generates invocations.
package schedulerloop

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/schedulerd/schedulerd/internal/event"
	"github.com/schedulerd/schedulerd/internal/events"
	"github.com/schedulerd/schedulerd/internal/function"
	"github.com/schedulerd/schedulerd/internal/logging"
	"github.com/schedulerd/schedulerd/internal/queue"
	"github.com/schedulerd/schedulerd/internal/registry"
)

// Loop is the Scheduler Loop worker: it owns the Event Queue consumer side
// and the Dispatch Queue producer side.
type Loop struct {
	events   *queue.Queue[event.Event]
	dispatch *queue.Queue[function.Invocation]
	registry *registry.Registry
	log      logging.Logger
	emitter  events.Emitter
	loc      *time.Location
}

// New constructs a Loop. loc is the timezone used for LastInvoke
// timestamps; a nil loc defaults to time.Local.
func New(events_ *queue.Queue[event.Event], dispatch *queue.Queue[function.Invocation], reg *registry.Registry, log logging.Logger, emitter events.Emitter, loc *time.Location) *Loop {
	if log == nil {
		log = logging.New(nil)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Loop{events: events_, dispatch: dispatch, registry: reg, log: log.Named("schedulerloop"), emitter: emitter, loc: loc}
}

// Run blocks, consuming events until ctx is done. A per-function panic or
// error during matching is caught and logged (a panic with its stack
// trace), and never aborts the pass: one misbehaving function must not stop every other
// function in the registry from matching the same event.
func (l *Loop) Run(ctx context.Context) error {
	for {
		evt, err := l.events.Get(ctx)
		if err != nil {
			return err
		}
		l.handleEvent(ctx, evt)
	}
}

func (l *Loop) handleEvent(ctx context.Context, evt event.Event) {
	l.registry.Lock()
	defer l.registry.Unlock()

	for _, fn := range l.registry.Functions() {
		l.offerSafely(ctx, fn, evt)
	}
}

// offerSafely matches evt against a single function, isolating any panic
// the function's matching logic raises from the rest of the pass.
func (l *Loop) offerSafely(ctx context.Context, fn *function.Function, evt event.Event) {
	defer func() {
		if r := recover(); r != nil {
			name := "<nil>"
			if fn != nil {
				name = fn.Name
			}
			l.log.Error("panic while matching event", "function", name, "event", evt.Name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			l.emit(ctx, events.TypeFunctionMatchError, map[string]interface{}{
				"function": name,
				"event":    evt.Name,
				"error":    fmt.Sprint(r),
			})
		}
	}()

	if !fn.Offer(evt) {
		return
	}

	inv, err := fn.Invoke(l.loc)
	if err != nil {
		l.log.Error("invoke failed after complete row", "function", fn.Name, "error", err)
		return
	}

	if err := l.registry.Checkpoint(); err != nil {
		l.log.Error("checkpoint after invocation generation failed", "function", fn.Name, "error", err)
	}

	if err := l.dispatch.Put(ctx, inv); err != nil {
		l.log.Warn("dispatch queue put canceled", "function", fn.Name, "error", err)
		return
	}

	l.emit(ctx, events.TypeFunctionInvoked, map[string]interface{}{
		"function": fn.Name,
		"url":      inv.URL,
	})
}

func (l *Loop) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if l.emitter == nil {
		return
	}
	if err := l.emitter.Emit(ctx, eventType, data); err != nil {
		l.log.Warn("event emission failed", "type", eventType, "error", err)
	}
}
