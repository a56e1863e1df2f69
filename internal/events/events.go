// Package events carries the observational CloudEvents envelope emitted
// alongside scheduler and dispatcher activity. These events are
// best-effort and never feed back into the event queue.
package events

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/schedulerd/schedulerd/internal/logging"
)

// Event type constants, in reverse-domain-notation CloudEvents style.
const (
	TypeFunctionRegistered = "com.schedulerd.function.registered"
	TypeFunctionDeleted    = "com.schedulerd.function.deleted"
	TypeFunctionInvoked    = "com.schedulerd.function.invoked"
	TypeFunctionMatchError = "com.schedulerd.function.match_error"
	TypeInvocationSent     = "com.schedulerd.invocation.succeeded"
	TypeInvocationFailed   = "com.schedulerd.invocation.failed"
)

const source = "schedulerd"

// Emitter publishes CloudEvents describing scheduler/dispatcher activity.
// Implementations must not block the caller for long or propagate
// delivery failures as event queue errors.
type Emitter interface {
	Emit(ctx context.Context, eventType string, data map[string]interface{}) error
}

// LogEmitter logs every CloudEvent at debug level instead of delivering it
// anywhere. It is the default Emitter, since this build ships without a
// telemetry backend to deliver the observational stream to, but the
// envelope itself is still constructed and well-formed.
type LogEmitter struct {
	log logging.Logger
}

// NewLogEmitter returns an Emitter that logs every event it constructs.
func NewLogEmitter(log logging.Logger) *LogEmitter {
	if log == nil {
		log = logging.New(nil)
	}
	return &LogEmitter{log: log.Named("events")}
}

// Emit builds a cloudevents.Event from eventType and data and logs it.
func (e *LogEmitter) Emit(ctx context.Context, eventType string, data map[string]interface{}) error {
	ev := cloudevents.NewEvent()
	ev.SetType(eventType)
	ev.SetSource(source)
	ev.SetTime(time.Now())
	ev.SetID(uuid.New().String())

	if err := ev.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return fmt.Errorf("events: set data: %w", err)
	}

	e.log.Debug("event emitted", "type", ev.Type(), "id", ev.ID())
	return nil
}
