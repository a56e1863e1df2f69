// Package dispatcher runs the single-threaded consumer that issues the
// outbound HTTP call for each generated invocation.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/schedulerd/schedulerd/internal/events"
	"github.com/schedulerd/schedulerd/internal/function"
	"github.com/schedulerd/schedulerd/internal/logging"
	"github.com/schedulerd/schedulerd/internal/queue"
)

// DefaultTimeout is used when Dispatcher is constructed with a zero
// timeout, matching Config.Dispatch.Timeout's documented default.
const DefaultTimeout = 5 * time.Second

// Dispatcher is the dispatcher loop worker: it owns the dispatch queue's
// consumer side and never retries or feeds failures back into the event
// queue.
type Dispatcher struct {
	dispatch *queue.Queue[function.Invocation]
	client   *http.Client
	log      logging.Logger
	emitter  events.Emitter
}

// New constructs a Dispatcher. A zero timeout uses DefaultTimeout.
func New(dispatch *queue.Queue[function.Invocation], timeout time.Duration, log logging.Logger, emitter events.Emitter) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.New(nil)
	}
	return &Dispatcher{
		dispatch: dispatch,
		client:   &http.Client{Timeout: timeout},
		log:      log.Named("dispatcher"),
		emitter:  emitter,
	}
}

// Run blocks, consuming invocations until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		inv, err := d.dispatch.Get(ctx)
		if err != nil {
			return err
		}
		d.dispatchOne(ctx, inv)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, inv function.Invocation) {
	if inv.Mock {
		d.log.Info("mock invocation discarded", "function", inv.FunctionName, "url", inv.URL)
		return
	}

	req, err := d.buildRequest(ctx, inv)
	if err != nil {
		d.log.Error("failed to build invocation request", "function", inv.FunctionName, "error", err)
		return
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Error("invocation failed", "function", inv.FunctionName, "url", inv.URL, "error", err)
		d.emit(ctx, events.TypeInvocationFailed, map[string]interface{}{
			"function": inv.FunctionName,
			"url":      inv.URL,
			"error":    err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.log.Warn("invocation returned non-success status", "function", inv.FunctionName, "url", inv.URL, "status", resp.StatusCode)
		d.emit(ctx, events.TypeInvocationFailed, map[string]interface{}{
			"function": inv.FunctionName,
			"url":      inv.URL,
			"status":   resp.StatusCode,
		})
		return
	}

	d.log.Info("invocation dispatched", "function", inv.FunctionName, "url", inv.URL, "status", resp.StatusCode)
	d.emit(ctx, events.TypeInvocationSent, map[string]interface{}{
		"function": inv.FunctionName,
		"url":      inv.URL,
		"status":   resp.StatusCode,
	})
}

// buildRequest never sends a body on a GET invocation: a non-empty
// argument map is dropped and a warning is logged, so a function
// misconfigured to expect its arguments on a GET does not fail silently.
// Any other method sends the argument map as a JSON body.
func (d *Dispatcher) buildRequest(ctx context.Context, inv function.Invocation) (*http.Request, error) {
	if inv.Method == http.MethodGet {
		if len(inv.Args) > 0 {
			d.log.Warn("dropping arguments from GET invocation", "function", inv.FunctionName, "url", inv.URL)
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, inv.URL, nil)
	}

	body, err := json.Marshal(inv.Args)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: marshal args: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, inv.Method, inv.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (d *Dispatcher) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if d.emitter == nil {
		return
	}
	if err := d.emitter.Emit(ctx, eventType, data); err != nil {
		d.log.Warn("event emission failed", "type", eventType, "error", err)
	}
}
