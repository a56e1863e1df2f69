// Package httpapi exposes the HTTP surface: event ingress, function
// registration, and status/health reads, served over a go-chi/chi
// router.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/schedulerd/schedulerd/internal/event"
	"github.com/schedulerd/schedulerd/internal/function"
	"github.com/schedulerd/schedulerd/internal/logging"
	"github.com/schedulerd/schedulerd/internal/queue"
	"github.com/schedulerd/schedulerd/internal/registry"
)

// healthzLockTimeout bounds how long GET /healthz waits to confirm the
// registry lock is obtainable before reporting unhealthy.
const healthzLockTimeout = 500 * time.Millisecond

// EventRequest is the inbound POST /api/event body.
type EventRequest struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// FunctionRequest is the inbound POST /api/function body.
type FunctionRequest struct {
	Name   string   `json:"name"`
	Subs   []string `json:"subs"`
	URL    string   `json:"url"`
	Method string   `json:"method,omitempty"`
	Mock   bool     `json:"mock,omitempty"`
}

// DeleteFunctionRequest is the inbound DELETE /api/function body.
type DeleteFunctionRequest struct {
	Name string `json:"name"`
}

// StatusEntry is one element of the GET /api/status response.
type StatusEntry struct {
	Name       string              `json:"name"`
	Subs       []string            `json:"subs"`
	LastInvoke *int64              `json:"last_invoke"`
	Events     []function.RowStatus `json:"events"`
}

// API wires the Event Queue, Registry, and a Logger into chi handlers.
type API struct {
	events   *queue.Queue[event.Event]
	registry *registry.Registry
	log      logging.Logger
}

// New constructs an API.
func New(events *queue.Queue[event.Event], reg *registry.Registry, log logging.Logger) *API {
	if log == nil {
		log = logging.New(nil)
	}
	return &API{events: events, registry: reg, log: log.Named("httpapi")}
}

// Router builds the chi.Router exposing this API's routes, with standard
// request-logging and panic-recovery middleware.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/api/event", a.postEvent)
	r.Post("/api/function", a.postFunction)
	r.Delete("/api/function", a.deleteFunction)
	r.Get("/api/status", a.getStatus)
	r.Get("/healthz", a.getHealthz)
	return r
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (a *API) postEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	evt := event.New(req.Name, req.Data)
	if err := a.events.Put(r.Context(), evt); err != nil {
		a.log.Error("failed to enqueue event", "name", req.Name, "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "event queue unavailable")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) postFunction(w http.ResponseWriter, r *http.Request) {
	var req FunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" || req.URL == "" {
		writeJSONError(w, http.StatusBadRequest, "name and url are required")
		return
	}

	fn, err := function.New(req.Name, req.Subs, req.URL, req.Method, req.Mock)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.registry.Register(fn); err != nil {
		a.log.Error("failed to register function", "name", req.Name, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to persist function")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) deleteFunction(w http.ResponseWriter, r *http.Request) {
	var req DeleteFunctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := a.registry.Delete(req.Name); err != nil {
		a.log.Error("failed to delete function", "name", req.Name, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to persist deletion")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (a *API) getStatus(w http.ResponseWriter, r *http.Request) {
	snap := a.registry.Snapshot()
	entries := make([]StatusEntry, 0, len(snap))
	for _, s := range snap {
		entries = append(entries, StatusEntry{
			Name:       s.Name,
			Subs:       s.Subs,
			LastInvoke: s.LastInvoke,
			Events:     s.Rows,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

// getHealthz is a liveness/readiness probe: obtaining the registry lock
// briefly confirms the scheduler loop isn't deadlocked.
func (a *API) getHealthz(w http.ResponseWriter, r *http.Request) {
	done := make(chan struct{})
	go func() {
		a.registry.Lock()
		a.registry.Unlock()
		close(done)
	}()

	ctx, cancel := context.WithTimeout(r.Context(), healthzLockTimeout)
	defer cancel()

	select {
	case <-done:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	case <-ctx.Done():
		writeJSONError(w, http.StatusServiceUnavailable, "registry lock unavailable")
	}
}
