// Command schedulerd runs the event-conjunction scheduler: the HTTP
// surface, the Scheduler Loop, and the Dispatcher Loop, wired together.
// On SIGINT/SIGTERM the shared context is cancelled, which stops both
// loops at once, and the HTTP server is then shut down with a bounded
// timeout. Events and invocations still queued at that point are not
// drained.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schedulerd/schedulerd/internal/config"
	"github.com/schedulerd/schedulerd/internal/dispatcher"
	"github.com/schedulerd/schedulerd/internal/event"
	"github.com/schedulerd/schedulerd/internal/events"
	"github.com/schedulerd/schedulerd/internal/function"
	"github.com/schedulerd/schedulerd/internal/httpapi"
	"github.com/schedulerd/schedulerd/internal/logging"
	"github.com/schedulerd/schedulerd/internal/queue"
	"github.com/schedulerd/schedulerd/internal/registry"
	"github.com/schedulerd/schedulerd/internal/schedulerloop"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	log, err := logging.NewProduction()
	if err != nil {
		return fmt.Errorf("schedulerd: build logger: %w", err)
	}

	yamlPath := os.Getenv("SCHEDULERD_CONFIG")
	if yamlPath == "" {
		yamlPath = "config.yaml"
	}
	cfg, err := config.Load(yamlPath)
	if err != nil {
		return fmt.Errorf("schedulerd: load config: %w", err)
	}

	reg, err := registry.New(cfg.CheckpointPath(), log)
	if err != nil {
		return fmt.Errorf("schedulerd: restore registry: %w", err)
	}

	eventQ := queue.New[event.Event](cfg.Queue.EventQueueSize)
	dispatchQ := queue.New[function.Invocation](cfg.Queue.DispatchQueueSize)
	emitter := events.NewLogEmitter(log)

	loop := schedulerloop.New(eventQ, dispatchQ, reg, log, emitter, time.Local)
	disp := dispatcher.New(dispatchQ, cfg.Dispatch.Timeout, log, emitter)
	api := httpapi.New(eventQ, reg, log)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: api.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 3)
	go func() {
		log.Info("starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("scheduler loop: %w", err)
		}
	}()
	go func() {
		if err := disp.Run(ctx); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("dispatcher loop: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("worker failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}

	log.Info("schedulerd stopped")
	return nil
}
