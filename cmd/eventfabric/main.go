// Command eventfabric posts a heartbeat event to the scheduler on a cron
// schedule, exercising client/trigger end-to-end.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/schedulerd/schedulerd/client/trigger"
	"github.com/schedulerd/schedulerd/internal/logging"
)

func main() {
	log, err := logging.NewProduction()
	if err != nil {
		panic(err)
	}

	fabric := trigger.New(log)
	if _, err := fabric.Periodic("*/10 * * * * *", func() (string, any) {
		return "heartbeat", nil
	}); err != nil {
		log.Error("failed to schedule heartbeat", "error", err)
		os.Exit(1)
	}
	fabric.Start()
	defer fabric.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
