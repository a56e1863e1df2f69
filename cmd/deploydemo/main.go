// Command deploydemo deploys a demo HTTP handler subscribed to the
// heartbeat event eventfabric produces, exercising client/deploy
// end-to-end.
package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schedulerd/schedulerd/client/deploy"
	"github.com/schedulerd/schedulerd/internal/logging"
)

func main() {
	logger, err := logging.NewProduction()
	if err != nil {
		log.Fatal(err)
	}

	mux := chi.NewRouter()
	d, err := deploy.New(mux, "9100", false, logger)
	if err != nil {
		log.Fatal(err)
	}

	onHeartbeat := func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		_ = json.NewDecoder(r.Body).Decode(&args)
		logger.Info("heartbeat invocation received", "args", args)
		w.WriteHeader(http.StatusOK)
	}

	if err := d.Deploy("heartbeat-demo", []string{"heartbeat"}, "POST", "", onHeartbeat); err != nil {
		log.Fatal(err)
	}

	logger.Info("starting demo handler", "address", ":9100")
	if err := http.ListenAndServe(":9100", mux); err != nil {
		log.Fatal(err)
	}
}
