// Package trigger is a cron-driven event fabric that POSTs {name, data}
// to the scheduler's /api/event route on a schedule.
package trigger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/schedulerd/schedulerd/internal/logging"
)

// EventFabric produces the (name, data) pair for one fired event.
type EventFabric func() (name string, data any)

// eventRequest is the body POSTed to /api/event; kept in sync with
// internal/httpapi.EventRequest's wire shape.
type eventRequest struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// CronFabric wires an EventFabric to a robfig/cron/v3 schedule and posts
// its result to the scheduler. cronSpec fields run seconds-first (6
// fields) rather than the usual 5, so fabrics can fire on sub-minute
// intervals.
type CronFabric struct {
	cron          *cron.Cron
	schedulerAddr string
	debug         bool
	client        *http.Client
	log           logging.Logger
}

// New constructs a CronFabric. Absent SCH_SERVICE_NAME, it runs in debug
// mode: fired events are logged but never posted, so fabrics can be
// developed and exercised without a running scheduler to talk to.
func New(log logging.Logger) *CronFabric {
	if log == nil {
		log = logging.New(nil)
	}
	addr := os.Getenv("SCH_SERVICE_NAME")
	debug := addr == ""
	if addr != "" && !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	if debug {
		log.Info("no SCH_SERVICE_NAME set, running event fabric in debug mode")
	} else {
		log.Info("relying on the scheduler", "address", addr)
	}

	return &CronFabric{
		cron:          cron.New(cron.WithSeconds()),
		schedulerAddr: addr,
		debug:         debug,
		client:        &http.Client{Timeout: 5 * time.Second},
		log:           log.Named("trigger"),
	}
}

// Start begins running scheduled fabrics.
func (c *CronFabric) Start() { c.cron.Start() }

// Stop halts the cron scheduler, waiting for running jobs to finish.
func (c *CronFabric) Stop() { <-c.cron.Stop().Done() }

// Periodic fires fabric on every match of cronSpec until Stop is called.
func (c *CronFabric) Periodic(cronSpec string, fabric EventFabric) (cron.EntryID, error) {
	id, err := c.cron.AddFunc(cronSpec, func() { c.fire(fabric) })
	if err != nil {
		return 0, fmt.Errorf("trigger: add periodic job: %w", err)
	}
	return id, nil
}

// OneShot fires fabric once, at the next match of cronSpec, then removes
// its own entry.
func (c *CronFabric) OneShot(cronSpec string, fabric EventFabric) (cron.EntryID, error) {
	var id cron.EntryID
	var err error
	id, err = c.cron.AddFunc(cronSpec, func() {
		c.fire(fabric)
		c.cron.Remove(id)
	})
	if err != nil {
		return 0, fmt.Errorf("trigger: add one-shot job: %w", err)
	}
	return id, nil
}

func (c *CronFabric) fire(fabric EventFabric) {
	name, data := fabric()
	if c.debug {
		c.log.Info("faux call to scheduler has happened", "event", name)
		return
	}

	body, err := json.Marshal(eventRequest{Name: name, Data: data})
	if err != nil {
		c.log.Error("failed to marshal event request", "event", name, "error", err)
		return
	}

	url := c.schedulerAddr + "/api/event"
	resp, err := c.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		c.log.Error("failure during request", "event", name, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.log.Error("failure to send event request to the scheduler", "event", name, "status", resp.StatusCode)
	}
}
