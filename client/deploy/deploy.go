// Package deploy lets user code register an HTTP handler on a local mux
// and announce it to the scheduler with POST /api/function.
package deploy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/schedulerd/schedulerd/internal/logging"
)

// defaultSchedulerAddr mirrors LocalGateway's os.environ.get("SCH_SERVICE_NAME", "localhost:8080").
const defaultSchedulerAddr = "localhost:8080"

// FunctionRequest is the body POSTed to the scheduler's /api/function
// route; kept in sync with internal/httpapi.FunctionRequest's wire shape.
type FunctionRequest struct {
	Name   string   `json:"name"`
	Subs   []string `json:"subs"`
	URL    string   `json:"url"`
	Method string   `json:"method,omitempty"`
}

// Deployer registers local handlers on a mux and announces them to the
// scheduler at SCH_SERVICE_NAME.
type Deployer struct {
	mux           chi.Router
	schedulerAddr string
	host          string
	port          string
	mock          bool
	client        *http.Client
	log           logging.Logger
}

// New constructs a Deployer, discovering this process's externally
// reachable address the way LocalGateway.__get_hostname does: from
// KUBERNETES_SERVICE_PORT plus <HOSTNAME>_SERVICE_HOST/_SERVICE_PORT in a
// k8s deployment, or from net.InterfaceAddrs plus port otherwise.
func New(mux chi.Router, port string, mock bool, log logging.Logger) (*Deployer, error) {
	if log == nil {
		log = logging.New(nil)
	}
	schedulerAddr := os.Getenv("SCH_SERVICE_NAME")
	if schedulerAddr == "" {
		schedulerAddr = defaultSchedulerAddr
	}

	host, resolvedPort, err := discoverAddress(port)
	if err != nil {
		return nil, fmt.Errorf("deploy: discover address: %w", err)
	}

	return &Deployer{
		mux:           mux,
		schedulerAddr: schedulerAddr,
		host:          host,
		port:          resolvedPort,
		mock:          mock,
		client:        &http.Client{Timeout: 5 * time.Second},
		log:           log.Named("deploy"),
	}, nil
}

// discoverAddress implements __get_hostname: in Kubernetes, the service
// host/port env vars named after this pod's service; otherwise the first
// non-loopback interface address plus the caller-supplied port.
func discoverAddress(port string) (host, resolvedPort string, err error) {
	if os.Getenv("KUBERNETES_SERVICE_PORT") != "" {
		hostname := os.Getenv("HOSTNAME")
		parts := strings.Split(hostname, "-")
		if len(parts) > 2 {
			parts = parts[:len(parts)-2]
		}
		service := strings.ToUpper(strings.Join(parts, "_"))

		host = os.Getenv(service + "_SERVICE_HOST")
		resolvedPort = os.Getenv(service + "_SERVICE_PORT")
		if host == "" || resolvedPort == "" {
			return "", "", fmt.Errorf("deploy: missing %s_SERVICE_HOST/_SERVICE_PORT in kubernetes environment", service)
		}
		return host, resolvedPort, nil
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", "", fmt.Errorf("list interface addresses: %w", err)
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), port, nil
		}
	}
	return "", "", fmt.Errorf("deploy: no non-loopback IPv4 address found")
}

// Deploy registers handler on path (or "/api/"+name by default) under the
// local mux using method, then announces it to the scheduler unless the
// Deployer is in mock mode.
func (d *Deployer) Deploy(name string, subs []string, method, path string, handler http.HandlerFunc) error {
	if method == "" {
		method = "GET"
	}
	method = strings.ToUpper(method)

	endpoint := path
	if endpoint == "" {
		endpoint = "/api/" + name
	}
	if !strings.HasPrefix(endpoint, "/api") {
		endpoint = "/api/" + strings.TrimPrefix(endpoint, "/")
	}

	d.mux.Method(method, endpoint, handler)

	externalURL := fmt.Sprintf("http://%s:%s%s", d.host, d.port, endpoint)
	d.log.Info("registering endpoint with scheduler", "endpoint", externalURL, "scheduler", d.schedulerAddr)

	if d.mock {
		return nil
	}

	body, err := json.Marshal(FunctionRequest{Name: name, Subs: subs, URL: externalURL, Method: method})
	if err != nil {
		return fmt.Errorf("deploy: marshal registration body: %w", err)
	}

	url := fmt.Sprintf("http://%s/api/function", d.schedulerAddr)
	resp, err := d.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		d.log.Error("failure registering function with the scheduler", "error", err)
		return fmt.Errorf("deploy: register function: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.log.Error("failure registering function with the scheduler", "status", resp.StatusCode)
		return fmt.Errorf("deploy: scheduler returned status %d", resp.StatusCode)
	}

	d.log.Info("registered endpoint", "name", name, "endpoint", externalURL)
	return nil
}
