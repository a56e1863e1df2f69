package deploy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulerd/schedulerd/internal/logging"
)

func TestDeployRegistersHandlerAndAnnouncesToScheduler(t *testing.T) {
	var gotReq FunctionRequest
	scheduler := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.WriteHeader(http.StatusOK)
	}))
	defer scheduler.Close()

	schedulerURL, err := url.Parse(scheduler.URL)
	require.NoError(t, err)
	t.Setenv("SCH_SERVICE_NAME", schedulerURL.Host)

	mux := chi.NewRouter()
	d, err := New(mux, "9000", false, logging.New(nil))
	require.NoError(t, err)

	called := false
	err = d.Deploy("fn-a", []string{"A"}, "POST", "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fn-a", nil))
	assert.True(t, called)

	assert.Equal(t, "fn-a", gotReq.Name)
	assert.Equal(t, []string{"A"}, gotReq.Subs)
	assert.Equal(t, "POST", gotReq.Method)
}

func TestDeployMockModeSkipsSchedulerCall(t *testing.T) {
	called := false
	scheduler := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer scheduler.Close()

	mux := chi.NewRouter()
	d, err := New(mux, "9000", true, logging.New(nil))
	require.NoError(t, err)

	require.NoError(t, d.Deploy("fn-a", []string{"A"}, "GET", "/api/fn-a", func(w http.ResponseWriter, r *http.Request) {}))
	assert.False(t, called)
}

func TestDiscoverAddressKubernetesEnv(t *testing.T) {
	t.Setenv("KUBERNETES_SERVICE_PORT", "443")
	t.Setenv("HOSTNAME", "my-func-abc123-xyz")
	t.Setenv("MY_FUNC_SERVICE_HOST", "10.0.0.5")
	t.Setenv("MY_FUNC_SERVICE_PORT", "8080")

	host, port, err := discoverAddress("9000")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", host)
	assert.Equal(t, "8080", port)
}

func TestDiscoverAddressNonK8sFallsBackToInterfaceAddrs(t *testing.T) {
	require.NoError(t, os.Unsetenv("KUBERNETES_SERVICE_PORT"))
	host, port, err := discoverAddress("9000")
	require.NoError(t, err)
	assert.NotEmpty(t, host)
	assert.Equal(t, "9000", port)
}
