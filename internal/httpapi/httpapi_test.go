package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulerd/schedulerd/internal/event"
	"github.com/schedulerd/schedulerd/internal/logging"
	"github.com/schedulerd/schedulerd/internal/queue"
	"github.com/schedulerd/schedulerd/internal/registry"
)

func newTestAPI(t *testing.T) (*API, *queue.Queue[event.Event], *registry.Registry) {
	t.Helper()
	reg, err := registry.New(filepath.Join(t.TempDir(), "scheduler.gob"), logging.New(nil))
	require.NoError(t, err)
	evQ := queue.New[event.Event](8)
	return New(evQ, reg, logging.New(nil)), evQ, reg
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPostEventEnqueuesAndReturns200(t *testing.T) {
	api, evQ, _ := newTestAPI(t)
	router := api.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/event", EventRequest{Name: "A", Data: "payload"})
	assert.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	evt, err := evQ.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", evt.Name)
	assert.Equal(t, "payload", evt.Data)
}

func TestPostEventMissingNameIsBadRequest(t *testing.T) {
	api, _, _ := newTestAPI(t)
	rec := doJSON(t, api.Router(), http.MethodPost, "/api/event", EventRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostFunctionRegistersAndStatusReflectsIt(t *testing.T) {
	api, _, _ := newTestAPI(t)
	router := api.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/function", FunctionRequest{
		Name: "fn-a", Subs: []string{"A", "B"}, URL: "http://example.com/fn-a", Method: "POST",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []StatusEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "fn-a", entries[0].Name)
	assert.Equal(t, []string{"A", "B"}, entries[0].Subs)
}

func TestGetStatusRowsUseLowercaseJSONKeys(t *testing.T) {
	api, _, reg := newTestAPI(t)
	router := api.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/function", FunctionRequest{
		Name: "fn-a", Subs: []string{"A", "B"}, URL: "http://example.com/fn-a", Method: "POST",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	reg.Lock()
	reg.Functions()[0].Offer(event.New("A", nil))
	reg.Unlock()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw, 1)

	var rows []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw[0]["events"], &rows))
	require.Len(t, rows, 1)
	_, hasReady := rows[0]["ready"]
	_, hasWaiting := rows[0]["waiting"]
	assert.True(t, hasReady, "row JSON should use lowercase \"ready\" key")
	assert.True(t, hasWaiting, "row JSON should use lowercase \"waiting\" key")
	_, hasCapReady := rows[0]["Ready"]
	assert.False(t, hasCapReady, "row JSON should not use the Go field name \"Ready\"")
}

func TestDeleteFunctionIsIdempotent(t *testing.T) {
	api, _, _ := newTestAPI(t)
	router := api.Router()

	rec := doJSON(t, router, http.MethodDelete, "/api/function", DeleteFunctionRequest{Name: "nonexistent"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetHealthzReportsOK(t *testing.T) {
	api, _, _ := newTestAPI(t)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
