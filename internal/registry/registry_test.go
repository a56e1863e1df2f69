package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulerd/schedulerd/internal/event"
	"github.com/schedulerd/schedulerd/internal/function"
	"github.com/schedulerd/schedulerd/internal/logging"
)

func newFn(t *testing.T, name string, subs ...string) *function.Function {
	t.Helper()
	fn, err := function.New(name, subs, "http://example.com/"+name, "POST", false)
	require.NoError(t, err)
	return fn
}

func TestRegisterWritesCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.gob")
	r, err := New(path, logging.New(nil))
	require.NoError(t, err)

	require.NoError(t, r.Register(newFn(t, "fn-a", "eventA")))

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "fn-a", snap[0].Name)
}

func TestRegisterDuplicateNameRecreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.gob")
	r, err := New(path, logging.New(nil))
	require.NoError(t, err)

	fn1 := newFn(t, "fn-a", "A")
	require.NoError(t, r.Register(fn1))

	r.Lock()
	assert.True(t, r.Functions()[0].Offer(event.New("A", nil)))
	r.Unlock()

	fn2 := newFn(t, "fn-a", "A", "B")
	require.NoError(t, r.Register(fn2))

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, []string{"A", "B"}, snap[0].Subs)
	assert.Empty(t, snap[0].Rows, "re-registering must discard the previous function's pending state")
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.gob")
	r, err := New(path, logging.New(nil))
	require.NoError(t, err)

	require.NoError(t, r.Delete("nonexistent"))
	assert.Empty(t, r.Snapshot())
}

func TestNewRestoresFromExistingCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.gob")
	r1, err := New(path, logging.New(nil))
	require.NoError(t, err)
	require.NoError(t, r1.Register(newFn(t, "fn-a", "A")))

	r2, err := New(path, logging.New(nil))
	require.NoError(t, err)
	snap := r2.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "fn-a", snap[0].Name)
}

func TestNewFailsOnCorruptCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.gob")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	_, err := New(path, logging.New(nil))
	assert.Error(t, err)
}
