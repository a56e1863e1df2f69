package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "/data", cfg.Checkpoint.BasePath)
	assert.Equal(t, "scheduler.gob", cfg.Checkpoint.FileName)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.Timeout)
}

func TestLoadMissingYamlFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoadYamlOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: 9090\ncheckpoint:\n  base_path: /var/lib/schedulerd\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "/var/lib/schedulerd", cfg.Checkpoint.BasePath)
}

func TestLoadEnvOverridesYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: 9090\n"), 0o644))

	t.Setenv("SCHEDULERD_HTTP_PORT", "9999")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.HTTP.Port)
}

func TestCheckpointPathJoinsBaseAndFile(t *testing.T) {
	cfg := Default()
	assert.Contains(t, cfg.CheckpointPath(), cfg.Checkpoint.FileName)
}
