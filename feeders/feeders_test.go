package feeders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	HTTP struct {
		Host string `yaml:"host" toml:"host" env:"SAMPLE_HTTP_HOST"`
		Port int    `yaml:"port" toml:"port" env:"SAMPLE_HTTP_PORT"`
	} `yaml:"http" toml:"http"`
}

func TestYamlFeeder_Feed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  host: 127.0.0.1\n  port: 9090\n"), 0o644))

	var cfg sampleConfig
	require.NoError(t, NewYamlFeeder(path).Feed(&cfg))
	assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestYamlFeeder_Feed_MissingFile(t *testing.T) {
	var cfg sampleConfig
	err := NewYamlFeeder(filepath.Join(t.TempDir(), "missing.yaml")).Feed(&cfg)
	assert.Error(t, err)
}

func TestTomlFeeder_FeedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[http]\nhost = \"10.0.0.1\"\nport = 8081\n"), 0o644))

	var cfg sampleConfig
	require.NoError(t, NewTomlFeeder(path).FeedKey("http", &cfg.HTTP))
	assert.Equal(t, "10.0.0.1", cfg.HTTP.Host)
	assert.Equal(t, 8081, cfg.HTTP.Port)
}

func TestTomlFeeder_FeedKey_MissingFile(t *testing.T) {
	var cfg sampleConfig
	err := NewTomlFeeder(filepath.Join(t.TempDir(), "missing.toml")).FeedKey("http", &cfg.HTTP)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTomlFeederUnavailable)
}

func TestTomlFeeder_FeedKey_MissingKeyIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[other]\nvalue = 1\n"), 0o644))

	var cfg sampleConfig
	require.NoError(t, NewTomlFeeder(path).FeedKey("http", &cfg.HTTP))
	assert.Equal(t, "", cfg.HTTP.Host)
}
