// Package config defines schedulerd's typed configuration and loads it
// from a YAML file overlaid with environment variables, in that order,
// so deployment-specific overrides always win over the checked-in file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/golobby/config/v3/pkg/feeder"

	"github.com/schedulerd/schedulerd/feeders"
)

// Config is schedulerd's full runtime configuration.
type Config struct {
	HTTP struct {
		Host string `yaml:"host" env:"SCHEDULERD_HTTP_HOST"`
		Port int    `yaml:"port" env:"SCHEDULERD_HTTP_PORT"`
	} `yaml:"http"`
	Queue struct {
		EventQueueSize    int `yaml:"event_queue_size" env:"SCHEDULERD_EVENT_QUEUE_SIZE"`
		DispatchQueueSize int `yaml:"dispatch_queue_size" env:"SCHEDULERD_DISPATCH_QUEUE_SIZE"`
	} `yaml:"queue"`
	Checkpoint struct {
		BasePath string `yaml:"base_path" env:"SCHEDULERD_BASE_PATH"`
		FileName string `yaml:"file_name" env:"SCHEDULERD_CHECKPOINT_FILE"`
	} `yaml:"checkpoint"`
	Dispatch struct {
		Timeout time.Duration `yaml:"timeout" env:"SCHEDULERD_DISPATCH_TIMEOUT"`
	} `yaml:"dispatch"`
	Log struct {
		Level string `yaml:"level" env:"SCHEDULERD_LOG_LEVEL"`
	} `yaml:"log"`
}

// Default returns the configuration applied before any feeder runs.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Host = "0.0.0.0"
	cfg.HTTP.Port = 8080
	cfg.Queue.EventQueueSize = 256
	cfg.Queue.DispatchQueueSize = 256
	cfg.Checkpoint.BasePath = "/data"
	cfg.Checkpoint.FileName = "scheduler.gob"
	cfg.Dispatch.Timeout = 5 * time.Second
	cfg.Log.Level = "info"
	return cfg
}

// CheckpointPath joins the checkpoint base path and file name.
func (c *Config) CheckpointPath() string {
	return c.Checkpoint.BasePath + string(os.PathSeparator) + c.Checkpoint.FileName
}

// Load builds Default(), then overlays yamlPath (if it exists) and then
// the process environment, in that precedence order. A missing yamlPath
// is not an error: the config file itself is optional. The environment
// overlay is read straight from golobby/config's feeder.Env rather than
// through the feeders package, since env var parsing needs no file-path
// plumbing the way the YAML and TOML feeders do.
func Load(yamlPath string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if _, err := os.Stat(yamlPath); err == nil {
			if err := feeders.NewYamlFeeder(yamlPath).Feed(cfg); err != nil {
				return nil, fmt.Errorf("config: yaml feeder: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat yaml file: %w", err)
		}
	}

	if err := (feeder.Env{}).Feed(cfg); err != nil {
		return nil, fmt.Errorf("config: env feeder: %w", err)
	}

	return cfg, nil
}
