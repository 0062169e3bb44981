// Package config loads dokken settings from an optional YAML file and the
// environment. File values win over environment variables, which win over
// defaults.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/melih/dokken/internal/core/transport"
)

// DefaultFile is read when it exists and no other file was named.
const DefaultFile = ".dokken.yml"

// Config holds every dokken setting.
type Config struct {
	DockerHost           string `yaml:"docker_host" env:"DOCKER_HOST, default=unix:///var/run/docker.sock"`
	ReadTimeout          int    `yaml:"read_timeout" env:"DOKKEN_READ_TIMEOUT, default=3600"`
	WriteTimeout         int    `yaml:"write_timeout" env:"DOKKEN_WRITE_TIMEOUT, default=3600"`
	ImagePrefix          string `yaml:"image_prefix" env:"DOKKEN_IMAGE_PREFIX"`
	RsyncPath            string `yaml:"rsync_path" env:"DOKKEN_RSYNC_PATH, default=rsync"`
	StateDir             string `yaml:"state_dir" env:"DOKKEN_STATE_DIR, default=.kitchen"`
	KeyDir               string `yaml:"key_dir" env:"DOKKEN_KEY_DIR"`
	IgnoreTransferErrors bool   `yaml:"ignore_transfer_errors" env:"DOKKEN_IGNORE_TRANSFER_ERRORS"`
	Listen               string `yaml:"listen" env:"DOKKEN_LISTEN, default=:3000"`
}

// Load reads path, if set, then fills unset fields from the environment and
// defaults. When path is empty DefaultFile is used if present.
func Load(ctx context.Context, path string) (*Config, error) {
	return load(ctx, path, envconfig.OsLookuper())
}

func load(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := envconfig.ProcessWith(ctx, &cfg, lookuper); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		return nil, fmt.Errorf("timeouts must not be negative")
	}
	return &cfg, nil
}

// Transport returns the settings the transport manager needs.
func (c *Config) Transport() transport.Config {
	return transport.Config{
		DockerHost:           c.DockerHost,
		ImagePrefix:          c.ImagePrefix,
		ReadTimeout:          time.Duration(c.ReadTimeout) * time.Second,
		WriteTimeout:         time.Duration(c.WriteTimeout) * time.Second,
		KeyDir:               c.KeyDir,
		IgnoreTransferErrors: c.IgnoreTransferErrors,
	}
}
