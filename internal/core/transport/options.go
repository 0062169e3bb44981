package transport

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/melih/dokken/internal/core/domain"
)

// Config carries the merged transport configuration.
type Config struct {
	DockerHost   string        // Runtime endpoint used unless the instance state names one.
	ImagePrefix  string        // Optional repository prefix of work images.
	ReadTimeout  time.Duration // Passed through to the runtime client.
	WriteTimeout time.Duration // Passed through to the runtime client.

	// KeyDir is where the private key is materialized for uploads.
	// Defaults to $TMPDIR/dokken.
	KeyDir string

	// IgnoreTransferErrors makes Upload log transfer failures instead of
	// returning them.
	IgnoreTransferErrors bool

	// Output receives exec output. Nil logs it.
	Output domain.OutputFunc
}

func (c Config) keyDir() string {
	if c.KeyDir != "" {
		return c.KeyDir
	}
	return filepath.Join(os.TempDir(), "dokken")
}

func (c Config) output(logger *slog.Logger) domain.OutputFunc {
	if c.Output != nil {
		return c.Output
	}
	return func(stream domain.Stream, chunk []byte) {
		logger.Info("exec output",
			"stream", string(stream),
			"output", strings.TrimRight(string(chunk), "\n"),
		)
	}
}

// ResolveOptions derives connection options from configuration and the
// instance state. It has no side effects.
func ResolveOptions(cfg Config, state domain.State) (domain.ConnectionOptions, error) {
	endpoint := cfg.DockerHost
	if state.DockerHost != "" {
		endpoint = state.DockerHost
	}
	if endpoint == "" {
		return domain.ConnectionOptions{}, fmt.Errorf("%w: docker_host is required", domain.ErrConfiguration)
	}
	if state.InstanceName == "" {
		return domain.ConnectionOptions{}, fmt.Errorf("%w: instance_name is required", domain.ErrConfiguration)
	}
	return domain.ConnectionOptions{
		Endpoint:     endpoint,
		InstanceName: state.InstanceName,
		Container:    state.Container,
	}, nil
}
