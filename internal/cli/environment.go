package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/melih/dokken/internal/adapters/docker"
	"github.com/melih/dokken/internal/adapters/rsync"
	"github.com/melih/dokken/internal/adapters/state"
	"github.com/melih/dokken/internal/config"
	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/transport"
)

// Everything a subcommand needs, built from the loaded config.
type environment struct {
	cfg     *config.Config
	states  *state.FileStore
	manager *transport.Manager
}

// Loads the config and wires the transport. Exec output goes to the
// console unless console is false, in which case it is logged.
func newEnvironment(ctx context.Context, console bool) (*environment, error) {
	cfg, err := config.Load(ctx, RootCmd.Config)
	if err != nil {
		return nil, err
	}

	tcfg := cfg.Transport()
	if console {
		tcfg.Output = consoleOutput
	}

	logger := slog.Default()
	manager := transport.NewManager(tcfg, docker.NewClient, rsync.NewAdapter(cfg.RsyncPath, logger), nil, logger)

	return &environment{
		cfg:     cfg,
		states:  state.NewFileStore(cfg.StateDir),
		manager: manager,
	}, nil
}

// Runs fn on the connection of the named instance.
func (e *environment) withConnection(instance string, fn func(*transport.Connection) error) error {
	st, err := e.states.Load(instance)
	if err != nil {
		return err
	}
	_, err = e.manager.Connection(st, fn)
	return err
}

func (e *environment) close() {
	if err := e.manager.Close(); err != nil {
		slog.Debug("failed to close connection", "error", err)
	}
}

// Writes exec output for a terminal user.
func consoleOutput(stream domain.Stream, chunk []byte) {
	if stream == domain.Stderr {
		os.Stderr.Write(chunk)
		return
	}
	os.Stdout.Write(chunk)
}
