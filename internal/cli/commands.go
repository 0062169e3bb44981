package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/melih/dokken/internal"
	"github.com/melih/dokken/internal/adapters/docker"
	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/helpers"
	"github.com/melih/dokken/internal/core/ports"
	"github.com/melih/dokken/internal/core/transport"
)

// Represents the 'dokken exec' command.
type ExecCmd struct {
	Instance string `arg:"" help:"Instance name."`
	Command  string `arg:"" help:"Command to run, split with shell quoting rules."`
}

// Executes the command and commits the instance's work image.
func (c *ExecCmd) Run(ctx context.Context) error {
	env, err := newEnvironment(ctx, true)
	if err != nil {
		return err
	}
	defer env.close()

	return env.withConnection(c.Instance, func(conn *transport.Connection) error {
		return conn.Execute(ctx, c.Command)
	})
}

// Represents the 'dokken upload' command.
type UploadCmd struct {
	Instance string   `arg:"" help:"Instance name."`
	Remote   string   `arg:"" help:"Destination directory inside the container."`
	Locals   []string `arg:"" help:"Local files or directories to copy."`
}

// Executes the upload command.
func (c *UploadCmd) Run(ctx context.Context) error {
	env, err := newEnvironment(ctx, true)
	if err != nil {
		return err
	}
	defer env.close()

	return env.withConnection(c.Instance, func(conn *transport.Connection) error {
		return conn.Upload(ctx, c.Locals, c.Remote)
	})
}

// Represents the 'dokken login' command.
type LoginCmd struct {
	Instance string `arg:"" help:"Instance name."`
}

// Executes the login command, attaching the terminal to the shell.
func (c *LoginCmd) Run(ctx context.Context) error {
	env, err := newEnvironment(ctx, true)
	if err != nil {
		return err
	}
	defer env.close()

	var login domain.LoginCommand
	var endpoint string
	err = env.withConnection(c.Instance, func(conn *transport.Connection) error {
		login = conn.LoginCommand()
		endpoint = conn.Options().Endpoint
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("starting login shell", "command", login.Command, "args", login.Arguments)

	cmd := exec.CommandContext(ctx, login.Command, login.Arguments...)
	cmd.Env = append(os.Environ(), "DOCKER_HOST="+endpoint)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Represents the 'dokken register' command. The container must be named
// after the instance; connections address it by that name.
type RegisterCmd struct {
	Instance string `arg:"" help:"Instance name, which is also the container name."`
}

// Inspects the container and stores its metadata as instance state.
func (c *RegisterCmd) Run(ctx context.Context) error {
	env, err := newEnvironment(ctx, false)
	if err != nil {
		return err
	}
	defer env.close()

	client, err := docker.NewAdapter(domain.ClientConfig{Endpoint: env.cfg.DockerHost})
	if err != nil {
		return err
	}
	defer client.Close()

	st, err := register(ctx, client, env.states, c.Instance)
	if err != nil {
		return err
	}

	slog.Info("registered instance", "instance", st.InstanceName, "container", strings.TrimPrefix(st.Container.Name, "/"))
	return nil
}

// Looks up container metadata by name.
type describer interface {
	Describe(ctx context.Context, name string) (*domain.ContainerMetadata, error)
}

// Describes the instance's container and saves the result as its state.
func register(ctx context.Context, d describer, states ports.StateStore, instance string) (domain.State, error) {
	meta, err := d.Describe(ctx, instance)
	if err != nil {
		return domain.State{}, err
	}

	st := domain.State{InstanceName: instance, Container: meta}
	if err := states.Save(st); err != nil {
		return domain.State{}, err
	}
	return st, nil
}

// Represents the 'dokken pubkey' command.
type PubkeyCmd struct{}

// Prints the authorized_keys line of the embedded key.
func (c *PubkeyCmd) Run(ctx context.Context) error {
	fmt.Println(helpers.Default().AuthorizedKey())
	return nil
}

// Represents the 'dokken version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}
