package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/helpers"
	"github.com/melih/dokken/internal/core/ports"
)

const (
	// Tag applied to every work image snapshot.
	workImageTag = "latest"

	// User the file transfer logs in as.
	transferUser = "root"
)

var errConnectionClosed = errors.New("connection is closed")

// Connection is a session bound to one container.
type Connection struct {
	options   domain.ConnectionOptions
	cfg       Config
	newClient ports.ClientFactory
	transfer  ports.FileTransfer
	helpers   *helpers.Helpers
	logger    *slog.Logger

	mu     sync.Mutex
	client ports.ContainerClient // Created on first use.
	closed bool
}

func newConnection(options domain.ConnectionOptions, m *Manager) *Connection {
	return &Connection{
		options:   options,
		cfg:       m.cfg,
		newClient: m.newClient,
		transfer:  m.transfer,
		helpers:   m.helpers,
		logger:    m.logger.With("instance", options.InstanceName),
	}
}

// Options returns the options the connection was built with.
func (c *Connection) Options() domain.ConnectionOptions {
	return c.options
}

// WorkImage returns the repository that holds the instance's snapshots.
func (c *Connection) WorkImage() string {
	return workImage(c.cfg.ImagePrefix, c.options.InstanceName)
}

func workImage(prefix, instance string) string {
	if prefix != "" {
		return prefix + "/" + instance
	}
	return instance
}

// LoginCommand returns the command that opens an interactive login shell in
// the container.
func (c *Connection) LoginCommand() domain.LoginCommand {
	return domain.LoginCommand{
		Command:   "docker",
		Arguments: []string{"exec", "-it", c.options.InstanceName, "/bin/bash", "-login", "-i"},
	}
}

// Execute runs command inside the container and commits the result into the
// work image. An empty command does nothing.
//
// Output is passed to the configured observer while the command runs. A
// non-zero exit code fails with *domain.ExecFailedError and nothing is
// committed.
func (c *Connection) Execute(ctx context.Context, command string) error {
	if strings.TrimSpace(command) == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	client, err := c.runtime()
	if err != nil {
		return err
	}

	ctr, err := client.GetContainer(ctx, c.options.InstanceName)
	if err != nil {
		return fmt.Errorf("failed to get container: %w", err)
	}

	argv, err := c.helpers.SplitCommand(command)
	if err != nil {
		return err
	}

	c.logger.Debug("executing command", "command", command)
	exitCode, err := client.Exec(ctx, ctr, argv, c.cfg.output(c.logger))
	if err != nil {
		return fmt.Errorf("failed to exec command: %w", err)
	}
	if exitCode != 0 {
		return &domain.ExecFailedError{ExitCode: exitCode, Command: command}
	}

	c.removeWorkImage(ctx, client)

	img, err := client.Commit(ctx, ctr)
	if err != nil {
		return fmt.Errorf("failed to commit container: %w", err)
	}

	if err := client.TagImage(ctx, img, c.WorkImage(), workImageTag, true); err != nil {
		return fmt.Errorf("failed to tag work image: %w", err)
	}

	c.logger.Debug("committed work image", "image", c.WorkImage()+":"+workImageTag, "id", img.ID)
	return nil
}

// Removes the previous snapshot. Failures are logged and ignored.
func (c *Connection) removeWorkImage(ctx context.Context, client ports.ContainerClient) {
	name := c.WorkImage()

	old, err := client.GetImage(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		c.logger.Debug(name + " not present. nothing to remove.")
		return
	}
	if err != nil {
		c.logger.Debug("failed to look up work image", "image", name, "error", err)
		return
	}

	if err := client.RemoveImage(ctx, old); err != nil {
		c.logger.Debug("failed to remove work image", "image", name, "error", err)
	}
}

// Upload copies locals to remote inside the container over its published SSH
// port. It blocks until the transfer finishes.
func (c *Connection) Upload(ctx context.Context, locals []string, remote string) error {
	if len(locals) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConnectionClosed
	}

	host, err := transferHost(c.options.Endpoint)
	if err != nil {
		return err
	}

	port, err := c.options.Container.HostPort(domain.SSHPort)
	if err != nil {
		return err
	}

	keyPath, err := c.helpers.WriteKey(c.cfg.keyDir())
	if err != nil {
		return err
	}

	req := domain.TransferRequest{
		Host:    host,
		Port:    port,
		User:    transferUser,
		KeyPath: keyPath,
		Locals:  locals,
		Remote:  remote,
	}

	c.logger.Debug("uploading files", "host", host, "port", port, "locals", locals, "remote", remote)
	if err := c.transfer.Transfer(ctx, req); err != nil {
		if c.cfg.IgnoreTransferErrors {
			c.logger.Warn("file transfer failed", "error", err)
			return nil
		}
		return err
	}
	return nil
}

// Close releases the runtime client, if one was created.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Returns the cached runtime client, creating it on first use. Callers hold mu.
func (c *Connection) runtime() (ports.ContainerClient, error) {
	if c.closed {
		return nil, errConnectionClosed
	}
	if c.client != nil {
		return c.client, nil
	}

	client, err := c.newClient(domain.ClientConfig{
		Endpoint:     c.options.Endpoint,
		ReadTimeout:  c.cfg.ReadTimeout,
		WriteTimeout: c.cfg.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to container runtime: %w", err)
	}
	c.client = client
	return client, nil
}

// Returns the host the container's published ports are reachable on.
func transferHost(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid docker host %q: %v", domain.ErrConfiguration, endpoint, err)
	}

	switch u.Scheme {
	case "tcp":
		if host := u.Hostname(); host != "" {
			return host, nil
		}
	case "unix", "npipe":
		return "127.0.0.1", nil
	}
	return "", fmt.Errorf("%w: cannot derive a host from docker host %q", domain.ErrConfiguration, endpoint)
}
