package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/ports"
)

// Adapter implements ports.ContainerClient using Docker SDK
type Adapter struct {
	cli *client.Client
}

var _ ports.ContainerClient = (*Adapter)(nil)

// NewAdapter creates a Docker adapter for the given endpoint. An empty
// endpoint falls back to DOCKER_HOST and the default socket.
func NewAdapter(cfg domain.ClientConfig) (*Adapter, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Endpoint != "" {
		opts = append(opts, client.WithHost(cfg.Endpoint))
	}
	// Bounds ordinary API requests only. Exec attach hijacks its own
	// connection, so a long command is not cut off.
	if cfg.ReadTimeout > 0 {
		opts = append(opts, client.WithTimeout(cfg.ReadTimeout))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w: %w", domain.ErrConfiguration, err)
	}
	return &Adapter{cli: cli}, nil
}

// NewClient implements ports.ClientFactory.
func NewClient(cfg domain.ClientConfig) (ports.ContainerClient, error) {
	return NewAdapter(cfg)
}

// GetContainer inspects a container by name or ID
func (a *Adapter) GetContainer(ctx context.Context, name string) (domain.Container, error) {
	inspect, err := a.cli.ContainerInspect(ctx, name)
	if err != nil {
		return domain.Container{}, classify(err, "failed to inspect container %q", name)
	}
	return toContainer(inspect), nil
}

// Describe returns the inspect data of a container as connection metadata.
func (a *Adapter) Describe(ctx context.Context, name string) (*domain.ContainerMetadata, error) {
	inspect, err := a.cli.ContainerInspect(ctx, name)
	if err != nil {
		return nil, classify(err, "failed to inspect container %q", name)
	}
	return toMetadata(inspect), nil
}

// Exec runs argv in the container and streams its output until it exits
func (a *Adapter) Exec(ctx context.Context, ctr domain.Container, argv []string, out domain.OutputFunc) (int, error) {
	created, err := a.cli.ContainerExecCreate(ctx, ctr.ID, container.ExecOptions{
		Cmd:          argv,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return 0, classify(err, "failed to create exec in %q", ctr.Name)
	}

	attach, err := a.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return 0, classify(err, "failed to attach to exec %s", created.ID)
	}
	defer attach.Close()

	if err := demux(attach.Reader, out); err != nil {
		return 0, classify(err, "failed to read exec output")
	}

	result, err := a.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return 0, classify(err, "failed to inspect exec %s", created.ID)
	}
	return result.ExitCode, nil
}

// Commit creates an image from the container's current filesystem
func (a *Adapter) Commit(ctx context.Context, ctr domain.Container) (domain.Image, error) {
	resp, err := a.cli.ContainerCommit(ctx, ctr.ID, container.CommitOptions{})
	if err != nil {
		return domain.Image{}, classify(err, "failed to commit container %q", ctr.Name)
	}
	return domain.Image{ID: resp.ID}, nil
}

// TagImage tags img as repo:tag. The Engine API always replaces an existing
// tag, so force only documents intent.
func (a *Adapter) TagImage(ctx context.Context, img domain.Image, repo, tag string, force bool) error {
	if err := a.cli.ImageTag(ctx, img.ID, repo+":"+tag); err != nil {
		return classify(err, "failed to tag image %s as %s:%s", img.ID, repo, tag)
	}
	return nil
}

// GetImage inspects an image by reference
func (a *Adapter) GetImage(ctx context.Context, name string) (domain.Image, error) {
	inspect, _, err := a.cli.ImageInspectWithRaw(ctx, name)
	if err != nil {
		return domain.Image{}, classify(err, "failed to inspect image %q", name)
	}
	return domain.Image{ID: inspect.ID, Tags: inspect.RepoTags}, nil
}

// RemoveImage deletes an image
func (a *Adapter) RemoveImage(ctx context.Context, img domain.Image) error {
	if _, err := a.cli.ImageRemove(ctx, img.ID, image.RemoveOptions{}); err != nil {
		return classify(err, "failed to remove image %s", img.ID)
	}
	return nil
}

// Close releases the client's idle connections
func (a *Adapter) Close() error {
	return a.cli.Close()
}

// --- helpers ---

// Wraps a Docker error into the domain taxonomy.
func classify(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if client.IsErrNotFound(err) {
		return fmt.Errorf("%s: %w: %w: %w", msg, domain.ErrRuntime, domain.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, domain.ErrRuntime, err)
}

// Splits a multiplexed exec stream, handing each frame to out as it is read.
func demux(r io.Reader, out domain.OutputFunc) error {
	if out == nil {
		out = func(domain.Stream, []byte) {}
	}
	_, err := stdcopy.StdCopy(streamWriter{domain.Stdout, out}, streamWriter{domain.Stderr, out}, r)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type streamWriter struct {
	stream domain.Stream
	out    domain.OutputFunc
}

func (w streamWriter) Write(p []byte) (int, error) {
	// The caller may retain the chunk; stdcopy reuses its buffer.
	chunk := make([]byte, len(p))
	copy(chunk, p)
	w.out(w.stream, chunk)
	return len(p), nil
}

func toContainer(inspect types.ContainerJSON) domain.Container {
	if inspect.ContainerJSONBase == nil {
		return domain.Container{}
	}
	c := domain.Container{
		ID:   inspect.ID,
		Name: strings.TrimPrefix(inspect.Name, "/"),
	}
	if inspect.Config != nil {
		c.Image = inspect.Config.Image
	}
	if inspect.State != nil {
		c.State = inspect.State.Status
	}
	return c
}

func toMetadata(inspect types.ContainerJSON) *domain.ContainerMetadata {
	meta := &domain.ContainerMetadata{
		NetworkSettings: domain.NetworkSettings{Ports: map[string][]domain.PortBinding{}},
	}
	if inspect.ContainerJSONBase != nil {
		meta.ID = inspect.ID
		meta.Name = inspect.Name
	}
	if inspect.NetworkSettings == nil {
		return meta
	}
	meta.NetworkSettings.IPAddress = inspect.NetworkSettings.IPAddress
	for port, bindings := range inspect.NetworkSettings.Ports {
		converted := make([]domain.PortBinding, 0, len(bindings))
		for _, b := range bindings {
			converted = append(converted, domain.PortBinding{HostIP: b.HostIP, HostPort: b.HostPort})
		}
		meta.NetworkSettings.Ports[string(port)] = converted
	}
	return meta
}
