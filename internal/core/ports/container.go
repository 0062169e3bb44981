package ports

import (
	"context"

	"github.com/melih/dokken/internal/core/domain"
)

// ContainerClient defines the container runtime operations a connection needs.
// This interface allows us to switch between Docker, Podman or a fake in tests
// without changing the transport logic.
//
// Failures wrap domain.ErrRuntime; lookups of missing objects additionally
// wrap domain.ErrNotFound.
type ContainerClient interface {
	// GetContainer looks up a container by name or ID.
	GetContainer(ctx context.Context, name string) (domain.Container, error)

	// Exec runs argv inside the container, passing output to out as it
	// arrives, and returns the exit code. A non-zero exit code is not an error.
	Exec(ctx context.Context, ctr domain.Container, argv []string, out domain.OutputFunc) (int, error)

	// Commit snapshots the container filesystem into a new image.
	Commit(ctx context.Context, ctr domain.Container) (domain.Image, error)

	// TagImage tags img as repo:tag, replacing an existing tag when force is set.
	TagImage(ctx context.Context, img domain.Image, repo, tag string, force bool) error

	// GetImage looks up an image by reference.
	GetImage(ctx context.Context, name string) (domain.Image, error)

	// RemoveImage deletes img.
	RemoveImage(ctx context.Context, img domain.Image) error

	// Close releases the underlying runtime connection.
	Close() error
}

// ClientFactory creates a ContainerClient for the given endpoint.
type ClientFactory func(cfg domain.ClientConfig) (ContainerClient, error)
