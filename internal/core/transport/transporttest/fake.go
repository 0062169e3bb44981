// Package transporttest provides in-memory doubles for the transport ports.
package transporttest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/ports"
)

// Chunk is one piece of output a FakeClient emits during Exec.
type Chunk struct {
	Stream domain.Stream
	Data   string
}

// Tag records one TagImage call.
type Tag struct {
	ImageID string
	Repo    string
	Tag     string
	Force   bool
}

// FakeClient is a ports.ContainerClient backed by maps. Containers that are
// not registered are reported as not found; images are keyed by reference.
type FakeClient struct {
	mu sync.Mutex

	Containers map[string]domain.Container
	Images     map[string]domain.Image

	ExitCode int     // Returned by every Exec.
	Output   []Chunk // Emitted by every Exec.

	ExecErr      error
	CommitErr    error
	TagErr       error
	GetImageErr  error
	RemoveErr    error
	CloseErr     error
	ContainerErr error

	Calls   []string   // Method names in call order.
	Execs   [][]string // Argv of every Exec.
	Tags    []Tag
	Removed []string // IDs of removed images.
	Closed  bool

	commits int
}

// NewFakeClient returns a client that knows the given containers.
func NewFakeClient(containers ...string) *FakeClient {
	f := &FakeClient{
		Containers: map[string]domain.Container{},
		Images:     map[string]domain.Image{},
	}
	for _, name := range containers {
		f.Containers[name] = domain.Container{ID: "ctr-" + name, Name: name, State: "running"}
	}
	return f
}

var _ ports.ContainerClient = (*FakeClient)(nil)

func (f *FakeClient) record(call string) {
	f.Calls = append(f.Calls, call)
}

func notFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w: %w", kind, name, domain.ErrRuntime, domain.ErrNotFound)
}

func (f *FakeClient) GetContainer(ctx context.Context, name string) (domain.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetContainer")

	if f.ContainerErr != nil {
		return domain.Container{}, f.ContainerErr
	}
	ctr, ok := f.Containers[name]
	if !ok {
		return domain.Container{}, notFound("container", name)
	}
	return ctr, nil
}

func (f *FakeClient) Exec(ctx context.Context, ctr domain.Container, argv []string, out domain.OutputFunc) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Exec")
	f.Execs = append(f.Execs, argv)

	if f.ExecErr != nil {
		return 0, f.ExecErr
	}
	for _, c := range f.Output {
		out(c.Stream, []byte(c.Data))
	}
	return f.ExitCode, nil
}

func (f *FakeClient) Commit(ctx context.Context, ctr domain.Container) (domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Commit")

	if f.CommitErr != nil {
		return domain.Image{}, f.CommitErr
	}
	f.commits++
	return domain.Image{ID: fmt.Sprintf("sha256:commit%d", f.commits)}, nil
}

func (f *FakeClient) TagImage(ctx context.Context, img domain.Image, repo, tag string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("TagImage")

	if f.TagErr != nil {
		return f.TagErr
	}
	ref := repo + ":" + tag
	if _, exists := f.Images[ref]; exists && !force {
		return fmt.Errorf("tag %q already exists: %w", ref, domain.ErrRuntime)
	}
	f.Tags = append(f.Tags, Tag{ImageID: img.ID, Repo: repo, Tag: tag, Force: force})
	img.Tags = append(img.Tags, ref)
	f.Images[ref] = img
	return nil
}

func (f *FakeClient) GetImage(ctx context.Context, name string) (domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetImage")

	if f.GetImageErr != nil {
		return domain.Image{}, f.GetImageErr
	}
	if img, ok := f.Images[name]; ok {
		return img, nil
	}
	if !strings.Contains(name, ":") {
		if img, ok := f.Images[name+":latest"]; ok {
			return img, nil
		}
	}
	return domain.Image{}, notFound("image", name)
}

func (f *FakeClient) RemoveImage(ctx context.Context, img domain.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveImage")

	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	for ref, known := range f.Images {
		if known.ID == img.ID {
			delete(f.Images, ref)
		}
	}
	f.Removed = append(f.Removed, img.ID)
	return nil
}

func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Close")

	f.Closed = true
	return f.CloseErr
}

// CallCount returns how often the named method was called.
func (f *FakeClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}
	return n
}

// Factory hands out a fresh FakeClient per call to New.
type Factory struct {
	mu sync.Mutex

	// Setup, if set, prepares each new client.
	Setup func(*FakeClient)
	Err   error

	Clients []*FakeClient
	Configs []domain.ClientConfig
}

// New implements ports.ClientFactory.
func (f *Factory) New(cfg domain.ClientConfig) (ports.ContainerClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Configs = append(f.Configs, cfg)
	if f.Err != nil {
		return nil, f.Err
	}
	client := NewFakeClient()
	if f.Setup != nil {
		f.Setup(client)
	}
	f.Clients = append(f.Clients, client)
	return client, nil
}

// Created returns how many clients New has built.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Clients)
}

// Last returns the most recently built client, or nil.
func (f *Factory) Last() *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Clients) == 0 {
		return nil
	}
	return f.Clients[len(f.Clients)-1]
}

// FakeTransfer records transfer requests.
type FakeTransfer struct {
	mu       sync.Mutex
	Err      error
	Requests []domain.TransferRequest
}

var _ ports.FileTransfer = (*FakeTransfer)(nil)

func (f *FakeTransfer) Transfer(ctx context.Context, req domain.TransferRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	return f.Err
}
