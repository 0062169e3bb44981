package transport

import (
	"io"
	"log/slog"
	"testing"

	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/transport/transporttest"
)

const testInstance = "default-ubuntu"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetadata(hostPort string) *domain.ContainerMetadata {
	return &domain.ContainerMetadata{
		ID:   "ctr-" + testInstance,
		Name: "/" + testInstance,
		NetworkSettings: domain.NetworkSettings{
			Ports: map[string][]domain.PortBinding{
				domain.SSHPort: {{HostIP: "0.0.0.0", HostPort: hostPort}},
			},
		},
	}
}

func testState() domain.State {
	return domain.State{InstanceName: testInstance, Container: testMetadata("32768")}
}

type fixture struct {
	manager  *Manager
	factory  *transporttest.Factory
	transfer *transporttest.FakeTransfer
}

// Builds a manager whose clients all know the test container.
func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	if cfg.DockerHost == "" {
		cfg.DockerHost = "tcp://10.0.0.5:2376"
	}
	if cfg.KeyDir == "" {
		cfg.KeyDir = t.TempDir()
	}
	factory := &transporttest.Factory{
		Setup: func(c *transporttest.FakeClient) {
			c.Containers[testInstance] = domain.Container{ID: "ctr-" + testInstance, Name: testInstance}
		},
	}
	transfer := &transporttest.FakeTransfer{}
	return &fixture{
		manager:  NewManager(cfg, factory.New, transfer, nil, discardLogger()),
		factory:  factory,
		transfer: transfer,
	}
}

func (f *fixture) connect(t *testing.T, state domain.State) *Connection {
	t.Helper()
	conn, err := f.manager.Connection(state, nil)
	if err != nil {
		t.Fatalf("Connection: %v", err)
	}
	return conn
}
