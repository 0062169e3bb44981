package transport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/helpers"
	"github.com/melih/dokken/internal/core/transport/transporttest"
)

func TestExecuteEmptyCommandIsNoop(t *testing.T) {
	f := newFixture(t, Config{})
	conn := f.connect(t, testState())

	for _, cmd := range []string{"", "   "} {
		if err := conn.Execute(context.Background(), cmd); err != nil {
			t.Errorf("Execute(%q) = %v, want nil", cmd, err)
		}
	}
	if n := f.factory.Created(); n != 0 {
		t.Errorf("runtime clients created = %d, want 0", n)
	}
}

func TestExecuteSuccessCommitsWorkImage(t *testing.T) {
	f := newFixture(t, Config{ImagePrefix: "dokken"})
	conn := f.connect(t, testState())

	if err := conn.Execute(context.Background(), `echo "a b" c`); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	client := f.factory.Last()
	wantCalls := []string{"GetContainer", "Exec", "GetImage", "Commit", "TagImage"}
	if diff := cmp.Diff(wantCalls, client.Calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"echo", "a b", "c"}}, client.Execs); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
	wantTags := []transporttest.Tag{{ImageID: "sha256:commit1", Repo: "dokken/" + testInstance, Tag: "latest", Force: true}}
	if diff := cmp.Diff(wantTags, client.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteReplacesPreviousSnapshot(t *testing.T) {
	f := newFixture(t, Config{})
	conn := f.connect(t, testState())
	ctx := context.Background()

	for _, cmd := range []string{"true", "true"} {
		if err := conn.Execute(ctx, cmd); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	client := f.factory.Last()
	if got := client.CallCount("RemoveImage"); got != 1 {
		t.Errorf("RemoveImage calls = %d, want 1", got)
	}
	if diff := cmp.Diff([]string{"sha256:commit1"}, client.Removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	img, err := client.GetImage(ctx, testInstance+":latest")
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if img.ID != "sha256:commit2" {
		t.Errorf("latest = %q, want sha256:commit2", img.ID)
	}
}

func TestExecuteNonZeroExitFails(t *testing.T) {
	f := newFixture(t, Config{})
	f.factory.Setup = func(c *transporttest.FakeClient) {
		c.Containers[testInstance] = domain.Container{ID: "ctr", Name: testInstance}
		c.ExitCode = 2
	}
	conn := f.connect(t, testState())

	err := conn.Execute(context.Background(), "false --really")

	var execErr *domain.ExecFailedError
	if !errors.As(err, &execErr) {
		t.Fatalf("err = %v, want *domain.ExecFailedError", err)
	}
	if execErr.ExitCode != 2 || execErr.Command != "false --really" {
		t.Errorf("got exit %d command %q", execErr.ExitCode, execErr.Command)
	}
	if !errors.Is(err, domain.ErrExecFailed) {
		t.Error("errors.Is(err, ErrExecFailed) = false")
	}
	if want := "Docker Exec (2) for command: [false --really]"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}

	client := f.factory.Last()
	for _, method := range []string{"GetImage", "RemoveImage", "Commit", "TagImage"} {
		if n := client.CallCount(method); n != 0 {
			t.Errorf("%s called %d times after failed exec", method, n)
		}
	}
}

func TestExecuteIgnoresCleanupFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *transporttest.FakeClient)
	}{
		{
			name: "lookup fails",
			setup: func(c *transporttest.FakeClient) {
				c.GetImageErr = domain.ErrRuntime
			},
		},
		{
			name: "remove fails",
			setup: func(c *transporttest.FakeClient) {
				c.Images[testInstance+":latest"] = domain.Image{ID: "sha256:old"}
				c.RemoveErr = errors.New("image is in use")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.factory.Setup = func(c *transporttest.FakeClient) {
				c.Containers[testInstance] = domain.Container{ID: "ctr", Name: testInstance}
				tt.setup(c)
			}
			conn := f.connect(t, testState())

			if err := conn.Execute(context.Background(), "true"); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			client := f.factory.Last()
			if client.CallCount("Commit") != 1 || client.CallCount("TagImage") != 1 {
				t.Errorf("calls = %v, want one commit and one tag", client.Calls)
			}
		})
	}
}

func TestExecuteRuntimeFailuresPropagate(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(c *transporttest.FakeClient)
		wantNoTag bool
	}{
		{name: "exec", setup: func(c *transporttest.FakeClient) { c.ExecErr = domain.ErrRuntime }, wantNoTag: true},
		{name: "commit", setup: func(c *transporttest.FakeClient) { c.CommitErr = domain.ErrRuntime }, wantNoTag: true},
		{name: "tag", setup: func(c *transporttest.FakeClient) { c.TagErr = domain.ErrRuntime }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.factory.Setup = func(c *transporttest.FakeClient) {
				c.Containers[testInstance] = domain.Container{ID: "ctr", Name: testInstance}
				tt.setup(c)
			}
			conn := f.connect(t, testState())

			err := conn.Execute(context.Background(), "true")
			if !errors.Is(err, domain.ErrRuntime) {
				t.Fatalf("err = %v, want ErrRuntime", err)
			}
			if tt.wantNoTag && len(f.factory.Last().Tags) != 0 {
				t.Error("image tagged after failure")
			}
		})
	}
}

func TestExecuteMissingContainer(t *testing.T) {
	f := newFixture(t, Config{})
	conn := f.connect(t, domain.State{InstanceName: "ghost"})

	err := conn.Execute(context.Background(), "true")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestExecuteStreamsOutput(t *testing.T) {
	var got []transporttest.Chunk
	f := newFixture(t, Config{
		Output: func(stream domain.Stream, chunk []byte) {
			got = append(got, transporttest.Chunk{Stream: stream, Data: string(chunk)})
		},
	})
	want := []transporttest.Chunk{
		{Stream: domain.Stdout, Data: "hello\n"},
		{Stream: domain.Stderr, Data: "warning\n"},
		{Stream: domain.Stdout, Data: "bye\n"},
	}
	f.factory.Setup = func(c *transporttest.FakeClient) {
		c.Containers[testInstance] = domain.Container{ID: "ctr", Name: testInstance}
		c.Output = want
	}
	conn := f.connect(t, testState())

	if err := conn.Execute(context.Background(), "echo hello"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRuntimeClientIsCreatedOnce(t *testing.T) {
	f := newFixture(t, Config{ReadTimeout: 5, WriteTimeout: 7})
	conn := f.connect(t, testState())

	for i := 0; i < 3; i++ {
		if err := conn.Execute(context.Background(), "true"); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if n := f.factory.Created(); n != 1 {
		t.Errorf("clients created = %d, want 1", n)
	}
	want := domain.ClientConfig{Endpoint: "tcp://10.0.0.5:2376", ReadTimeout: 5, WriteTimeout: 7}
	if diff := cmp.Diff(want, f.factory.Configs[0]); diff != "" {
		t.Errorf("client config mismatch (-want +got):\n%s", diff)
	}
}

func TestClosedConnectionRejectsWork(t *testing.T) {
	f := newFixture(t, Config{})
	conn := f.connect(t, testState())

	if err := conn.Execute(context.Background(), "true"); err != nil {
		t.Fatal(err)
	}
	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
	if !f.factory.Last().Closed {
		t.Error("runtime client not closed")
	}
	if err := conn.Execute(context.Background(), "true"); !errors.Is(err, errConnectionClosed) {
		t.Errorf("Execute after Close = %v", err)
	}
	if err := conn.Upload(context.Background(), []string{"a"}, "/tmp"); !errors.Is(err, errConnectionClosed) {
		t.Errorf("Upload after Close = %v", err)
	}
}

func TestWorkImage(t *testing.T) {
	tests := []struct {
		prefix, instance, want string
	}{
		{"", "default-ubuntu", "default-ubuntu"},
		{"someara", "default-ubuntu", "someara/default-ubuntu"},
		{"registry.local/kitchen", "x", "registry.local/kitchen/x"},
	}
	for _, tt := range tests {
		if got := workImage(tt.prefix, tt.instance); got != tt.want {
			t.Errorf("workImage(%q, %q) = %q, want %q", tt.prefix, tt.instance, got, tt.want)
		}
	}
}

func TestLoginCommand(t *testing.T) {
	f := newFixture(t, Config{})
	conn := f.connect(t, testState())

	want := domain.LoginCommand{
		Command:   "docker",
		Arguments: []string{"exec", "-it", testInstance, "/bin/bash", "-login", "-i"},
	}
	if diff := cmp.Diff(want, conn.LoginCommand()); diff != "" {
		t.Errorf("LoginCommand mismatch (-want +got):\n%s", diff)
	}
}

func TestUpload(t *testing.T) {
	keyDir := filepath.Join(t.TempDir(), "dokken")
	f := newFixture(t, Config{DockerHost: "tcp://10.0.0.5:2376", KeyDir: keyDir})
	conn := f.connect(t, testState())

	locals := []string{"/src/a", "/src/b"}
	if err := conn.Upload(context.Background(), locals, "/tmp/kitchen"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	want := []domain.TransferRequest{{
		Host:    "10.0.0.5",
		Port:    "32768",
		User:    "root",
		KeyPath: filepath.Join(keyDir, helpers.KeyFile),
		Locals:  locals,
		Remote:  "/tmp/kitchen",
	}}
	if diff := cmp.Diff(want, f.transfer.Requests); diff != "" {
		t.Errorf("transfer mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(want[0].KeyPath)
	if err != nil {
		t.Fatalf("key not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key perm = %o, want 600", perm)
	}
	if n := f.factory.Created(); n != 0 {
		t.Errorf("upload created %d runtime clients", n)
	}
}

func TestUploadTransferFailure(t *testing.T) {
	failure := &domain.TransferError{ExitCode: 23, Err: errors.New("exit status 23")}

	t.Run("surfaced", func(t *testing.T) {
		f := newFixture(t, Config{})
		f.transfer.Err = failure
		conn := f.connect(t, testState())

		err := conn.Upload(context.Background(), []string{"a"}, "/tmp")
		if !errors.Is(err, domain.ErrTransfer) {
			t.Fatalf("err = %v, want ErrTransfer", err)
		}
	})

	t.Run("ignored", func(t *testing.T) {
		f := newFixture(t, Config{IgnoreTransferErrors: true})
		f.transfer.Err = failure
		conn := f.connect(t, testState())

		if err := conn.Upload(context.Background(), []string{"a"}, "/tmp"); err != nil {
			t.Fatalf("err = %v, want nil", err)
		}
		if len(f.transfer.Requests) != 1 {
			t.Error("transfer not attempted")
		}
	})
}

func TestUploadConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		host  string
		state domain.State
	}{
		{name: "no metadata", host: "tcp://10.0.0.5:2376", state: domain.State{InstanceName: testInstance}},
		{name: "ssh port not published", host: "tcp://10.0.0.5:2376", state: domain.State{
			InstanceName: testInstance,
			Container:    &domain.ContainerMetadata{Name: testInstance},
		}},
		{name: "unsupported endpoint", host: "ssh://builder@10.0.0.5", state: testState()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{DockerHost: tt.host})
			conn := f.connect(t, tt.state)

			err := conn.Upload(context.Background(), []string{"a"}, "/tmp")
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
			if len(f.transfer.Requests) != 0 {
				t.Error("transfer attempted despite configuration error")
			}
		})
	}
}

func TestTransferHost(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{endpoint: "tcp://10.0.0.5:2376", want: "10.0.0.5"},
		{endpoint: "tcp://docker.internal", want: "docker.internal"},
		{endpoint: "unix:///var/run/docker.sock", want: "127.0.0.1"},
		{endpoint: "tcp://:2376", wantErr: true},
		{endpoint: "10.0.0.5:2376", wantErr: true},
		{endpoint: "http://10.0.0.5", wantErr: true},
	}
	for _, tt := range tests {
		got, err := transferHost(tt.endpoint)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("transferHost(%q) err = %v, want ErrConfiguration", tt.endpoint, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("transferHost(%q) = %q, %v; want %q", tt.endpoint, got, err, tt.want)
		}
	}
}
