// Package rsync copies files into containers with rsync over ssh.
package rsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/ports"
)

// DefaultBinary is looked up in PATH when no binary is configured.
const DefaultBinary = "rsync"

// sshOptions are passed to every ssh invocation. Container host keys change
// on every rebuild and the only credential is the embedded key.
var sshOptions = []string{
	"CheckHostIP=no",
	"Compression=no",
	"PasswordAuthentication=no",
	"StrictHostKeyChecking=no",
	"UserKnownHostsFile=/dev/null",
	"LogLevel=ERROR",
}

// Adapter implements ports.FileTransfer by running rsync.
type Adapter struct {
	binary string
	logger *slog.Logger
}

var _ ports.FileTransfer = (*Adapter)(nil)

// NewAdapter creates an rsync adapter. An empty binary uses DefaultBinary.
func NewAdapter(binary string, logger *slog.Logger) *Adapter {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{binary: binary, logger: logger}
}

// Transfer runs rsync and waits for it to exit.
func (a *Adapter) Transfer(ctx context.Context, req domain.TransferRequest) error {
	args := Args(req)
	a.logger.Debug("running file transfer", "binary", a.binary, "args", args)

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, a.binary, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &domain.TransferError{
			ExitCode: exitCode,
			Output:   strings.TrimSpace(output.String()),
			Err:      err,
		}
	}
	return nil
}

// Args builds the rsync argument list for req. The ssh command is a single
// argument, so no shell is involved.
func Args(req domain.TransferRequest) []string {
	ssh := []string{"ssh", "-2", "-i", req.KeyPath}
	for _, opt := range sshOptions {
		ssh = append(ssh, "-o", opt)
	}
	ssh = append(ssh, "-p", req.Port)

	args := []string{"-a", "-e", strings.Join(ssh, " ")}
	args = append(args, req.Locals...)
	return append(args, fmt.Sprintf("%s@%s:%s", req.User, req.Host, req.Remote))
}
