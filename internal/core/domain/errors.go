package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrRuntime       = errors.New("container runtime error")
	ErrExecFailed    = errors.New("docker exec failed")
	ErrTransfer      = errors.New("file transfer failed")
)

// ExecFailedError is returned when a command exits non-zero inside the container.
type ExecFailedError struct {
	ExitCode int
	Command  string
}

func (e *ExecFailedError) Error() string {
	return fmt.Sprintf("Docker Exec (%d) for command: [%s]", e.ExitCode, e.Command)
}

func (e *ExecFailedError) Is(target error) bool {
	return target == ErrExecFailed
}

// TransferError is returned when the file transfer subprocess fails. ExitCode
// is -1 when the process could not be started or was killed.
type TransferError struct {
	ExitCode int
	Output   string
	Err      error
}

func (e *TransferError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("file transfer exited with status %d: %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("file transfer failed: %v", e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func (e *TransferError) Is(target error) bool {
	return target == ErrTransfer
}
