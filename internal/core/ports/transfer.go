package ports

import (
	"context"

	"github.com/melih/dokken/internal/core/domain"
)

// FileTransfer copies local files into a container over its published SSH port.
type FileTransfer interface {
	// Transfer blocks until the copy finishes. Failures are returned as
	// *domain.TransferError.
	Transfer(ctx context.Context, req domain.TransferRequest) error
}
