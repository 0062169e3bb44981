package ports

import "github.com/melih/dokken/internal/core/domain"

// StateStore persists per-instance state between invocations.
type StateStore interface {
	Load(instance string) (domain.State, error)
	Save(state domain.State) error
}
