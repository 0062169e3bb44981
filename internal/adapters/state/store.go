// Package state stores instance state as YAML files, one per instance.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/ports"
)

// FileStore keeps <dir>/<instance>.yml files.
type FileStore struct {
	dir string
}

var _ ports.StateStore = (*FileStore)(nil)

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(instance string) (string, error) {
	if instance == "" || strings.ContainsAny(instance, `/\`) || instance == "." || instance == ".." {
		return "", fmt.Errorf("%w: invalid instance name %q", domain.ErrConfiguration, instance)
	}
	return filepath.Join(s.dir, instance+".yml"), nil
}

// Load reads the state of instance. A missing file wraps domain.ErrNotFound.
func (s *FileStore) Load(instance string) (domain.State, error) {
	path, err := s.path(instance)
	if err != nil {
		return domain.State{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.State{}, fmt.Errorf("no state for instance %q: %w", instance, domain.ErrNotFound)
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("failed to read state: %w", err)
	}

	var st domain.State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return domain.State{}, fmt.Errorf("%w: failed to parse %s: %v", domain.ErrConfiguration, path, err)
	}
	if st.InstanceName == "" {
		st.InstanceName = instance
	}
	// Metadata built from inspect always has a non-nil Ports map.
	if st.Container != nil && st.Container.NetworkSettings.Ports == nil {
		st.Container.NetworkSettings.Ports = map[string][]domain.PortBinding{}
	}
	return st, nil
}

// Save writes st, replacing any previous state of the instance.
func (s *FileStore) Save(st domain.State) error {
	path, err := s.path(st.InstanceName)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}
