// Package helpers provides the key material and command parsing shared by
// transport connections.
package helpers

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"golang.org/x/crypto/ssh"
)

// KeyFile is the file name the private key is materialized under.
const KeyFile = "id_rsa"

// insecureKey is the well-known key baked into dokken container images. It is
// only ever used against throwaway test containers.
//
//go:embed insecure_id_rsa
var insecureKey []byte

// Helpers bundles an SSH private key with command parsing utilities.
type Helpers struct {
	key    []byte
	signer ssh.Signer
}

// New validates key and returns helpers serving it.
func New(key []byte) (*Helpers, error) {
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &Helpers{key: key, signer: signer}, nil
}

// Default returns helpers serving the embedded insecure key.
func Default() *Helpers {
	h, err := New(insecureKey)
	if err != nil {
		panic(err)
	}
	return h
}

// PrivateKey returns the PEM encoded private key.
func (h *Helpers) PrivateKey() []byte {
	return h.key
}

// AuthorizedKey returns the public half in authorized_keys format.
func (h *Helpers) AuthorizedKey() string {
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(h.signer.PublicKey())))
}

// SplitCommand splits command into words using POSIX shell quoting rules.
// No globbing or variable expansion takes place.
func (h *Helpers) SplitCommand(command string) ([]string, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("failed to split command %q: %w", command, err)
	}
	return words, nil
}

// WriteKey materializes the private key as dir/id_rsa, readable by the owner
// only, and returns its path. Rewriting an existing key is fine.
func (h *Helpers) WriteKey(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}
	path := filepath.Join(dir, KeyFile)
	if err := os.WriteFile(path, h.key, 0o600); err != nil {
		return "", fmt.Errorf("failed to write private key: %w", err)
	}
	// WriteFile keeps the mode of a file that already exists.
	if err := os.Chmod(path, 0o600); err != nil {
		return "", fmt.Errorf("failed to restrict private key: %w", err)
	}
	return path, nil
}
