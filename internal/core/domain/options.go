package domain

import (
	"reflect"
	"time"
)

// ConnectionOptions identifies what a connection is bound to. Two connections
// are interchangeable exactly when their options are equal.
type ConnectionOptions struct {
	Endpoint     string             `json:"endpoint"`
	InstanceName string             `json:"instance_name"`
	Container    *ContainerMetadata `json:"container,omitempty"`
}

// Equal reports whether both options are structurally equal.
func (o ConnectionOptions) Equal(other ConnectionOptions) bool {
	return reflect.DeepEqual(o, other)
}

// State is the mutable per-instance state provided by the orchestrator.
type State struct {
	InstanceName string             `json:"instance_name" yaml:"instance_name"`
	DockerHost   string             `json:"docker_host,omitempty" yaml:"docker_host,omitempty"`
	Container    *ContainerMetadata `json:"kitchen_container,omitempty" yaml:"kitchen_container,omitempty"`
}

// ClientConfig is handed to a client factory when a connection first needs
// the runtime.
type ClientConfig struct {
	Endpoint     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// TransferRequest describes one file synchronization into a container.
type TransferRequest struct {
	Host    string
	Port    string
	User    string
	KeyPath string
	Locals  []string
	Remote  string
}
