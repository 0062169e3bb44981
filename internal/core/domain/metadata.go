package domain

import "fmt"

// SSHPort is the container port the file transfer connects to.
const SSHPort = "22/tcp"

// ContainerMetadata is the runtime-reported descriptor of a container. Field
// names follow the docker inspect output so it can be decoded directly.
type ContainerMetadata struct {
	ID              string          `json:"Id" yaml:"Id"`
	Name            string          `json:"Name" yaml:"Name"`
	NetworkSettings NetworkSettings `json:"NetworkSettings" yaml:"NetworkSettings"`
}

// NetworkSettings holds the network part of ContainerMetadata.
type NetworkSettings struct {
	IPAddress string                   `json:"IPAddress,omitempty" yaml:"IPAddress,omitempty"`
	Ports     map[string][]PortBinding `json:"Ports" yaml:"Ports"`
}

// PortBinding is a container port published on the host.
type PortBinding struct {
	HostIP   string `json:"HostIp" yaml:"HostIp"`
	HostPort string `json:"HostPort" yaml:"HostPort"`
}

// HostPort returns the first host port the given container port is published on.
func (m *ContainerMetadata) HostPort(containerPort string) (string, error) {
	if m == nil {
		return "", fmt.Errorf("%w: container metadata is missing", ErrConfiguration)
	}
	bindings := m.NetworkSettings.Ports[containerPort]
	if len(bindings) == 0 || bindings[0].HostPort == "" {
		return "", fmt.Errorf("%w: port %s is not published for container %q", ErrConfiguration, containerPort, m.Name)
	}
	return bindings[0].HostPort, nil
}
