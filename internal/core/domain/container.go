package domain

// Container represents a container in the system (Docker, K8s, etc.)
type Container struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Image  string        `json:"image"`
	Status string        `json:"status"`
	State  string        `json:"state"` // running, exited, etc.
	Ports  []PortMapping `json:"ports,omitempty"`
}

// PortMapping is a container port published on the host.
type PortMapping struct {
	ContainerPort int    `json:"container_port"`
	HostPort      int    `json:"host_port,omitempty"`
	Protocol      string `json:"protocol,omitempty"`
}

// RunSpec describes a detached container started from a built image.
type RunSpec struct {
	Image string
	Name  string
	Port  int
}

// HostPort returns the first published host port, or 0.
func (c Container) HostPort() int {
	for _, p := range c.Ports {
		if p.HostPort > 0 {
			return p.HostPort
		}
	}
	return 0
}
