package registry

import (
	consulapi "github.com/hashicorp/consul/api"
)

// ServiceRegistry announces this process to a service catalog.
type ServiceRegistry interface {
	// Register registers a service instance under a unique id with its checks.
	Register(id, name, address string, port int, tags []string, checks consulapi.AgentServiceChecks) error

	// Deregister removes a service instance using its unique ID.
	Deregister(id string) error
}
