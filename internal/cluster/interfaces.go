// Package cluster defines the interfaces through which the agent protocol
// core talks to its external collaborators: the application-master state
// (live containers, cluster options), the scheduler action queue, and the
// registry sink that published configuration and exports are pushed to.
//
// Container allocation, descriptor provisioning and the transport layer
// live behind these interfaces and are out of scope here; the in-memory
// implementations in this package back tests and the standalone serve
// mode.
package cluster

import (
	"fmt"
	"time"
)

// ConfigurationError reports a mandatory cluster option that is missing.
// It is fatal to constructing one specific command, never to the
// heartbeat exchange itself.
type ConfigurationError struct {
	Option string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing mandatory cluster option %q", e.Option)
}

// StateAccessor exposes the slice of application-master state the
// protocol core needs. Implementations must be safe for concurrent use
// from heartbeat handlers.
type StateAccessor interface {
	// IsLive reports whether the application is accepting work.
	IsLive() bool

	// ApplicationName returns the cluster/application name.
	ApplicationName() string

	// AMHostname returns the hostname the control plane runs on.
	AMHostname() string

	// RoleHosts maps each role to the hostnames of its live containers.
	RoleHosts() map[string][]string

	// GlobalOptions returns a snapshot of the flat cluster option map.
	// Site-scoped keys use the "site.<dictionary>.<key>" form.
	GlobalOptions() map[string]string

	// MandatoryOption returns the option value or a *ConfigurationError.
	MandatoryOption(key string) (string, error)

	// ComponentOptionInt returns a per-role integer option, falling back
	// to the default when unset or unparsable.
	ComponentOptionInt(role, key string, def int) int

	// EndpointResolved tells the accessor a container has reported a
	// usable endpoint, so its service record can be refreshed.
	EndpointResolved(containerID, role, portName string, port int)
}

// Action is a request handed to the external scheduler.
type Action interface {
	ActionName() string
}

// ContainerLossAction asks the scheduler to release a dead container and
// allocate a replacement.
type ContainerLossAction struct {
	ContainerID string
	Role        string
}

func (ContainerLossAction) ActionName() string { return "container-loss" }

// RegisterInstanceAction asks for the component instance's registration
// record to be refreshed after new endpoint data arrived.
type RegisterInstanceAction struct {
	ContainerID string
	Role        string
}

func (RegisterInstanceAction) ActionName() string { return "register-instance" }

// ActionQueue accepts scheduler actions. Put must not block the caller;
// heartbeat handling treats the queue as fire-and-forget.
type ActionQueue interface {
	Put(action Action)
}

// PublishedConfiguration is a named property bag pushed to the registry,
// e.g. a component's hbase-site dictionary.
type PublishedConfiguration struct {
	Name        string
	Description string
	Entries     map[string]string
	Updated     time.Time
}

// ExportEntry is one published export value with its provenance.
type ExportEntry struct {
	Value       string
	ContainerID string
	Level       string
	Tag         string
	UpdatedTime string
}

// PublishedExports is a named bundle of export entries pushed to the
// registry, keyed by export name.
type PublishedExports struct {
	Name    string
	Updated time.Time
	Entries map[string][]ExportEntry
}

// Sink receives publication bundles. Calls happen on heartbeat paths and
// must be non-blocking or bounded.
type Sink interface {
	PublishConfiguration(name string, configuration PublishedConfiguration)
	PublishExports(name string, exports PublishedExports)
}
