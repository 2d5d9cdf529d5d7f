// Package ports tracks the ports agents report for their components, both
// per container and in a shared view used when rendering configuration
// for other components.
package ports

import (
	"sync"

	"github.com/otterc/incubator-slider/pkg/logging"
)

// Registry is the port-allocation table. The shared view is
// last-writer-wins across containers; per-container entries never alias
// another container's.
type Registry struct {
	mu         sync.RWMutex
	shared     map[string]string
	byContainer map[string]map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		shared:      make(map[string]string),
		byContainer: make(map[string]map[string]string),
	}
}

// Record stores a reported port. The per-container map always receives
// it; the shared view only when shared is true (ports whose config
// template is flagged per-container-only stay private).
func (r *Registry) Record(containerID, portName, value string, shared bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	container, ok := r.byContainer[containerID]
	if !ok {
		container = make(map[string]string)
		r.byContainer[containerID] = container
	}
	container[portName] = value
	if shared {
		r.shared[portName] = value
	}
	logging.Debug("PortRegistry", "Recorded port %s=%s for %s (shared=%t)", portName, value, containerID, shared)
}

// SharedPort looks up a port in the shared view.
func (r *Registry) SharedPort(portName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.shared[portName]
	return value, ok
}

// ContainerPort looks up a port reported by a specific container.
func (r *Registry) ContainerPort(containerID, portName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.byContainer[containerID][portName]
	return value, ok
}

// SharedPorts returns a copy of the shared view.
func (r *Registry) SharedPorts() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMap(r.shared)
}

// ContainerPorts returns a copy of one container's reported ports.
func (r *Registry) ContainerPorts(containerID string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyMap(r.byContainer[containerID])
}

// ReleaseContainer discards the container's port map and removes any
// shared entry it contributed. When several containers reported the same
// shared port the first remover wins; shared ports are not
// reference-counted. Known limitation.
func (r *Registry) ReleaseContainer(containerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	container, ok := r.byContainer[containerID]
	if !ok {
		return
	}
	delete(r.byContainer, containerID)
	for portName := range container {
		delete(r.shared, portName)
	}
	logging.Info("PortRegistry", "Released %d port(s) of completed container %s", len(container), containerID)
}

func copyMap(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
