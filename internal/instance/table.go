package instance

import (
	"strings"
	"sync"
)

// Table is the live instance-state registry, keyed by label. Reads and
// writes from concurrent heartbeat handlers go through the read/write
// lock; Sweep holds the write lock for its whole iteration so the
// heartbeat monitor and heartbeat-side removals of the same label are
// mutually exclusive.
type Table struct {
	mu        sync.RWMutex
	instances map[string]*InstanceState
}

// NewTable creates an empty instance table.
func NewTable() *Table {
	return &Table{instances: make(map[string]*InstanceState)}
}

// Put registers (or replaces) the instance state for its label.
func (t *Table) Put(state *InstanceState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.instances[state.Label()] = state
}

// Get returns the instance state for a label.
func (t *Table) Get(label string) (*InstanceState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.instances[label]
	return state, ok
}

// Remove drops the instance state for a label.
func (t *Table) Remove(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.instances, label)
}

// RemoveByContainer drops every instance belonging to the container and
// returns the removed states.
func (t *Table) RemoveByContainer(containerID string) []*InstanceState {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []*InstanceState
	for label, state := range t.instances {
		if strings.HasPrefix(label, containerID+labelSeparator) {
			removed = append(removed, state)
			delete(t.instances, label)
		}
	}
	return removed
}

// All returns a snapshot of every live instance state.
func (t *Table) All() []*InstanceState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	all := make([]*InstanceState, 0, len(t.instances))
	for _, state := range t.instances {
		all = append(all, state)
	}
	return all
}

// Len returns the number of live instances.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.instances)
}

// Sweep visits every instance under the write lock and removes those for
// which the visitor returns true. The removed states are returned for
// follow-up handling outside the lock.
func (t *Table) Sweep(evict func(label string, state *InstanceState) bool) []*InstanceState {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []*InstanceState
	for label, state := range t.instances {
		if evict(label, state) {
			removed = append(removed, state)
			delete(t.instances, label)
		}
	}
	return removed
}
