// Package tags assigns stable symbolic tags to component instances. A tag
// identifies the n-th instance of a role independently of the transient
// container carrying it: when container c1 holding tag "1" of a role dies
// and c9 replaces it, c9 receives tag "1" again.
package tags

import (
	"strconv"
	"sync"

	"github.com/otterc/incubator-slider/pkg/logging"
)

// Provider hands out and recycles per-role tags. Tags are 1-based decimal
// strings; slot reuse keeps them dense.
type Provider struct {
	mu sync.Mutex
	// slots[role][i] holds the container occupying tag i+1, "" when free.
	slots map[string][]string
}

// NewProvider creates an empty tag provider.
func NewProvider() *Provider {
	return &Provider{slots: make(map[string][]string)}
}

// GetTag returns the tag for (role, containerID), assigning the lowest
// free slot on first sight of the container.
func (p *Provider) GetTag(role, containerID string) string {
	if role == "" || containerID == "" {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	slots := p.slots[role]
	for i, owner := range slots {
		if owner == containerID {
			return strconv.Itoa(i + 1)
		}
	}
	for i, owner := range slots {
		if owner == "" {
			slots[i] = containerID
			return strconv.Itoa(i + 1)
		}
	}
	p.slots[role] = append(slots, containerID)
	tag := strconv.Itoa(len(p.slots[role]))
	logging.Debug("TagProvider", "Assigned tag %s of role %s to %s", tag, role, containerID)
	return tag
}

// RecordAssignedTag registers a tag the agent reported for itself, e.g.
// after the control plane restarted and lost its in-memory assignment.
// Invalid tags are ignored; GetTag will then assign a fresh one.
func (p *Provider) RecordAssignedTag(role, containerID, tag string) {
	if role == "" || containerID == "" {
		return
	}
	n, err := strconv.Atoi(tag)
	if err != nil || n < 1 {
		logging.Warn("TagProvider", "Ignoring unusable tag %q reported by %s for role %s", tag, containerID, role)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	slots := p.slots[role]
	for len(slots) < n {
		slots = append(slots, "")
	}
	// Another container may already own the slot; the agent's claim wins,
	// matching the recovery path where the agent is the source of truth.
	slots[n-1] = containerID
	p.slots[role] = slots
}

// ReleaseTag frees the slot held by the container so a replacement can
// take over the same tag.
func (p *Provider) ReleaseTag(role, containerID string) {
	if role == "" || containerID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, owner := range p.slots[role] {
		if owner == containerID {
			p.slots[role][i] = ""
			logging.Debug("TagProvider", "Released tag %d of role %s from %s", i+1, role, containerID)
			return
		}
	}
}
