package exports

import (
	"sync"

	"github.com/otterc/incubator-slider/internal/cluster"
)

// MaxFolderEntries bounds the folder-export histories. The (N+1)-th
// distinct container evicts the oldest entry.
const MaxFolderEntries = 40

// folderHistory is a bounded, insertion-ordered container→entry map.
// Re-reporting an existing container updates the entry in place without
// refreshing its position, so eviction stays purely age-of-first-report
// based.
type folderHistory struct {
	mu      sync.Mutex
	max     int
	order   []string
	entries map[string]cluster.ExportEntry
}

func newFolderHistory(max int) *folderHistory {
	return &folderHistory{
		max:     max,
		entries: make(map[string]cluster.ExportEntry),
	}
}

// Put records the entry for a container, evicting the oldest container
// when the bound is exceeded.
func (h *folderHistory) Put(containerID string, entry cluster.ExportEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.entries[containerID]; !exists {
		h.order = append(h.order, containerID)
		if len(h.order) > h.max {
			oldest := h.order[0]
			h.order = h.order[1:]
			delete(h.entries, oldest)
		}
	}
	h.entries[containerID] = entry
}

// Len returns the number of retained entries.
func (h *folderHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// GroupedByTag returns the retained entries bucketed by their tag (the
// reporting component), oldest first within each bucket.
func (h *folderHistory) GroupedByTag() map[string][]cluster.ExportEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	grouped := make(map[string][]cluster.ExportEntry)
	for _, containerID := range h.order {
		entry := h.entries[containerID]
		grouped[entry.Tag] = append(grouped[entry.Tag], entry)
	}
	return grouped
}
