// Package exports implements the publication side of the agent protocol:
// whole-dictionary configuration reports, templated export groups, and the
// bounded per-container log/work folder histories. Resolved bundles are
// pushed to a cluster.Sink; the publisher itself keeps the authoritative
// merged view so entries of completed containers can be withdrawn again.
package exports

import (
	"fmt"
	"sync"
	"time"

	"github.com/otterc/incubator-slider/internal/cluster"
	"github.com/otterc/incubator-slider/internal/descriptor"
	"github.com/otterc/incubator-slider/internal/tags"
	"github.com/otterc/incubator-slider/internal/template"
	"github.com/otterc/incubator-slider/pkg/logging"
)

const (
	// Folder keys reported by agents at registration.
	AgentLogRoot  = "AGENT_LOG_ROOT"
	AgentWorkRoot = "AGENT_WORK_ROOT"

	// Names of the synthetic export groups carrying folder histories.
	LogFolderExportGroup  = "container_log_dirs"
	WorkFolderExportGroup = "container_work_dirs"

	// Entry levels distinguishing application-wide exports from
	// per-container component exports.
	LevelApplication = "application"
	LevelComponent   = "component"
)

// exportRef addresses one (group, export name) slot a container has
// contributed to, for cleanup when the container completes.
type exportRef struct {
	group string
	name  string
}

// Publisher merges reported data into export groups and pushes the
// resulting bundles to the registry sink. Safe for concurrent use from
// heartbeat handlers.
type Publisher struct {
	app   *descriptor.Application
	state cluster.StateAccessor
	sink  cluster.Sink
	tags  *tags.Provider

	logFolders  *folderHistory
	workFolders *folderHistory

	mu             sync.Mutex
	groups         map[string]map[string][]cluster.ExportEntry
	containerIndex map[string][]exportRef
}

// NewPublisher builds a publisher for the given application descriptor.
func NewPublisher(app *descriptor.Application, state cluster.StateAccessor, sink cluster.Sink, tagProvider *tags.Provider) *Publisher {
	return &Publisher{
		app:            app,
		state:          state,
		sink:           sink,
		tags:           tagProvider,
		logFolders:     newFolderHistory(MaxFolderEntries),
		workFolders:    newFolderHistory(MaxFolderEntries),
		groups:         make(map[string]map[string][]cluster.ExportEntry),
		containerIndex: make(map[string][]exportRef),
	}
}

// PublishFolderPaths records the log/work folders an agent reported and
// republishes the folder history groups. Values are published as
// "host:path" so readers can tell containers on different hosts apart.
func (p *Publisher) PublishFolderPaths(folders map[string]string, containerID, role, host string) {
	if len(folders) == 0 {
		return
	}
	now := time.Now()
	for key, path := range folders {
		entry := cluster.ExportEntry{
			Value:       fmt.Sprintf("%s:%s", host, path),
			ContainerID: containerID,
			Level:       LevelComponent,
			Tag:         role,
			UpdatedTime: now.Format(time.RFC3339),
		}
		if key == AgentLogRoot {
			p.logFolders.Put(containerID, entry)
		} else {
			p.workFolders.Put(containerID, entry)
		}
	}
	p.sink.PublishExports(LogFolderExportGroup, cluster.PublishedExports{
		Name:    LogFolderExportGroup,
		Updated: now,
		Entries: p.logFolders.GroupedByTag(),
	})
	p.sink.PublishExports(WorkFolderExportGroup, cluster.PublishedExports{
		Name:    WorkFolderExportGroup,
		Updated: now,
		Entries: p.workFolders.GroupedByTag(),
	})
}

// PublishConfiguration handles a component's whole-dictionary config
// report. Dictionaries are forwarded to the registry when the component is
// allowed to publish, and the component's application-level export groups
// are resolved against the reported config and the live host list.
func (p *Publisher) PublishConfiguration(configurations map[string]map[string]string, containerID, role string) {
	component := p.app.Component(role)
	if component == nil || len(configurations) == 0 {
		return
	}

	if p.canPublishConfig(component) {
		p.publishDictionaries(configurations, role)
	}
	p.publishApplicationExports(configurations, containerID, component)
}

// canPublishConfig applies the publication gate: the component is
// explicitly flagged, or no component is flagged anywhere and this one is
// a master.
func (p *Publisher) canPublishConfig(component *descriptor.Component) bool {
	if component.PublishConfig {
		return true
	}
	return !p.app.AnyMasterPublishes() && component.Category == descriptor.CategoryMaster
}

func (p *Publisher) publishDictionaries(configurations map[string]map[string]string, role string) {
	whitelist := p.app.ExportedConfigSet()
	now := time.Now()
	for dictionary, entries := range configurations {
		if len(whitelist) > 0 && !whitelist[dictionary] {
			continue
		}
		published := cluster.PublishedConfiguration{
			Name:        dictionary,
			Description: fmt.Sprintf("%s dictionary reported by %s", dictionary, role),
			Entries:     make(map[string]string, len(entries)),
			Updated:     now,
		}
		for key, value := range entries {
			published.Entries[key] = value
		}
		logging.Info("Exports", "Publishing configuration %s (%d entries) from %s", dictionary, len(entries), role)
		p.sink.PublishConfiguration(dictionary, published)
	}
}

// publishApplicationExports resolves the component's application-level
// export templates. Each export holds a single last-write-wins entry.
func (p *Publisher) publishApplicationExports(configurations map[string]map[string]string, containerID string, component *descriptor.Component) {
	selected := component.AppExportSet()
	if len(selected) == 0 {
		return
	}

	tokens := p.hostTokens()
	for dictionary, entries := range configurations {
		for key, value := range entries {
			tokens[template.SiteToken(dictionary, key)] = value
		}
	}

	now := time.Now().Format(time.RFC3339)
	modified := make(map[string]bool)

	p.mu.Lock()
	for _, group := range p.app.ExportGroups {
		for _, export := range group.Exports {
			if !selected[fmt.Sprintf("%s-%s", group.Name, export.Name)] {
				continue
			}
			value := template.ReplaceTokens(export.Value, tokens)
			entry := cluster.ExportEntry{
				Value:       value,
				Level:       LevelApplication,
				UpdatedTime: now,
			}
			p.groupLocked(group.Name)[export.Name] = []cluster.ExportEntry{entry}
			modified[group.Name] = true
		}
	}
	snapshots := p.snapshotLocked(modified)
	p.mu.Unlock()

	p.publishGroups(snapshots)
}

// PublishComponentExports resolves the component-level export templates of
// a role against the ports and host one container reported. Each container
// owns at most one entry per export; re-reports update it in place.
func (p *Publisher) PublishComponentExports(ports map[string]string, containerID, role, host string) {
	component := p.app.Component(role)
	if component == nil {
		return
	}
	selected := component.CompExportSet()
	if len(selected) == 0 || len(ports) == 0 {
		return
	}

	tokens := map[string]string{template.HostToken(role): host}
	for portName, value := range ports {
		tokens[template.PortToken(portName)] = value
	}

	tag := p.tags.GetTag(role, containerID)
	now := time.Now().Format(time.RFC3339)
	modified := make(map[string]bool)

	p.mu.Lock()
	for _, group := range p.app.ExportGroups {
		for _, export := range group.Exports {
			if !selected[fmt.Sprintf("%s-%s", group.Name, export.Name)] {
				continue
			}
			value := template.ReplaceTokens(export.Value, tokens)
			if value == export.Value {
				// Nothing this container reported applies to the template.
				continue
			}
			entry := cluster.ExportEntry{
				Value:       value,
				ContainerID: containerID,
				Level:       LevelComponent,
				Tag:         tag,
				UpdatedTime: now,
			}
			p.upsertLocked(group.Name, export.Name, entry)
			p.indexLocked(containerID, group.Name, export.Name)
			modified[group.Name] = true
		}
	}
	snapshots := p.snapshotLocked(modified)
	p.mu.Unlock()

	p.publishGroups(snapshots)
}

// ContainerCompleted withdraws every export entry the container
// contributed and republishes the affected groups.
func (p *Publisher) ContainerCompleted(containerID string) {
	p.mu.Lock()
	refs := p.containerIndex[containerID]
	delete(p.containerIndex, containerID)

	modified := make(map[string]bool)
	for _, ref := range refs {
		group, ok := p.groups[ref.group]
		if !ok {
			continue
		}
		entries := group[ref.name]
		kept := entries[:0]
		for _, entry := range entries {
			if entry.ContainerID != containerID {
				kept = append(kept, entry)
			}
		}
		if len(kept) == 0 {
			delete(group, ref.name)
		} else {
			group[ref.name] = kept
		}
		modified[ref.group] = true
	}
	snapshots := p.snapshotLocked(modified)
	p.mu.Unlock()

	if len(refs) > 0 {
		logging.Info("Exports", "Withdrew %d export entries of completed container %s", len(refs), containerID)
	}
	p.publishGroups(snapshots)
}

// Exports returns a snapshot of the named group, for status surfaces and
// tests.
func (p *Publisher) Exports(group string) map[string][]cluster.ExportEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot := p.snapshotLocked(map[string]bool{group: true})
	return snapshot[group]
}

// hostTokens maps ${<ROLE>_HOST} to the first live host of each role.
func (p *Publisher) hostTokens() map[string]string {
	tokens := make(map[string]string)
	for role, hosts := range p.state.RoleHosts() {
		if len(hosts) > 0 {
			tokens[template.HostToken(role)] = hosts[0]
		}
	}
	return tokens
}

func (p *Publisher) groupLocked(name string) map[string][]cluster.ExportEntry {
	group, ok := p.groups[name]
	if !ok {
		group = make(map[string][]cluster.ExportEntry)
		p.groups[name] = group
	}
	return group
}

func (p *Publisher) upsertLocked(groupName, exportName string, entry cluster.ExportEntry) {
	group := p.groupLocked(groupName)
	entries := group[exportName]
	for i := range entries {
		if entries[i].ContainerID == entry.ContainerID {
			entries[i] = entry
			return
		}
	}
	group[exportName] = append(entries, entry)
}

func (p *Publisher) indexLocked(containerID, groupName, exportName string) {
	ref := exportRef{group: groupName, name: exportName}
	for _, existing := range p.containerIndex[containerID] {
		if existing == ref {
			return
		}
	}
	p.containerIndex[containerID] = append(p.containerIndex[containerID], ref)
}

func (p *Publisher) snapshotLocked(names map[string]bool) map[string]map[string][]cluster.ExportEntry {
	snapshots := make(map[string]map[string][]cluster.ExportEntry, len(names))
	for name := range names {
		group := p.groups[name]
		copied := make(map[string][]cluster.ExportEntry, len(group))
		for exportName, entries := range group {
			copied[exportName] = append([]cluster.ExportEntry(nil), entries...)
		}
		snapshots[name] = copied
	}
	return snapshots
}

func (p *Publisher) publishGroups(snapshots map[string]map[string][]cluster.ExportEntry) {
	now := time.Now()
	for name, entries := range snapshots {
		p.sink.PublishExports(name, cluster.PublishedExports{
			Name:    name,
			Updated: now,
			Entries: entries,
		})
	}
}
