package agent

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/otterc/incubator-slider/internal/cluster"
	"github.com/otterc/incubator-slider/internal/descriptor"
	"github.com/otterc/incubator-slider/internal/exports"
	"github.com/otterc/incubator-slider/internal/instance"
	"github.com/otterc/incubator-slider/internal/ordering"
	"github.com/otterc/incubator-slider/internal/ports"
	"github.com/otterc/incubator-slider/internal/tags"
	"github.com/otterc/incubator-slider/pkg/logging"
)

const (
	// OptionWaitHeartbeat is the per-role cluster option holding how many
	// heartbeats to absorb before issuing the first command.
	OptionWaitHeartbeat = "wait.heartbeat"

	// Per-container ports are reported with this marker appended to the
	// port name.
	perContainerMarker = "{PER_CONTAINER}"

	labelNotRecognized = "Label not recognized."
)

// Coordinator is the top-level handler of the agent protocol. It owns the
// instance-state table and composes the tag provider, port registry,
// export publisher and command-order graph into the registration and
// heartbeat exchanges.
type Coordinator struct {
	app       *descriptor.Application
	order     *ordering.CommandOrder
	state     cluster.StateAccessor
	queue     cluster.ActionQueue
	publisher *exports.Publisher
	ports     *ports.Registry
	tags      *tags.Provider
	instances *instance.Table
	metrics   *Metrics
}

// NewCoordinator wires a coordinator for the given application. The
// command-order graph is built once from the descriptor's rules.
func NewCoordinator(app *descriptor.Application, state cluster.StateAccessor, queue cluster.ActionQueue, sink cluster.Sink, reg prometheus.Registerer) (*Coordinator, error) {
	order, err := ordering.New(app.CommandOrders)
	if err != nil {
		return nil, fmt.Errorf("building command order graph: %w", err)
	}

	tagProvider := tags.NewProvider()
	instances := instance.NewTable()
	c := &Coordinator{
		app:       app,
		order:     order,
		state:     state,
		queue:     queue,
		publisher: exports.NewPublisher(app, state, sink, tagProvider),
		ports:     ports.NewRegistry(),
		tags:      tagProvider,
		instances: instances,
	}
	c.metrics = NewMetrics(reg, func() float64 { return float64(instances.Len()) })
	return c, nil
}

// Instances exposes the instance-state table, for the heartbeat monitor
// and status surfaces.
func (c *Coordinator) Instances() *instance.Table { return c.instances }

// Publisher exposes the export publisher.
func (c *Coordinator) Publisher() *exports.Publisher { return c.publisher }

// Ports exposes the port registry.
func (c *Coordinator) Ports() *ports.Registry { return c.ports }

// AddInstance records that a container has been allocated for a role, so
// the agent's upcoming registration is recognized. Returns the created
// state.
func (c *Coordinator) AddInstance(containerID, role, applicationID string) *instance.InstanceState {
	state := instance.New(role, containerID, applicationID)
	c.instances.Put(state)
	logging.Info("Coordinator", "Tracking instance %s", state.Label())
	return state
}

// RebuildEntry describes one surviving container when instance state is
// reconstructed after a control-plane restart.
type RebuildEntry struct {
	ContainerID   string
	Role          string
	ApplicationID string
	State         string
}

// RebuildInstanceStates repopulates the instance table from previously
// allocated containers. Entries with a parseable state resume there;
// others restart the lifecycle from scratch.
func (c *Coordinator) RebuildInstanceStates(entries []RebuildEntry) {
	for _, entry := range entries {
		state := c.AddInstance(entry.ContainerID, entry.Role, entry.ApplicationID)
		if parsed, ok := instance.ParseState(entry.State); ok {
			state.SetState(parsed)
		}
	}
	logging.Info("Coordinator", "Rebuilt %d instance states", len(entries))
}

// HandleRegistration answers an agent's registration. Unknown labels are
// rejected; known ones get their tag assigned and any ports or folders
// the agent already knows merged in.
func (c *Coordinator) HandleRegistration(reg *Register) *RegistrationResponse {
	containerID, role, err := instance.SplitLabel(reg.Label)
	if err != nil {
		c.metrics.Registrations.WithLabelValues("failed").Inc()
		logging.Warn("Coordinator", "Rejecting registration with bad label %q: %v", reg.Label, err)
		return &RegistrationResponse{Status: RegistrationFailed, Log: labelNotRecognized}
	}

	state, ok := c.instances.Get(reg.Label)
	if !ok {
		c.metrics.Registrations.WithLabelValues("failed").Inc()
		logging.Warn("Coordinator", "Rejecting registration for unknown label %s", reg.Label)
		return &RegistrationResponse{Status: RegistrationFailed, Log: labelNotRecognized}
	}

	if declared, ok := instance.ParseState(reg.ActualState); ok {
		state.SetState(declared)
	}
	state.Heartbeat(time.Now())

	if reg.Tag != "" {
		c.tags.RecordAssignedTag(role, containerID, reg.Tag)
	}
	tag := c.tags.GetTag(role, containerID)

	c.processAllocatedPorts(reg.AllocatedPorts, containerID, role, reg.PublicHostname)
	c.publisher.PublishFolderPaths(reg.LogFolders, containerID, role, reg.PublicHostname)
	c.queue.Put(cluster.RegisterInstanceAction{ContainerID: containerID, Role: role})

	c.metrics.Registrations.WithLabelValues("ok").Inc()
	logging.Info("Coordinator", "Registered %s with tag %s", reg.Label, tag)
	return &RegistrationResponse{Status: RegistrationOK, Tag: tag}
}

// HandleHeartbeat answers one heartbeat, merging reported data and
// deciding the next command. The response id always echoes the request's
// plus one. Every path returns a well-formed response.
func (c *Coordinator) HandleHeartbeat(hb *HeartBeat) *HeartBeatResponse {
	response := &HeartBeatResponse{ResponseID: hb.ResponseID + 1}

	containerID, role, err := instance.SplitLabel(hb.HostnameLabel)
	if err != nil {
		logging.Warn("Coordinator", "Terminating agent with bad heartbeat label %q: %v", hb.HostnameLabel, err)
		c.metrics.Terminations.Inc()
		response.TerminateAgent = true
		return response
	}
	state, ok := c.instances.Get(hb.HostnameLabel)
	if !ok {
		logging.Warn("Coordinator", "Terminating agent for unknown label %s", hb.HostnameLabel)
		c.metrics.Terminations.Inc()
		response.TerminateAgent = true
		return response
	}

	c.metrics.Heartbeats.WithLabelValues(role).Inc()
	state.Heartbeat(time.Now())

	for _, status := range hb.ComponentStatus {
		if len(status.Configs) == 0 {
			continue
		}
		c.publisher.PublishConfiguration(status.Configs, containerID, role)
		state.SetConfigReported(true)
	}

	for i, report := range hb.Reports {
		c.processAllocatedPorts(report.AllocatedPorts, containerID, role, hb.FQDN)
		c.publisher.PublishFolderPaths(report.Folders, containerID, role, hb.FQDN)
		if i > 0 {
			continue
		}
		cmd := instance.ParseCommand(report.RoleCommand)
		if cmd == instance.CommandNOP {
			continue
		}
		result := instance.ParseCommandResult(report.Status)
		c.metrics.CommandResults.WithLabelValues(cmd.String(), result.String()).Inc()
		state.ApplyCommandResult(result, cmd)
	}

	waitFor := c.state.ComponentOptionInt(role, OptionWaitHeartbeat, 0)
	if hb.ResponseID < int64(waitFor) {
		logging.Debug("Coordinator", "Holding commands for %s until heartbeat %d (now %d)", hb.HostnameLabel, waitFor, hb.ResponseID)
		return response
	}

	c.scheduleNextCommand(state, response)

	component := c.app.Component(role)
	idle := state.OutstandingCommand() == instance.CommandNOP && len(response.ExecutionCommands) == 0

	if idle && state.State() == instance.StateStarted && !state.ConfigReported() && c.app.IsMaster(role) {
		if status, err := c.buildStatusCommand(state, StatusCommandGetConfig); err == nil {
			response.StatusCommands = append(response.StatusCommands, status)
		} else {
			logging.Error("Coordinator", err, "Could not build GET_CONFIG for %s", hb.HostnameLabel)
		}
	}

	if idle && component != nil && component.AutoStart && state.State() == instance.StateStarted {
		response.RestartEnabled = true
	}

	if idle && state.State() == instance.StateInstallFailed {
		logging.Warn("Coordinator", "Instance %s failed to install, terminating agent", hb.HostnameLabel)
		c.metrics.Terminations.Inc()
		response.TerminateAgent = true
	}
	return response
}

// scheduleNextCommand computes and attaches the instance's next lifecycle
// command, honoring the command-order graph. An unmet dependency defers
// the command; it is re-evaluated on the next heartbeat. A failure while
// building the payload is recorded as a FAILED result and never escapes.
func (c *Coordinator) scheduleNextCommand(state *instance.InstanceState, response *HeartBeatResponse) {
	if state.OutstandingCommand() != instance.CommandNOP {
		return
	}
	if !c.state.IsLive() {
		logging.Debug("Coordinator", "Application not live, holding commands for %s", state.Label())
		return
	}
	next := state.NextCommand()
	if next == instance.CommandNOP {
		return
	}
	if !c.order.CanExecute(state.Role(), next, c.instances.All()) {
		logging.Debug("Coordinator", "Deferring %s for %s, dependency not satisfied", next, state.Label())
		return
	}

	execution, err := c.buildExecutionCommand(state, next)
	if err != nil {
		logging.Error("Coordinator", err, "Could not build %s for %s", next, state.Label())
		state.CommandIssued(next)
		state.ApplyCommandResult(instance.ResultFailed, next)
		return
	}

	state.CommandIssued(next)
	c.metrics.CommandsIssued.WithLabelValues(next.String()).Inc()
	logging.Info("Coordinator", "Issuing %s to %s", next, state.Label())
	response.ExecutionCommands = append(response.ExecutionCommands, execution)
}

// processAllocatedPorts merges reported ports into the registry, tells
// the cluster state the endpoint is resolvable, and feeds the component
// export templates. Port names carrying the per-container marker never
// reach the shared map.
func (c *Coordinator) processAllocatedPorts(allocated map[string]string, containerID, role, host string) {
	if len(allocated) == 0 {
		return
	}
	clean := make(map[string]string, len(allocated))
	for name, value := range allocated {
		shared := true
		if strings.Contains(name, perContainerMarker) {
			name = strings.TrimSpace(strings.ReplaceAll(name, perContainerMarker, ""))
			shared = false
		}
		c.ports.Record(containerID, name, value, shared)
		clean[name] = value
		if port, err := strconv.Atoi(value); err == nil {
			c.state.EndpointResolved(containerID, role, name, port)
		}
	}
	c.queue.Put(cluster.RegisterInstanceAction{ContainerID: containerID, Role: role})
	c.publisher.PublishComponentExports(clean, containerID, role, host)
}

// NotifyContainerCompleted withdraws everything attributable to a
// finished container: its instance states, tag, ports and export
// entries.
func (c *Coordinator) NotifyContainerCompleted(containerID string) {
	removed := c.instances.RemoveByContainer(containerID)
	for _, state := range removed {
		c.tags.ReleaseTag(state.Role(), containerID)
	}
	c.ports.ReleaseContainer(containerID)
	c.publisher.ContainerCompleted(containerID)
	logging.Info("Coordinator", "Container %s completed, removed %d instances", containerID, len(removed))
}

// InstanceLost handles an instance evicted by the heartbeat monitor:
// per-container state is withdrawn and a replacement container is
// requested from the scheduler.
func (c *Coordinator) InstanceLost(state *instance.InstanceState) {
	containerID := state.ContainerID()
	c.tags.ReleaseTag(state.Role(), containerID)
	c.ports.ReleaseContainer(containerID)
	c.publisher.ContainerCompleted(containerID)
	c.metrics.LostContainers.Inc()
	c.queue.Put(cluster.ContainerLossAction{ContainerID: containerID, Role: state.Role()})
	logging.Warn("Coordinator", "Instance %s lost, requesting replacement container", state.Label())
}
