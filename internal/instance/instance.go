package instance

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/otterc/incubator-slider/pkg/logging"
)

// labelSeparator joins container id and role into an instance label.
const labelSeparator = "___"

// Label builds the composite key identifying one deployed component
// instance, e.g. "container_01___HBASE_MASTER".
func Label(containerID, role string) string {
	return containerID + labelSeparator + role
}

// SplitLabel extracts container id and role from a label.
func SplitLabel(label string) (containerID, role string, err error) {
	idx := strings.Index(label, labelSeparator)
	if idx < 0 {
		return "", "", fmt.Errorf("malformed label %q", label)
	}
	return label[:idx], label[idx+len(labelSeparator):], nil
}

// InstanceState is the mutable per-label record of one component
// instance. The transport serializes heartbeats per label, so a single
// mutex is enough to protect against the monitor reading concurrently.
type InstanceState struct {
	mu sync.RWMutex

	role          string
	containerID   string
	applicationID string

	state          State
	lastCommand    Command
	lastResult     CommandResult
	lastHeartbeat  time.Time
	configReported bool
	startFailures  int
}

// New creates an instance record in its initial UNINSTALLED state. The
// creation time counts as the first liveness signal, so an agent that
// never registers is declared lost once the heartbeat timeout elapses.
func New(role, containerID, applicationID string) *InstanceState {
	return &InstanceState{
		role:          role,
		containerID:   containerID,
		applicationID: applicationID,
		state:         StateUninstalled,
		lastCommand:   CommandNOP,
		lastHeartbeat: time.Now(),
	}
}

// Label returns the composite key for this instance.
func (s *InstanceState) Label() string {
	return Label(s.containerID, s.role)
}

// Role returns the component role name.
func (s *InstanceState) Role() string { return s.role }

// ContainerID returns the owning container id.
func (s *InstanceState) ContainerID() string { return s.containerID }

// ApplicationID returns the application this instance belongs to.
func (s *InstanceState) ApplicationID() string { return s.applicationID }

// Heartbeat records liveness. It never changes the lifecycle state.
func (s *InstanceState) Heartbeat(ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = ts
}

// LastHeartbeat returns the most recent liveness timestamp.
func (s *InstanceState) LastHeartbeat() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastHeartbeat
}

// State returns the current lifecycle state.
func (s *InstanceState) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState overrides the computed state with an agent-reported one. Used
// at registration when an agent survives a control-plane restart and
// reports the state it is actually in.
func (s *InstanceState) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// ConfigReported reports whether this instance has answered a GET_CONFIG
// status command.
func (s *InstanceState) ConfigReported() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configReported
}

// SetConfigReported marks the config-retrieved flag.
func (s *InstanceState) SetConfigReported(reported bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configReported = reported
}

// OutstandingCommand returns the command issued but not yet concluded,
// CommandNOP when idle.
func (s *InstanceState) OutstandingCommand() Command {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCommand
}

// NextCommand computes the command the coordinator should issue next.
// It is a pure function of the current state: repeated calls without an
// intervening CommandIssued or ApplyCommandResult return the same value.
func (s *InstanceState) NextCommand() Command {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.state {
	case StateUninstalled:
		return CommandInstall
	case StateInstalled:
		return CommandStart
	default:
		// Transitional, terminal and failed states have no next command;
		// the coordinator decides whether to terminate the agent.
		return CommandNOP
	}
}

// CommandIssued records an outstanding command and advances the state to
// the matching transitional state.
func (s *InstanceState) CommandIssued(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCommand = cmd
	switch cmd {
	case CommandInstall:
		s.state = StateInstalling
	case CommandStart:
		s.state = StateStarting
	case CommandStop:
		s.state = StateStopping
	}
	logging.Debug("InstanceState", "Issued %s to %s, now %s", cmd, s.Label(), s.state)
}

// ApplyCommandResult drives the state machine with an agent-reported
// outcome. IN_PROGRESS reports leave the state untouched. A failed START
// drops the instance back to INSTALLED so the start is retried on a later
// heartbeat.
func (s *InstanceState) ApplyCommandResult(result CommandResult, cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastResult = result
	if result == ResultInProgress {
		return
	}
	s.lastCommand = CommandNOP

	switch {
	case cmd == CommandInstall && result == ResultCompleted:
		s.state = StateInstalled
	case cmd == CommandInstall && result == ResultFailed:
		s.state = StateInstallFailed
	case cmd == CommandStart && result == ResultCompleted:
		s.state = StateStarted
	case cmd == CommandStart && result == ResultFailed:
		s.startFailures++
		s.state = StateInstalled
	case cmd == CommandStop && result == ResultCompleted:
		s.state = StateStopped
	case cmd == CommandStop && result == ResultFailed:
		s.state = StateFailed
	}
	logging.Debug("InstanceState", "Result %s for %s on %s, now %s", result, cmd, s.Label(), s.state)
}

// StartFailures returns how many START attempts have failed so far.
func (s *InstanceState) StartFailures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startFailures
}

// CommandCompleted reports whether the given command has completed for
// this instance, i.e. the instance has reached (or passed) the state that
// command produces. Used by the command-order graph.
func (s *InstanceState) CommandCompleted(cmd Command) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch cmd {
	case CommandInstall:
		switch s.state {
		case StateInstalled, StateStarting, StateStarted, StateStopping, StateStopped:
			return true
		}
	case CommandStart:
		return s.state == StateStarted
	case CommandStop:
		return s.state == StateStopped
	}
	return false
}

// ReachedState reports whether the instance is currently in the given
// state. Command-order prerequisites are expressed in terms of states.
func (s *InstanceState) ReachedState(state State) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == state
}
