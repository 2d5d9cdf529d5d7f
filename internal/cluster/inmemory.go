package cluster

import (
	"strconv"
	"sync"

	"github.com/otterc/incubator-slider/pkg/logging"
)

// InMemoryState is a StateAccessor backed by plain maps. It is the
// accessor used by tests and by standalone serve mode, where no external
// resource manager feeds cluster state.
type InMemoryState struct {
	mu sync.RWMutex

	live      bool
	appName   string
	amHost    string
	roleHosts map[string][]string
	options   map[string]string
}

// NewInMemoryState creates a live accessor for the named application.
func NewInMemoryState(appName, amHost string) *InMemoryState {
	return &InMemoryState{
		live:      true,
		appName:   appName,
		amHost:    amHost,
		roleHosts: make(map[string][]string),
		options:   make(map[string]string),
	}
}

func (s *InMemoryState) IsLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// SetLive flips the liveness flag.
func (s *InMemoryState) SetLive(live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
}

func (s *InMemoryState) ApplicationName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appName
}

func (s *InMemoryState) AMHostname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.amHost
}

func (s *InMemoryState) RoleHosts() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.roleHosts))
	for role, hosts := range s.roleHosts {
		out[role] = append([]string(nil), hosts...)
	}
	return out
}

// AddRoleHost records a live container host for a role.
func (s *InMemoryState) AddRoleHost(role, host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleHosts[role] = append(s.roleHosts[role], host)
}

// RemoveRoleHost drops one occurrence of a host from a role.
func (s *InMemoryState) RemoveRoleHost(role, host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hosts := s.roleHosts[role]
	for i, h := range hosts {
		if h == host {
			s.roleHosts[role] = append(hosts[:i], hosts[i+1:]...)
			return
		}
	}
}

func (s *InMemoryState) GlobalOptions() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.options))
	for k, v := range s.options {
		out[k] = v
	}
	return out
}

// SetOption sets one cluster option.
func (s *InMemoryState) SetOption(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[key] = value
}

func (s *InMemoryState) MandatoryOption(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.options[key]
	if !ok || value == "" {
		return "", &ConfigurationError{Option: key}
	}
	return value, nil
}

func (s *InMemoryState) ComponentOptionInt(role, key string, def int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.options["component."+role+"."+key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

// SetComponentOption sets a per-role option.
func (s *InMemoryState) SetComponentOption(role, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options["component."+role+"."+key] = value
}

func (s *InMemoryState) EndpointResolved(containerID, role, portName string, port int) {
	logging.Debug("ClusterState", "Endpoint resolved: %s/%s %s=%d", containerID, role, portName, port)
}

// InMemoryQueue is a bounded, non-blocking ActionQueue. When full, the
// newest action is dropped with a warning rather than stalling a
// heartbeat handler.
type InMemoryQueue struct {
	actions chan Action
}

// NewInMemoryQueue creates a queue with the given capacity.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	return &InMemoryQueue{actions: make(chan Action, capacity)}
}

func (q *InMemoryQueue) Put(action Action) {
	select {
	case q.actions <- action:
	default:
		logging.Warn("ActionQueue", "Queue full, dropping %s action", action.ActionName())
	}
}

// Take returns the next queued action, or nil when the queue is empty.
func (q *InMemoryQueue) Take() Action {
	select {
	case action := <-q.actions:
		return action
	default:
		return nil
	}
}

// Drain returns all currently queued actions.
func (q *InMemoryQueue) Drain() []Action {
	var out []Action
	for {
		action := q.Take()
		if action == nil {
			return out
		}
		out = append(out, action)
	}
}

// InMemorySink stores the latest published bundle per name.
type InMemorySink struct {
	mu             sync.RWMutex
	configurations map[string]PublishedConfiguration
	exports        map[string]PublishedExports
}

// NewInMemorySink creates an empty sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{
		configurations: make(map[string]PublishedConfiguration),
		exports:        make(map[string]PublishedExports),
	}
}

func (s *InMemorySink) PublishConfiguration(name string, configuration PublishedConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configurations[name] = configuration
}

func (s *InMemorySink) PublishExports(name string, exports PublishedExports) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports[name] = exports
}

// Configuration returns the latest published configuration bundle.
func (s *InMemorySink) Configuration(name string) (PublishedConfiguration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.configurations[name]
	return c, ok
}

// Exports returns the latest published export bundle.
func (s *InMemorySink) Exports(name string) (PublishedExports, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exports[name]
	return e, ok
}
