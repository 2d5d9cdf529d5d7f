// Package monitor runs the liveness watchdog over the instance-state
// table. It sweeps on its own schedule, independent of heartbeat
// handling, and hands stale instances to a loss handler for cleanup and
// container replacement.
package monitor

import (
	"sync"
	"time"

	"github.com/otterc/incubator-slider/internal/instance"
	"github.com/otterc/incubator-slider/pkg/logging"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 3 * time.Minute
)

// LossHandler receives instances the monitor evicted. Called outside the
// table lock, after the instance is already removed.
type LossHandler interface {
	InstanceLost(state *instance.InstanceState)
}

// HeartbeatMonitor periodically evicts instances whose agents stopped
// heartbeating. Sweeps hold the table's write lock, so they are mutually
// exclusive with heartbeat-side removals of the same label.
type HeartbeatMonitor struct {
	table   *instance.Table
	handler LossHandler

	mu       sync.Mutex
	interval time.Duration
	timeout  time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New builds a monitor. Zero durations fall back to the defaults.
func New(table *instance.Table, handler LossHandler, interval, timeout time.Duration) *HeartbeatMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HeartbeatMonitor{
		table:    table,
		handler:  handler,
		interval: interval,
		timeout:  timeout,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Call Stop to shut it down.
func (m *HeartbeatMonitor) Start() {
	go m.run()
}

func (m *HeartbeatMonitor) run() {
	defer close(m.done)

	interval := m.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info("HeartbeatMonitor", "Watchdog running, interval %s, timeout %s", interval, m.Timeout())
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.SweepOnce(now)
			if current := m.Interval(); current != interval {
				interval = current
				ticker.Reset(interval)
				logging.Info("HeartbeatMonitor", "Sweep interval now %s", interval)
			}
		}
	}
}

// SweepOnce evicts every instance whose last heartbeat is older than the
// timeout. Instance creation counts as a heartbeat, so an agent that
// never registers gets one timeout of startup grace and is then evicted
// like any other.
func (m *HeartbeatMonitor) SweepOnce(now time.Time) int {
	timeout := m.Timeout()
	removed := m.table.Sweep(func(label string, state *instance.InstanceState) bool {
		return now.Sub(state.LastHeartbeat()) > timeout
	})
	for _, state := range removed {
		logging.Warn("HeartbeatMonitor", "Instance %s missed heartbeats for over %s, evicting", state.Label(), timeout)
		m.handler.InstanceLost(state)
	}
	return len(removed)
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
func (m *HeartbeatMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

// Interval returns the current sweep interval.
func (m *HeartbeatMonitor) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// Timeout returns the current heartbeat timeout.
func (m *HeartbeatMonitor) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// SetInterval updates the sweep interval. The loop picks it up after the
// next tick.
func (m *HeartbeatMonitor) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = interval
}

// SetTimeout updates the heartbeat timeout, effective on the next sweep.
func (m *HeartbeatMonitor) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
}
