package agent

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks protocol traffic and command flow.
type Metrics struct {
	Registrations  *prometheus.CounterVec
	Heartbeats     *prometheus.CounterVec
	CommandsIssued *prometheus.CounterVec
	CommandResults *prometheus.CounterVec
	Terminations   prometheus.Counter
	LostContainers prometheus.Counter
	LiveInstances  prometheus.GaugeFunc
}

// NewMetrics registers the protocol metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer, liveInstances func() float64) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slider",
			Subsystem: "agent",
			Name:      "registrations_total",
			Help:      "Agent registration attempts by outcome.",
		}, []string{"status"}),
		Heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slider",
			Subsystem: "agent",
			Name:      "heartbeats_total",
			Help:      "Heartbeats received by role.",
		}, []string{"role"}),
		CommandsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slider",
			Subsystem: "agent",
			Name:      "commands_issued_total",
			Help:      "Lifecycle commands attached to heartbeat responses.",
		}, []string{"command"}),
		CommandResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slider",
			Subsystem: "agent",
			Name:      "command_results_total",
			Help:      "Command results reported by agents.",
		}, []string{"command", "result"}),
		Terminations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slider",
			Subsystem: "agent",
			Name:      "terminations_total",
			Help:      "Responses instructing an agent to terminate.",
		}),
		LostContainers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slider",
			Subsystem: "agent",
			Name:      "lost_containers_total",
			Help:      "Containers evicted after missing heartbeats.",
		}),
		LiveInstances: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "slider",
			Subsystem: "agent",
			Name:      "live_instances",
			Help:      "Component instances currently tracked.",
		}, liveInstances),
	}
	reg.MustRegister(
		m.Registrations,
		m.Heartbeats,
		m.CommandsIssued,
		m.CommandResults,
		m.Terminations,
		m.LostContainers,
		m.LiveInstances,
	)
	return m
}
