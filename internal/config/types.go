package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the top-level configuration of the control plane.
type ServerConfig struct {
	Server    ListenConfig    `yaml:"server"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
}

// ListenConfig defines where the agent endpoints are served.
type ListenConfig struct {
	Host string `yaml:"host,omitempty"` // Host to bind to (default: all interfaces)
	Port int    `yaml:"port,omitempty"` // Port for the agent API (default: 8440)
}

// ClusterConfig identifies the application instance and carries the flat
// cluster option map handed down to commands. Site-scoped options use
// "site.<dictionary>.<key>" keys.
type ClusterConfig struct {
	Name           string            `yaml:"name"`
	ApplicationID  string            `yaml:"applicationId,omitempty"`
	DescriptorPath string            `yaml:"descriptor"`
	Options        map[string]string `yaml:"options,omitempty"`
}

// HeartbeatConfig holds the watchdog tunables. Both are reloaded at
// runtime when the config file changes.
type HeartbeatConfig struct {
	MonitorInterval time.Duration `yaml:"monitorInterval,omitempty"` // Sweep period (default: 30s)
	Timeout         time.Duration `yaml:"timeout,omitempty"`         // Eviction threshold (default: 3m)
	QueueCapacity   int           `yaml:"queueCapacity,omitempty"`   // Scheduler action queue size (default: 256)
}

// UnmarshalYAML accepts durations in time.ParseDuration notation ("30s",
// "3m"). Unset fields keep whatever value the struct already holds, so
// defaults survive partial files.
func (h *HeartbeatConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MonitorInterval string `yaml:"monitorInterval"`
		Timeout         string `yaml:"timeout"`
		QueueCapacity   *int   `yaml:"queueCapacity"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.MonitorInterval != "" {
		interval, err := time.ParseDuration(raw.MonitorInterval)
		if err != nil {
			return fmt.Errorf("invalid monitorInterval: %w", err)
		}
		h.MonitorInterval = interval
	}
	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		h.Timeout = timeout
	}
	if raw.QueueCapacity != nil {
		h.QueueCapacity = *raw.QueueCapacity
	}
	return nil
}

// GetDefaultConfig returns the built-in defaults, overridden by whatever
// the config file sets.
func GetDefaultConfig() ServerConfig {
	return ServerConfig{
		Server: ListenConfig{
			Port: 8440,
		},
		Heartbeat: HeartbeatConfig{
			MonitorInterval: 30 * time.Second,
			Timeout:         3 * time.Minute,
			QueueCapacity:   256,
		},
	}
}
