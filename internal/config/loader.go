package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/otterc/incubator-slider/pkg/logging"
)

// LoadConfig reads the server configuration file. A missing file yields
// the defaults; a malformed one is an error.
func LoadConfig(path string) (ServerConfig, error) {
	config := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config file at %s, using defaults", path)
			return config, nil
		}
		return ServerConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return ServerConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return ServerConfig{}, err
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	return config, nil
}

// Validate rejects configurations the server cannot run with.
func (c *ServerConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Heartbeat.MonitorInterval < 0 || c.Heartbeat.Timeout < 0 {
		return fmt.Errorf("heartbeat intervals must not be negative")
	}
	if c.Heartbeat.QueueCapacity < 0 {
		return fmt.Errorf("queue capacity must not be negative")
	}
	return nil
}
