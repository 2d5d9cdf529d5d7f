package descriptor

import (
	"fmt"
	"os"

	"github.com/otterc/incubator-slider/pkg/logging"

	"sigs.k8s.io/yaml"
)

// Load reads an application descriptor from disk. Both YAML and JSON
// descriptors are accepted; YAML input is converted to JSON before
// unmarshalling so a single set of struct tags covers both.
func Load(path string) (*Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read application descriptor %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals and validates a descriptor document.
func Parse(data []byte) (*Application, error) {
	var app Application
	if err := yaml.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("malformed application descriptor: %w", err)
	}
	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("invalid application descriptor: %w", err)
	}
	logging.Info("Descriptor", "Loaded application %s with %d components, %d export groups, %d order rules",
		app.Name, len(app.Components), len(app.ExportGroups), len(app.CommandOrders))
	return &app, nil
}
