package descriptor

import (
	"fmt"
	"strings"
)

// Category classifies a component within the application.
type Category string

const (
	CategoryMaster Category = "MASTER"
	CategorySlave  Category = "SLAVE"
	CategoryClient Category = "CLIENT"
)

// Application is the root of an application descriptor. It declares the
// deployable components, the export groups they feed, the config
// dictionaries pushed down with every command, and the ordering rules
// between component commands.
type Application struct {
	Name            string `json:"name"`
	Version         string `json:"version,omitempty"`
	Comment         string `json:"comment,omitempty"`
	ExportedConfigs string `json:"exportedConfigs,omitempty"`

	Components    []*Component    `json:"components"`
	ExportGroups  []*ExportGroup  `json:"exportGroups,omitempty"`
	ConfigFiles   []*ConfigFile   `json:"configFiles,omitempty"`
	CommandOrders []*CommandOrder `json:"commandOrders,omitempty"`
	Packages      []*Package      `json:"packages,omitempty"`
}

// Component describes one deployable role of the application.
type Component struct {
	Name          string   `json:"name"`
	Category      Category `json:"category"`
	PublishConfig bool     `json:"publishConfig,omitempty"`
	AutoStart     bool     `json:"autoStartOnFailure,omitempty"`

	// AppExports and CompExports are comma-separated "<group>-<export>"
	// references selecting which exports this component contributes to.
	AppExports  string `json:"appExports,omitempty"`
	CompExports string `json:"compExports,omitempty"`

	MinInstanceCount int `json:"minInstanceCount,omitempty"`
	MaxInstanceCount int `json:"maxInstanceCount,omitempty"`

	CommandScript *CommandScript      `json:"commandScript,omitempty"`
	Commands      []*ComponentCommand `json:"commands,omitempty"`
}

// CommandScript points at the script an agent executes for every lifecycle
// command of the component.
type CommandScript struct {
	Script         string `json:"script"`
	ScriptType     string `json:"scriptType,omitempty"`
	TimeoutSeconds int64  `json:"timeout,omitempty"`
}

// ComponentCommand is a declarative alternative to CommandScript: a single
// named command with its own exec specification.
type ComponentCommand struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Exec string `json:"exec,omitempty"`
}

// ExportGroup is a named bundle of templated key/value exports.
type ExportGroup struct {
	Name    string    `json:"name"`
	Exports []*Export `json:"exports"`
}

// Export is one templated value inside an export group. The value may
// contain ${site.<dict>.<key>}, ${site.<port>} and ${<ROLE>_HOST} tokens.
type Export struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ConfigFile names a config dictionary the application expects to be
// rendered and shipped with each command.
type ConfigFile struct {
	DictionaryName string `json:"dictionaryName"`
	FileName       string `json:"fileName,omitempty"`
	Type           string `json:"type,omitempty"`
}

// Package is an installable artifact referenced by install commands.
type Package struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CommandOrder declares that a component command may only run once a
// prerequisite component has reached a given point, using the
// "<COMPONENT>-<COMMAND>" / "<COMPONENT>-<STATE>" notation of the
// descriptor format, e.g. Command "REGIONSERVER-START" Requires
// "HBASE_MASTER-STARTED".
type CommandOrder struct {
	Command  string `json:"command"`
	Requires string `json:"requires"`
}

// Component returns the named component or nil.
func (a *Application) Component(name string) *Component {
	for _, c := range a.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// IsMaster reports whether the named component is of MASTER category.
func (a *Application) IsMaster(name string) bool {
	c := a.Component(name)
	return c != nil && c.Category == CategoryMaster
}

// AnyMasterPublishes reports whether any MASTER component explicitly
// carries the publishConfig flag. When none does, config publication
// falls back to "any master may publish".
func (a *Application) AnyMasterPublishes() bool {
	for _, c := range a.Components {
		if c.PublishConfig && c.Category == CategoryMaster {
			return true
		}
	}
	return false
}

// ExportedConfigSet returns the set of whitelisted config dictionaries.
// A nil return means every dictionary may be forwarded.
func (a *Application) ExportedConfigSet() map[string]bool {
	return splitSet(a.ExportedConfigs)
}

// AppExportSet returns the component's application-level export
// references as a set of "<group>-<name>" strings.
func (c *Component) AppExportSet() map[string]bool {
	return splitSet(c.AppExports)
}

// CompExportSet returns the component's per-instance export references.
func (c *Component) CompExportSet() map[string]bool {
	return splitSet(c.CompExports)
}

// Command returns the declared command with the given name, or nil.
func (c *Component) Command(name string) *ComponentCommand {
	for _, cmd := range c.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func splitSet(csv string) map[string]bool {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			set[trimmed] = true
		}
	}
	return set
}

// Validate checks structural requirements that every descriptor must meet
// before the control plane will serve it.
func (a *Application) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if len(a.Components) == 0 {
		return fmt.Errorf("application %s declares no components", a.Name)
	}
	seen := make(map[string]bool)
	for _, c := range a.Components {
		if c.Name == "" {
			return fmt.Errorf("application %s has a component without a name", a.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate component %s", c.Name)
		}
		seen[c.Name] = true
		if c.MaxInstanceCount > 0 && c.MinInstanceCount > c.MaxInstanceCount {
			return fmt.Errorf("component %s: minInstanceCount %d exceeds maxInstanceCount %d",
				c.Name, c.MinInstanceCount, c.MaxInstanceCount)
		}
		if c.CommandScript == nil && len(c.Commands) == 0 {
			return fmt.Errorf("component %s declares neither a command script nor commands", c.Name)
		}
	}
	for _, order := range a.CommandOrders {
		component, _, err := SplitOrderRef(order.Command)
		if err != nil {
			return fmt.Errorf("command order %q: %w", order.Command, err)
		}
		if !seen[component] {
			return fmt.Errorf("command order references unknown component %s", component)
		}
		prereq, _, err := SplitOrderRef(order.Requires)
		if err != nil {
			return fmt.Errorf("command order requirement %q: %w", order.Requires, err)
		}
		if !seen[prereq] {
			return fmt.Errorf("command order requires unknown component %s", prereq)
		}
	}
	return nil
}

// SplitOrderRef splits a "<COMPONENT>-<TOKEN>" command-order reference on
// its last dash, since component names may themselves contain dashes.
func SplitOrderRef(ref string) (component, token string, err error) {
	idx := strings.LastIndex(ref, "-")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", fmt.Errorf("malformed order reference %q, expected <COMPONENT>-<TOKEN>", ref)
	}
	return ref[:idx], ref[idx+1:], nil
}
