// Package ordering implements the command-order dependency graph gating
// when a component's lifecycle command may run relative to other
// components.
//
// The graph is built once from the application descriptor and never
// mutated afterwards, so lookups need no synchronization. An edge means
// "this component's command may not run until the prerequisite component
// has at least one instance that completed the command producing the
// required state". Gating on any
// instance (rather than all instances) of the prerequisite is the
// inherited behavior for scaled components; see DESIGN.md.
package ordering

import (
	"fmt"

	"github.com/otterc/incubator-slider/internal/descriptor"
	"github.com/otterc/incubator-slider/internal/instance"
)

// edge is one prerequisite of a (component, command) pair. When the
// required state is a command outcome the matching command is resolved at
// build time, so satisfaction is judged by command completion rather than
// exact state: a prerequisite that moved past the required state still
// satisfies the edge.
type edge struct {
	component string
	command   instance.Command

	requiresComponent string
	requiresState     instance.State
	requiresCommand   instance.Command
	byCommand         bool
}

// CommandOrder answers "may this command run now" queries against the
// live instance states.
type CommandOrder struct {
	edges []edge
}

// New builds the graph from descriptor order rules. Rules referencing
// unknown commands or states are rejected; unknown components are caught
// earlier by descriptor validation.
func New(rules []*descriptor.CommandOrder) (*CommandOrder, error) {
	order := &CommandOrder{}
	for _, rule := range rules {
		component, commandToken, err := descriptor.SplitOrderRef(rule.Command)
		if err != nil {
			return nil, err
		}
		command := instance.ParseCommand(commandToken)
		if command == instance.CommandNOP {
			return nil, fmt.Errorf("command order %q: unsupported command %q", rule.Command, commandToken)
		}

		requiresComponent, stateToken, err := descriptor.SplitOrderRef(rule.Requires)
		if err != nil {
			return nil, err
		}
		requiresState, ok := instance.ParseState(stateToken)
		if !ok {
			return nil, fmt.Errorf("command order %q: unknown required state %q", rule.Requires, stateToken)
		}

		requiresCommand, byCommand := requiresState.ProducedBy()
		order.edges = append(order.edges, edge{
			component:         component,
			command:           command,
			requiresComponent: requiresComponent,
			requiresState:     requiresState,
			requiresCommand:   requiresCommand,
			byCommand:         byCommand,
		})
	}
	return order, nil
}

// CanExecute reports whether the command may run for the component given
// the current instance states. Every applicable edge must be satisfied by
// at least one instance of its prerequisite component; a prerequisite
// with zero live instances blocks. Components without applicable edges
// are trivially allowed.
func (o *CommandOrder) CanExecute(component string, cmd instance.Command, states []*instance.InstanceState) bool {
	for _, e := range o.edges {
		if e.component != component || e.command != cmd {
			continue
		}
		satisfied := false
		for _, s := range states {
			if s.Role() != e.requiresComponent {
				continue
			}
			if e.byCommand && s.CommandCompleted(e.requiresCommand) {
				satisfied = true
				break
			}
			if !e.byCommand && s.ReachedState(e.requiresState) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

// Edges returns the number of order rules held by the graph.
func (o *CommandOrder) Edges() int {
	return len(o.edges)
}
