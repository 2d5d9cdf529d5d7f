package instance

// State is the lifecycle state of one deployed component instance.
type State int

const (
	StateUninstalled State = iota
	StateInstalling
	StateInstalled
	StateInstallFailed
	StateStarting
	StateStarted
	StateStopping
	StateStopped
	StateFailed
)

// String makes State satisfy fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninstalled:
		return "UNINSTALLED"
	case StateInstalling:
		return "INSTALLING"
	case StateInstalled:
		return "INSTALLED"
	case StateInstallFailed:
		return "INSTALL_FAILED"
	case StateStarting:
		return "STARTING"
	case StateStarted:
		return "STARTED"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ParseState maps an agent-reported state name to a State. Unrecognized
// names return ok=false; callers treat that as "no override".
func ParseState(name string) (State, bool) {
	switch name {
	case "UNINSTALLED", "INIT":
		return StateUninstalled, true
	case "INSTALLING":
		return StateInstalling, true
	case "INSTALLED":
		return StateInstalled, true
	case "INSTALL_FAILED":
		return StateInstallFailed, true
	case "STARTING":
		return StateStarting, true
	case "STARTED":
		return StateStarted, true
	case "STOPPING":
		return StateStopping, true
	case "STOPPED":
		return StateStopped, true
	case "FAILED":
		return StateFailed, true
	default:
		return StateUninstalled, false
	}
}

// Command is the closed set of lifecycle commands the coordinator issues.
type Command int

const (
	CommandNOP Command = iota
	CommandInstall
	CommandStart
	CommandStop
)

func (c Command) String() string {
	switch c {
	case CommandNOP:
		return "NOP"
	case CommandInstall:
		return "INSTALL"
	case CommandStart:
		return "START"
	case CommandStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// ProducedBy returns the command whose successful completion leaves an
// instance in this state. Only command-outcome states map to a command.
func (s State) ProducedBy() (Command, bool) {
	switch s {
	case StateInstalled:
		return CommandInstall, true
	case StateStarted:
		return CommandStart, true
	case StateStopped:
		return CommandStop, true
	}
	return CommandNOP, false
}

// ParseCommand maps an agent-reported command name to a Command.
func ParseCommand(name string) Command {
	switch name {
	case "INSTALL":
		return CommandInstall
	case "START":
		return CommandStart
	case "STOP":
		return CommandStop
	default:
		return CommandNOP
	}
}

// CommandResult is the agent-reported outcome of an issued command.
type CommandResult int

const (
	ResultInProgress CommandResult = iota
	ResultCompleted
	ResultFailed
)

func (r CommandResult) String() string {
	switch r {
	case ResultInProgress:
		return "IN_PROGRESS"
	case ResultCompleted:
		return "COMPLETED"
	case ResultFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ParseCommandResult maps an agent-reported status to a CommandResult.
func ParseCommandResult(status string) CommandResult {
	switch status {
	case "COMPLETED":
		return ResultCompleted
	case "FAILED":
		return ResultFailed
	default:
		return ResultInProgress
	}
}
