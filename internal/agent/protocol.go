// Package agent implements the control-plane side of the agent protocol:
// the registration and heartbeat exchange through which remote agents
// report state and receive lifecycle commands.
package agent

import (
	"github.com/otterc/incubator-slider/internal/descriptor"
)

// RegistrationStatus is the outcome of a registration attempt.
type RegistrationStatus string

const (
	RegistrationOK     RegistrationStatus = "OK"
	RegistrationFailed RegistrationStatus = "FAILED"
)

// Register is the first message an agent sends after its container
// starts. The label identifies which component instance it hosts.
type Register struct {
	Label          string            `json:"label"`
	ActualState    string            `json:"actualState,omitempty"`
	Tag            string            `json:"tag,omitempty"`
	PublicHostname string            `json:"publicHostname"`
	AllocatedPorts map[string]string `json:"allocatedPorts,omitempty"`
	LogFolders     map[string]string `json:"logFolders,omitempty"`
}

// RegistrationResponse acknowledges or rejects a registration. Tag is the
// stable symbolic identifier assigned to the instance.
type RegistrationResponse struct {
	Status RegistrationStatus `json:"responseStatus"`
	Tag    string             `json:"tag,omitempty"`
	Log    string             `json:"log,omitempty"`
}

// CommandReport carries the progress or outcome of a previously issued
// command, plus any ports and folders the component bound while running
// it.
type CommandReport struct {
	Role           string            `json:"role"`
	RoleCommand    string            `json:"roleCommand"`
	Status         string            `json:"status"`
	CommandID      string            `json:"commandId,omitempty"`
	AllocatedPorts map[string]string `json:"allocatedPorts,omitempty"`
	Folders        map[string]string `json:"folders,omitempty"`
}

// ComponentStatusReport carries the config dictionaries a component
// gathered in response to a GET_CONFIG status command.
type ComponentStatusReport struct {
	ComponentName string                       `json:"componentName"`
	Configs       map[string]map[string]string `json:"configurations,omitempty"`
}

// HeartBeat is the periodic poll from an agent. HostnameLabel carries the
// instance label, not an actual hostname.
type HeartBeat struct {
	ResponseID      int64                    `json:"responseId"`
	HostnameLabel   string                   `json:"hostname"`
	FQDN            string                   `json:"fqdn,omitempty"`
	Reports         []*CommandReport         `json:"reports,omitempty"`
	ComponentStatus []*ComponentStatusReport `json:"componentStatus,omitempty"`
}

// ExecutionCommand instructs the agent to run one lifecycle command. A
// START command carries the matching graceful STOP as StopCommand so the
// agent can wind the component down without another round trip.
type ExecutionCommand struct {
	CommandID      string                       `json:"commandId"`
	ClusterName    string                       `json:"clusterName"`
	Role           string                       `json:"role"`
	RoleCommand    string                       `json:"roleCommand"`
	Hostname       string                       `json:"hostname"`
	Script         string                       `json:"script"`
	ScriptType     string                       `json:"scriptType,omitempty"`
	Timeout        int64                        `json:"timeout"`
	Packages       []*descriptor.Package        `json:"packages,omitempty"`
	Configurations map[string]map[string]string `json:"configurations"`
	StopCommand    *ExecutionCommand            `json:"stopCommand,omitempty"`
}

// Status command kinds.
const (
	StatusCommandStatus    = "STATUS"
	StatusCommandGetConfig = "GET_CONFIG"
)

// StatusCommand asks the agent to report component health or gather its
// effective configuration.
type StatusCommand struct {
	ClusterName    string                       `json:"clusterName"`
	Role           string                       `json:"role"`
	RoleCommand    string                       `json:"roleCommand"`
	Configurations map[string]map[string]string `json:"configurations,omitempty"`
}

// HeartBeatResponse answers one heartbeat. ResponseID always echoes the
// request's id plus one; agents use the sequence to detect lost
// responses.
type HeartBeatResponse struct {
	ResponseID        int64               `json:"responseId"`
	ExecutionCommands []*ExecutionCommand `json:"executionCommands,omitempty"`
	StatusCommands    []*StatusCommand    `json:"statusCommands,omitempty"`
	RestartEnabled    bool                `json:"restartEnabled"`
	TerminateAgent    bool                `json:"terminateAgent"`
}
