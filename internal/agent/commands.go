package agent

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/otterc/incubator-slider/internal/descriptor"
	"github.com/otterc/incubator-slider/internal/instance"
	"github.com/otterc/incubator-slider/internal/template"
)

const (
	// Cluster option holding the user components run as. Mandatory.
	OptionAppUser = "site.global.app_user"

	// Site-scoped cluster options use "site.<dictionary>.<key>" keys.
	siteOptionPrefix = "site."

	// DefaultCommandTimeout bounds script execution when the descriptor
	// does not set one, in seconds.
	DefaultCommandTimeout = 600
)

// buildExecutionCommand builds the payload for one lifecycle command of
// an instance. A START command carries its graceful STOP alongside.
func (c *Coordinator) buildExecutionCommand(state *instance.InstanceState, cmd instance.Command) (*ExecutionCommand, error) {
	component := c.app.Component(state.Role())
	if component == nil {
		return nil, fmt.Errorf("no component %q in application %s", state.Role(), c.app.Name)
	}
	if component.CommandScript == nil {
		return nil, fmt.Errorf("component %q has no command script", component.Name)
	}

	configurations, err := c.buildCommandConfigurations(state)
	if err != nil {
		return nil, fmt.Errorf("building configurations for %s %s: %w", state.Label(), cmd, err)
	}

	timeout := component.CommandScript.TimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	execution := &ExecutionCommand{
		CommandID:      uuid.NewString(),
		ClusterName:    c.state.ApplicationName(),
		Role:           state.Role(),
		RoleCommand:    cmd.String(),
		Hostname:       state.Label(),
		Script:         component.CommandScript.Script,
		ScriptType:     scriptTypeOf(component.CommandScript),
		Timeout:        timeout,
		Configurations: configurations,
	}
	switch cmd {
	case instance.CommandInstall:
		execution.Packages = c.app.Packages
	case instance.CommandStart:
		execution.StopCommand = &ExecutionCommand{
			CommandID:      uuid.NewString(),
			ClusterName:    execution.ClusterName,
			Role:           execution.Role,
			RoleCommand:    instance.CommandStop.String(),
			Hostname:       execution.Hostname,
			Script:         execution.Script,
			ScriptType:     execution.ScriptType,
			Timeout:        timeout,
			Configurations: configurations,
		}
	}
	return execution, nil
}

// buildStatusCommand builds a STATUS or GET_CONFIG request for an
// instance.
func (c *Coordinator) buildStatusCommand(state *instance.InstanceState, roleCommand string) (*StatusCommand, error) {
	configurations, err := c.buildCommandConfigurations(state)
	if err != nil {
		return nil, fmt.Errorf("building configurations for %s %s: %w", state.Label(), roleCommand, err)
	}
	return &StatusCommand{
		ClusterName:    c.state.ApplicationName(),
		Role:           state.Role(),
		RoleCommand:    roleCommand,
		Configurations: configurations,
	}, nil
}

// buildCommandConfigurations assembles the config dictionaries shipped
// with every command: the site-scoped cluster options, substituted
// against the standard token map, topped up with the per-container
// defaults and any ports the container already bound, then de-referenced
// one level.
func (c *Coordinator) buildCommandConfigurations(state *instance.InstanceState) (map[string]map[string]string, error) {
	tokens, err := c.standardTokenMap(state)
	if err != nil {
		return nil, err
	}

	configurations := map[string]map[string]string{"global": {}}
	for key, value := range c.state.GlobalOptions() {
		if !strings.HasPrefix(key, siteOptionPrefix) {
			continue
		}
		rest := strings.TrimPrefix(key, siteOptionPrefix)
		dictionary, optionKey, found := strings.Cut(rest, ".")
		if !found {
			continue
		}
		bucket, ok := configurations[dictionary]
		if !ok {
			bucket = make(map[string]string)
			configurations[dictionary] = bucket
		}
		bucket[optionKey] = template.ReplaceTokens(value, tokens)
	}

	c.addDefaultGlobalConfig(configurations["global"], state)
	for portName, value := range c.ports.ContainerPorts(state.ContainerID()) {
		configurations["global"][portName] = value
	}

	template.Dereference(configurations)
	return configurations, nil
}

// standardTokenMap builds the substitution tokens every command config
// value may use. Role host tokens carry the comma-joined live hosts of
// each role.
func (c *Coordinator) standardTokenMap(state *instance.InstanceState) (map[string]string, error) {
	user, err := c.state.MandatoryOption(OptionAppUser)
	if err != nil {
		return nil, err
	}

	tokens := map[string]string{
		"${USER_NAME}":      user,
		"${CLUSTER_NAME}":   c.state.ApplicationName(),
		"${APP_NAME}":       c.app.Name,
		"${COMPONENT_NAME}": state.Role(),
		"${CONTAINER_ID}":   state.ContainerID(),
		"${AM_HOST}":        c.state.AMHostname(),
	}

	options := c.state.GlobalOptions()
	if fs := options["site.core-site.fs.defaultFS"]; fs != "" {
		tokens["${NN_URI}"] = fs
		tokens["${NN_HOST}"] = hostOfURI(fs)
	}
	if zk := options["site.global.zk_hosts"]; zk != "" {
		tokens["${ZK_HOST}"] = zk
	}
	if javaHome := options["site.global.java_home"]; javaHome != "" {
		tokens["${JAVA_HOME}"] = javaHome
	}

	for role, hosts := range c.state.RoleHosts() {
		if len(hosts) > 0 {
			tokens[template.HostToken(role)] = strings.Join(hosts, ",")
		}
	}
	return tokens, nil
}

// addDefaultGlobalConfig fills in the per-container globals agents expect
// for laying out their working directories. Explicit cluster options win.
func (c *Coordinator) addDefaultGlobalConfig(global map[string]string, state *instance.InstanceState) {
	tag := c.tags.GetTag(state.Role(), state.ContainerID())
	defaults := map[string]string{
		"app_log_dir":       "${AGENT_LOG_ROOT}",
		"app_pid_dir":       "${AGENT_WORK_ROOT}/app/run",
		"app_install_dir":   "${AGENT_WORK_ROOT}/app/install",
		"app_root":          "${AGENT_WORK_ROOT}/app/definition",
		"app_container_id":  state.ContainerID(),
		"app_container_tag": tag,
		"pid_file":          "${AGENT_WORK_ROOT}/app/run/component.pid",
	}
	for key, value := range defaults {
		if _, exists := global[key]; !exists {
			global[key] = value
		}
	}
}

// hostOfURI extracts the host from a filesystem URI such as
// hdfs://namenode:8020, falling back to the raw value.
func hostOfURI(uri string) string {
	rest := uri
	if _, after, found := strings.Cut(uri, "://"); found {
		rest = after
	}
	if host, _, found := strings.Cut(rest, ":"); found {
		return host
	}
	return strings.TrimSuffix(rest, "/")
}

// scriptTypeOf normalizes the descriptor's script type, defaulting to
// PYTHON as the agent does.
func scriptTypeOf(script *descriptor.CommandScript) string {
	if script == nil || script.ScriptType == "" {
		return "PYTHON"
	}
	return script.ScriptType
}
