package agent

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otterc/incubator-slider/internal/cluster"
	"github.com/otterc/incubator-slider/internal/instance"
)

func TestBuildCommandConfigurations(t *testing.T) {
	f := newFixture(t)
	f.state.SetOption("site.hbase-site.hbase.rootdir", "/apps/${USER_NAME}/hbase")
	f.state.SetOption("site.hbase-site.master.address", "${HBASE_MASTER_HOST}:16000")
	f.state.SetOption("site.global.security_enabled", "false")
	f.state.SetOption("site.core-site.fs.defaultFS", "hdfs://nn1:8020")
	f.state.SetOption("site.hbase-site.wal.dir", "${NN_URI}/hbase/wal on ${NN_HOST}")
	f.state.AddRoleHost("HBASE_MASTER", "master1")
	f.state.AddRoleHost("HBASE_MASTER", "master2")

	state := f.coordinator.AddInstance("c1", "HBASE_MASTER", "app1")
	configurations, err := f.coordinator.buildCommandConfigurations(state)
	require.NoError(t, err)

	site := configurations["hbase-site"]
	require.NotNil(t, site)
	assert.Equal(t, "/apps/yarn/hbase", site["hbase.rootdir"])
	assert.Equal(t, "master1,master2:16000", site["master.address"])
	assert.Equal(t, "hdfs://nn1:8020/hbase/wal on nn1", site["wal.dir"])

	global := configurations["global"]
	assert.Equal(t, "false", global["security_enabled"])
	assert.Equal(t, "c1", global["app_container_id"])
	assert.Equal(t, "1", global["app_container_tag"])
	assert.Equal(t, "${AGENT_WORK_ROOT}/app/run/component.pid", global["pid_file"])
}

func TestBuildCommandConfigurationsIncludesContainerPorts(t *testing.T) {
	f := newFixture(t)
	f.coordinator.Ports().Record("c1", "master_port", "16000", true)

	state := f.coordinator.AddInstance("c1", "HBASE_MASTER", "app1")
	configurations, err := f.coordinator.buildCommandConfigurations(state)
	require.NoError(t, err)
	assert.Equal(t, "16000", configurations["global"]["master_port"])
}

func TestBuildCommandConfigurationsDereferencesOneLevel(t *testing.T) {
	f := newFixture(t)
	f.state.SetOption("site.hbase-site.hbase.tmp.dir", "/tmp/hbase")
	f.state.SetOption("site.hbase-site.local.dir", "${@//site/hbase-site/hbase.tmp.dir}/local")

	state := f.coordinator.AddInstance("c1", "HBASE_MASTER", "app1")
	configurations, err := f.coordinator.buildCommandConfigurations(state)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hbase/local", configurations["hbase-site"]["local.dir"])
}

func TestBuildCommandConfigurationsMissingMandatoryOption(t *testing.T) {
	state := cluster.NewInMemoryState("hbase1", "am-host")
	queue := cluster.NewInMemoryQueue(4)
	coordinator, err := NewCoordinator(testApplication(), state, queue, cluster.NewInMemorySink(), prometheus.NewRegistry())
	require.NoError(t, err)

	inst := coordinator.AddInstance("c1", "HBASE_MASTER", "app1")
	_, err = coordinator.buildCommandConfigurations(inst)
	require.Error(t, err)

	var confErr *cluster.ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, OptionAppUser, confErr.Option)
}

func TestBuildExecutionCommandDefaults(t *testing.T) {
	f := newFixture(t)
	state := f.coordinator.AddInstance("c2", "HBASE_REGIONSERVER", "app1")

	execution, err := f.coordinator.buildExecutionCommand(state, instance.CommandInstall)
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultCommandTimeout), execution.Timeout)
	assert.Equal(t, "PYTHON", execution.ScriptType)
	assert.Equal(t, "c2___HBASE_REGIONSERVER", execution.Hostname)
	assert.Nil(t, execution.StopCommand)
}

func TestBuildExecutionCommandUnknownRole(t *testing.T) {
	f := newFixture(t)
	state := instance.New("NOT_A_ROLE", "c9", "app1")

	_, err := f.coordinator.buildExecutionCommand(state, instance.CommandInstall)
	assert.Error(t, err)
}

func TestBuildStatusCommand(t *testing.T) {
	f := newFixture(t)
	state := f.coordinator.AddInstance("c1", "HBASE_MASTER", "app1")

	status, err := f.coordinator.buildStatusCommand(state, StatusCommandStatus)
	require.NoError(t, err)
	assert.Equal(t, "hbase1", status.ClusterName)
	assert.Equal(t, StatusCommandStatus, status.RoleCommand)
	assert.NotNil(t, status.Configurations["global"])
}
