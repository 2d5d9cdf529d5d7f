package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otterc/incubator-slider/internal/agent"
	"github.com/otterc/incubator-slider/internal/cluster"
	"github.com/otterc/incubator-slider/internal/descriptor"
)

func newTestServer(t *testing.T) (*Server, *agent.Coordinator) {
	t.Helper()
	app := &descriptor.Application{
		Name: "hbase",
		Components: []*descriptor.Component{
			{
				Name:          "HBASE_MASTER",
				Category:      descriptor.CategoryMaster,
				CommandScript: &descriptor.CommandScript{Script: "scripts/hbase_master.py"},
			},
		},
	}
	state := cluster.NewInMemoryState("hbase1", "am-host")
	state.SetOption(agent.OptionAppUser, "yarn")
	registry := prometheus.NewRegistry()

	coordinator, err := agent.NewCoordinator(app, state, cluster.NewInMemoryQueue(16), cluster.NewInMemorySink(), registry)
	require.NoError(t, err)
	return New(coordinator, registry, "", 0), coordinator
}

func postJSON(t *testing.T, s *Server, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	response, err := s.App().Test(req)
	require.NoError(t, err)
	return response
}

func TestRegisterEndpoint(t *testing.T) {
	s, coordinator := newTestServer(t)
	coordinator.AddInstance("c1", "HBASE_MASTER", "app1")

	response := postJSON(t, s, "/ws/v1/slider/agents/c1___HBASE_MASTER/register", agent.Register{
		Label:          "c1___HBASE_MASTER",
		PublicHostname: "host1",
	})
	require.Equal(t, http.StatusOK, response.StatusCode)

	var parsed agent.RegistrationResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&parsed))
	assert.Equal(t, agent.RegistrationOK, parsed.Status)
	assert.NotEmpty(t, parsed.Tag)
}

func TestRegisterEndpointUnknownLabel(t *testing.T) {
	s, _ := newTestServer(t)

	response := postJSON(t, s, "/ws/v1/slider/agents/c9___HBASE_MASTER/register", agent.Register{
		Label: "c9___HBASE_MASTER",
	})
	require.Equal(t, http.StatusOK, response.StatusCode)

	var parsed agent.RegistrationResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&parsed))
	assert.Equal(t, agent.RegistrationFailed, parsed.Status)
	assert.Equal(t, "Label not recognized.", parsed.Log)
}

func TestHeartbeatEndpoint(t *testing.T) {
	s, coordinator := newTestServer(t)
	coordinator.AddInstance("c1", "HBASE_MASTER", "app1")

	response := postJSON(t, s, "/ws/v1/slider/agents/c1___HBASE_MASTER/heartbeat", agent.HeartBeat{
		ResponseID:    5,
		HostnameLabel: "c1___HBASE_MASTER",
	})
	require.Equal(t, http.StatusOK, response.StatusCode)

	var parsed agent.HeartBeatResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&parsed))
	assert.Equal(t, int64(6), parsed.ResponseID)
	require.Len(t, parsed.ExecutionCommands, 1)
	assert.Equal(t, "INSTALL", parsed.ExecutionCommands[0].RoleCommand)
}

func TestHeartbeatLabelFromPath(t *testing.T) {
	s, coordinator := newTestServer(t)
	coordinator.AddInstance("c1", "HBASE_MASTER", "app1")

	// An empty body label falls back to the path parameter.
	response := postJSON(t, s, "/ws/v1/slider/agents/c1___HBASE_MASTER/heartbeat", agent.HeartBeat{ResponseID: 1})
	require.Equal(t, http.StatusOK, response.StatusCode)

	var parsed agent.HeartBeatResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&parsed))
	assert.False(t, parsed.TerminateAgent)
}

func TestMalformedPayloadRejected(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/ws/v1/slider/agents/x/heartbeat", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	response, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	s, coordinator := newTestServer(t)
	coordinator.AddInstance("c1", "HBASE_MASTER", "app1")

	response, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"instances":1`)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	response, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "slider_agent_live_instances")
}
