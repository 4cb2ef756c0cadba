package job

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_HubSpoke(t *testing.T) {
	yaml := `
name: demo
agents:
  - id: weather
    type: worker
    config: {port: 9001}
  - id: controller
    type: hub
    config: {port: 9000}
topology:
  kind: hub_spoke
  hub: controller
  spokes: [weather]
`
	def, issues, err := Parse([]byte(yaml))
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Empty(t, issues)
	assert.Equal(t, "demo", def.Name)
	assert.Equal(t, TopologyHubSpoke, def.Topology.Kind)
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	require.NoError(t, os.Setenv("TEST_JOB_HOST", "example.internal"))
	defer os.Unsetenv("TEST_JOB_HOST")

	yaml := `
name: demo
agents:
  - id: a
    config: {port: 9001}
    target: {kind: remote, host: "${TEST_JOB_HOST}"}
topology: {kind: mesh, members: [a]}
`
	def, _, err := Parse([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "example.internal", def.Agents[0].Target.Host)
}

func TestParse_UnresolvedEnvVarFails(t *testing.T) {
	yaml := `
name: demo
agents:
  - id: a
    config: {port: 9001}
    target: {kind: remote, host: "${DEFINITELY_UNSET_JOB_VAR}"}
topology: {kind: mesh, members: [a]}
`
	_, _, err := Parse([]byte(yaml))
	require.Error(t, err)
}

func TestParse_EnvVarWithDefault(t *testing.T) {
	yaml := `
name: demo
agents:
  - id: a
    config: {port: 9001}
    target: {kind: remote, host: "${JOB_HOST:-fallback.example}"}
topology: {kind: mesh, members: [a]}
`
	def, _, err := Parse([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "fallback.example", def.Agents[0].Target.Host)
}

func TestParse_EmptyAgentsFails(t *testing.T) {
	yaml := `
name: demo
agents: []
topology: {kind: mesh, members: []}
`
	_, _, err := Parse([]byte(yaml))
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	found := false
	for _, iss := range le.FatalIssues() {
		if iss.Message == "no agents" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParse_DuplicatePortSameHostFails(t *testing.T) {
	yaml := `
name: demo
agents:
  - id: a
    config: {port: 9001}
  - id: b
    config: {port: 9001}
topology: {kind: mesh, members: [a, b]}
`
	_, _, err := Parse([]byte(yaml))
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Error(), "port_conflict")
}

func TestParse_DagCycleFails(t *testing.T) {
	yaml := `
name: demo
agents:
  - {id: a, config: {port: 9001}}
  - {id: b, config: {port: 9002}}
  - {id: c, config: {port: 9003}}
topology:
  kind: dag
  edges:
    - {from: a, to: b}
    - {from: b, to: c}
    - {from: c, to: a}
`
	_, _, err := Parse([]byte(yaml))
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Error(), "cycle")
}

func TestParse_MeshSingleMember(t *testing.T) {
	yaml := `
name: demo
agents:
  - {id: solo, config: {port: 9001}}
topology: {kind: mesh, members: [solo]}
`
	def, _, err := Parse([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, def.Topology.Members)
}

func TestParse_HubSpokeZeroSpokes(t *testing.T) {
	yaml := `
name: demo
agents:
  - {id: hub, config: {port: 9000}}
topology: {kind: hub_spoke, hub: hub, spokes: []}
`
	def, issues, err := Parse([]byte(yaml))
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Empty(t, def.Topology.Spokes)
}

func TestParse_SSHKeyMustExist(t *testing.T) {
	yaml := `
name: demo
agents:
  - id: a
    config: {port: 9001}
    target: {kind: remote, host: remote.example, ssh_key: /no/such/key}
topology: {kind: mesh, members: [a]}
`
	_, _, err := Parse([]byte(yaml))
	require.Error(t, err)
}

func TestParse_PasswordIsWarningNotFatal(t *testing.T) {
	yaml := `
name: demo
agents:
  - id: a
    config: {port: 9001}
    target: {kind: remote, host: remote.example, password: hunter2}
topology: {kind: mesh, members: [a]}
`
	def, issues, err := Parse([]byte(yaml))
	require.NoError(t, err)
	require.NotNil(t, def)
	require.NotEmpty(t, issues)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
}

func TestParse_PipelineStagesNormalizeScalarAndList(t *testing.T) {
	yaml := `
name: demo
agents:
  - {id: a, config: {port: 9001}}
  - {id: b, config: {port: 9002}}
  - {id: c, config: {port: 9003}}
topology:
  kind: pipeline
  stages:
    - a
    - [b, c]
`
	def, _, err := Parse([]byte(yaml))
	require.NoError(t, err)
	require.Len(t, def.Topology.Stages, 2)
	assert.Equal(t, []string{"a"}, def.Topology.Stages[0].IDs)
	assert.Equal(t, []string{"b", "c"}, def.Topology.Stages[1].IDs)
}

func TestParse_EntryPointMustExist(t *testing.T) {
	yaml := `
name: demo
agents:
  - {id: a, config: {port: 9001}}
topology: {kind: mesh, members: [a]}
execution: {entry_point: nosuch}
`
	_, _, err := Parse([]byte(yaml))
	require.Error(t, err)
}
