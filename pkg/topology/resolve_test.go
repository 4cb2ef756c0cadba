package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/job"
)

func mustParse(t *testing.T, yaml string) *job.JobDefinition {
	t.Helper()
	def, _, err := job.Parse([]byte(yaml))
	require.NoError(t, err)
	return def
}

func TestResolve_HubSpoke(t *testing.T) {
	def := mustParse(t, `
name: demo
agents:
  - {id: weather, config: {port: 9001}}
  - {id: controller, config: {port: 9000}}
topology: {kind: hub_spoke, hub: controller, spokes: [weather]}
`)
	plan, err := Resolve(def)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"weather"}, {"controller"}}, plan.Stages)
	assert.Equal(t, []string{"http://127.0.0.1:9001"}, plan.Connections["controller"])
	assert.Empty(t, plan.Connections["weather"])
}

func TestResolve_HubSpoke_NoSpokes(t *testing.T) {
	def := mustParse(t, `
name: demo
agents:
  - {id: controller, config: {port: 9000}}
topology: {kind: hub_spoke, hub: controller, spokes: []}
`)
	plan, err := Resolve(def)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"controller"}}, plan.Stages)
	assert.Empty(t, plan.Connections["controller"])
}

func TestResolve_Pipeline(t *testing.T) {
	def := mustParse(t, `
name: demo
agents:
  - {id: a, config: {port: 9001}}
  - {id: b, config: {port: 9002}}
  - {id: c, config: {port: 9003}}
  - {id: d, config: {port: 9004}}
topology: {kind: pipeline, stages: [a, b, c, d]}
`)
	plan, err := Resolve(def)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}, {"d"}}, plan.Stages)
	assert.Equal(t, []string{"http://127.0.0.1:9002"}, plan.Connections["a"])
	assert.Equal(t, []string{"http://127.0.0.1:9003"}, plan.Connections["b"])
	assert.Equal(t, []string{"http://127.0.0.1:9004"}, plan.Connections["c"])
	assert.Empty(t, plan.Connections["d"])
}

func TestResolve_DagParallelTier(t *testing.T) {
	def := mustParse(t, `
name: demo
agents:
  - {id: src, config: {port: 9001}}
  - {id: p1, config: {port: 9002}}
  - {id: p2, config: {port: 9003}}
  - {id: sink, config: {port: 9004}}
topology:
  kind: dag
  edges:
    - {from: src, to: [p1, p2]}
    - {from: p1, to: sink}
    - {from: p2, to: sink}
`)
	plan, err := Resolve(def)
	require.NoError(t, err)
	require.Len(t, plan.Stages, 3)
	assert.ElementsMatch(t, []string{"sink"}, plan.Stages[0])
	assert.ElementsMatch(t, []string{"p1", "p2"}, plan.Stages[1])
	assert.ElementsMatch(t, []string{"src"}, plan.Stages[2])
	assert.ElementsMatch(t, []string{"http://127.0.0.1:9002", "http://127.0.0.1:9003"}, plan.Connections["src"])
	assert.Equal(t, []string{"http://127.0.0.1:9004"}, plan.Connections["p1"])
	assert.Empty(t, plan.Connections["sink"])
}

func TestResolve_MeshSingleMember(t *testing.T) {
	def := mustParse(t, `
name: demo
agents:
  - {id: solo, config: {port: 9001}}
topology: {kind: mesh, members: [solo]}
`)
	plan, err := Resolve(def)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"solo"}}, plan.Stages)
	assert.Empty(t, plan.Connections["solo"])
}

func TestResolve_Hierarchical(t *testing.T) {
	def := mustParse(t, `
name: demo
agents:
  - {id: root, config: {port: 9000}}
  - {id: mid1, config: {port: 9001}}
  - {id: mid2, config: {port: 9002}}
  - {id: leaf1, config: {port: 9003}}
topology:
  kind: hierarchical
  root: root
  levels:
    - [mid1, mid2]
    - [leaf1]
`)
	plan, err := Resolve(def)
	require.NoError(t, err)
	require.Len(t, plan.Stages, 3)
	assert.ElementsMatch(t, []string{"leaf1"}, plan.Stages[0])
	assert.ElementsMatch(t, []string{"mid1", "mid2"}, plan.Stages[1])
	assert.Equal(t, []string{"root"}, plan.Stages[2])
	assert.Empty(t, plan.Connections["leaf1"])
}

func TestResolve_IsDeterministic(t *testing.T) {
	def := mustParse(t, `
name: demo
agents:
  - {id: a, config: {port: 9001}}
  - {id: b, config: {port: 9002}}
  - {id: c, config: {port: 9003}}
topology: {kind: mesh, members: [a, b, c]}
`)
	p1, err := Resolve(def)
	require.NoError(t, err)
	p2, err := Resolve(def)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}
