package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/job"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/topology"
)

// Deploy's full spawn-and-await-health path is exercised indirectly: the
// spawn half is covered by pkg/runner's own tests, and awaitHealth is
// tested directly here against an httptest server standing in for an
// agent's /health endpoint.

func TestJobRegistry_PutGetList(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewJobRegistry(filepath.Join(dir, "jobs.jsonl"))
	require.NoError(t, err)

	s := Summary{JobID: "demo-1", Name: "demo", State: StateRunning, StartTime: time.Now()}
	require.NoError(t, reg.Put(s))

	got, ok, err := reg.Get("demo-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "demo", got.Name)

	all, err := reg.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, reg.Remove("demo-1"))
	all, err = reg.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOrchestrator_AwaitHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	reg, err := NewJobRegistry(filepath.Join(dir, "jobs.jsonl"))
	require.NoError(t, err)
	o := New(reg, dir)

	err = o.awaitHealth(context.Background(), srv.URL, 10*time.Millisecond, time.Second, 5)
	assert.NoError(t, err)
}

func TestOrchestrator_AwaitHealth_ExhaustsRetries(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewJobRegistry(filepath.Join(dir, "jobs.jsonl"))
	require.NoError(t, err)
	o := New(reg, dir)

	err = o.awaitHealth(context.Background(), "http://127.0.0.1:1", 5*time.Millisecond, 50*time.Millisecond, 3)
	assert.Error(t, err)
}

func TestOrchestrator_ComposeEnv(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewJobRegistry(filepath.Join(dir, "jobs.jsonl"))
	require.NoError(t, err)
	o := New(reg, dir)

	def := &job.JobDefinition{
		Name:        "demo",
		Environment: map[string]string{"SHARED": "1"},
	}
	dj := &DeployedJob{
		JobID:      "demo-1",
		Definition: def,
		Plan: &topology.DeploymentPlan{
			URLs:        map[string]string{"a": "http://127.0.0.1:9001"},
			Connections: map[string][]string{"a": {}},
			AllowedHosts: []string{"127.0.0.1"},
		},
	}

	agent := job.AgentConfig{
		ID:          "a",
		Config:      job.AgentSettings{Port: 9001},
		Environment: map[string]string{"OVERLAY": "2"},
	}

	env := o.composeEnv(dj, agent)
	assert.Equal(t, "9001", env["AGENT_PORT"])
	assert.Equal(t, "a", env["AGENT_ID"])
	assert.Equal(t, "1", env["SHARED"])
	assert.Equal(t, "2", env["OVERLAY"])
}
