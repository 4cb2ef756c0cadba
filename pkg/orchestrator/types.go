// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orchestrator executes a deployment plan stage by stage and owns
// the lifecycle of every DeployedJob: starting agents, health-gating stage
// progression, tearing down in reverse order, and persisting job state to
// the job registry file.
package orchestrator

import (
	"time"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/health"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/job"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/runner"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/topology"
)

// JobState is the DeployedJob lifecycle state.
type JobState string

const (
	StateDeploying JobState = "deploying"
	StateRunning   JobState = "running"
	StateStopping  JobState = "stopping"
	StateStopped   JobState = "stopped"
	StateFailed    JobState = "failed"
)

// AgentRuntimeHandle is the orchestrator's record of one running agent: its
// process handle, last-known status, and restart history. DeployedJob
// exclusively owns it.
type AgentRuntimeHandle struct {
	AgentID      string
	URL          string
	RunnerHandle *runner.Handle
	Status       string // mirrors the health monitor's current state label
	RestartCount int
	StartedAt    time.Time

	// Spec is the runner.Spec used to start this agent, retained so the
	// health monitor's restart path (health.Restarter.Start) can relaunch
	// the exact same process rather than re-deriving it from scratch.
	Spec runner.Spec
}

// DeployedJob is the live, mutable instance of a JobDefinition, owned
// exclusively by the orchestrator (and, for Status transitions only, the
// health monitor).
type DeployedJob struct {
	JobID      string
	Definition *job.JobDefinition
	Plan       *topology.DeploymentPlan
	Agents     map[string]*AgentRuntimeHandle
	StartTime  time.Time
	State      JobState
	LogDir     string

	// Monitor supervises every agent's health once the job reaches
	// StateRunning; nil before then and after Stop cancels it.
	Monitor *health.JobMonitor
}

// Summary is the registry-file projection of a DeployedJob: no live
// handles, just enough to answer `status`/`list` after a process restart.
type Summary struct {
	JobID           string            `json:"job_id"`
	Name            string            `json:"name"`
	DefinitionHash  string            `json:"definition_hash"`
	AgentURLs       map[string]string `json:"agent_urls"`
	State           JobState          `json:"state"`
	StartTime       time.Time         `json:"start_time"`
	StopTime        *time.Time        `json:"stop_time,omitempty"`
	ExitStatuses    map[string]int    `json:"exit_statuses,omitempty"`
}
