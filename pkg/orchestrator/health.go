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

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/health"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/runner"
)

// runnerRestarter adapts a runner.Runner + the spec/handle of one running
// agent into health.Restarter: Stop tears the process down, Start relaunches
// it from the same spec and records the new handle so a later restart (or
// Stop) sees the current process, not the one it replaced.
type runnerRestarter struct {
	r  runner.Runner
	dj *DeployedJob
	o  *Orchestrator
	id string
}

func (rr *runnerRestarter) Stop(ctx context.Context) error {
	rr.o.mu.Lock()
	rh := rr.dj.Agents[rr.id]
	rr.o.mu.Unlock()
	if rh == nil || rh.RunnerHandle == nil {
		return nil
	}
	return rr.r.Stop(ctx, rh.RunnerHandle, 5*time.Second)
}

func (rr *runnerRestarter) Start(ctx context.Context) (string, error) {
	rr.o.mu.Lock()
	rh := rr.dj.Agents[rr.id]
	rr.o.mu.Unlock()
	if rh == nil {
		return "", fmt.Errorf("agent %s is no longer tracked by this job", rr.id)
	}

	handle, err := rr.r.Start(ctx, rh.Spec)
	if err != nil {
		return "", fmt.Errorf("restart agent %s: %w", rr.id, err)
	}

	rr.o.mu.Lock()
	rh.RunnerHandle = handle
	rh.RestartCount++
	rr.o.mu.Unlock()

	return rh.URL, nil
}

// startHealthMonitor begins continuous probing of every agent in a job that
// just reached StateRunning. It runs for the lifetime of the job; Stop/
// teardown cancels it before tearing down the processes it watches, so a
// deliberate shutdown is never mistaken for a crash needing a restart.
func (o *Orchestrator) startHealthMonitor(dj *DeployedJob) {
	hc := dj.Definition.Deployment.HealthCheck
	policy := health.Policy{
		Interval:       hc.Interval,
		Timeout:        hc.Timeout,
		Retries:        hc.Retries,
		RestartEnabled: true,
		MaxRestarts:    3,
		BackoffBase:    time.Second,
	}

	jm := health.NewJobMonitor()
	dj.Monitor = jm

	cb := func(agentID string, from, to health.State) {
		slog.Info("agent health transition", "job", dj.JobID, "agent", agentID, "from", from, "to", to)
		o.mu.Lock()
		if rh, ok := dj.Agents[agentID]; ok {
			rh.Status = string(to)
		}
		o.mu.Unlock()
		o.persist(dj, nil)
	}

	for agentID, rh := range dj.Agents {
		agent, _ := dj.Definition.AgentByID(agentID)
		restarter := &runnerRestarter{r: o.runnerFor(agent.Target), dj: dj, o: o, id: agentID}
		jm.Watch(context.Background(), agentID, rh.URL, policy, restarter, cb)
	}
}
