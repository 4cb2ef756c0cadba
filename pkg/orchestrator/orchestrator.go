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
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/job"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/runner"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/topology"
)

// Orchestrator executes DeploymentPlans and owns every DeployedJob created
// in this process. A crashed/restarted process starts with an empty
// in-memory set; persisted registry entries keep the state last written for
// them, which is not re-checked.
type Orchestrator struct {
	registry   *JobRegistry
	localRun   runner.Runner
	sshRun     runner.Runner
	logRoot    string
	httpClient *http.Client

	mu   sync.Mutex
	jobs map[string]*DeployedJob

	metricsRegistry *prometheus.Registry
	agentsGauge     *prometheus.GaugeVec
}

// New creates an Orchestrator backed by the given job registry path and log
// directory root (logs/jobs/<job_id>/<agent_id>.{stdout,stderr}.log). Each
// Orchestrator owns its own Prometheus registry so multiple instances (as
// in tests) never collide on metric registration.
func New(registry *JobRegistry, logRoot string) *Orchestrator {
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "agentctl_deployed_agents",
		Help: "Number of agents per job and state.",
	}, []string{"job_id", "state"})
	reg.MustRegister(gauge)

	return &Orchestrator{
		registry:        registry,
		localRun:        runner.NewLocalRunner(),
		sshRun:          runner.NewSshRunner(),
		logRoot:         logRoot,
		httpClient:      &http.Client{},
		jobs:            make(map[string]*DeployedJob),
		metricsRegistry: reg,
		agentsGauge:     gauge,
	}
}

// MetricsHandler exposes this orchestrator's Prometheus metrics.
func (o *Orchestrator) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(o.metricsRegistry, promhttp.HandlerOpts{})
}

func (o *Orchestrator) runnerFor(target job.Target) runner.Runner {
	if target.IsRemote() {
		return o.sshRun
	}
	return o.localRun
}

// Deploy resolves def's topology and executes the resulting plan stage by
// stage, health-gating each stage before the next begins. On any failure it
// tears down every already-started agent in reverse order and returns an
// error; on success the job is persisted as running and returned.
func (o *Orchestrator) Deploy(ctx context.Context, def *job.JobDefinition) (*DeployedJob, error) {
	plan, err := topology.Resolve(def)
	if err != nil {
		return nil, fmt.Errorf("resolve topology: %w", err)
	}

	jobID := fmt.Sprintf("%s-%s", def.Name, time.Now().UTC().Format("20060102T150405"))
	logDir := filepath.Join(o.logRoot, jobID)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create job log dir: %w", err)
	}

	dj := &DeployedJob{
		JobID:      jobID,
		Definition: def,
		Plan:       plan,
		Agents:     make(map[string]*AgentRuntimeHandle),
		StartTime:  time.Now(),
		State:      StateDeploying,
		LogDir:     logDir,
	}

	o.mu.Lock()
	o.jobs[jobID] = dj
	o.mu.Unlock()

	var started []string
	deployCtx, cancel := context.WithTimeout(ctx, def.Deployment.Timeout)
	defer cancel()

	for _, stage := range plan.Stages {
		var wg sync.WaitGroup
		errs := make(chan error, len(stage))

		for _, agentID := range stage {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if err := o.startAndAwaitHealth(deployCtx, dj, id); err != nil {
					errs <- err
				}
			}(agentID)
		}
		wg.Wait()
		close(errs)

		started = append(started, stage...)

		if err := firstErr(errs); err != nil {
			o.teardown(context.Background(), dj, started)
			dj.State = StateFailed
			o.persist(dj, nil)
			return nil, err
		}
	}

	dj.State = StateRunning
	o.persist(dj, nil)
	o.startHealthMonitor(dj)
	return dj, nil
}

func firstErr(errs <-chan error) error {
	for e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func (o *Orchestrator) startAndAwaitHealth(ctx context.Context, dj *DeployedJob, agentID string) error {
	def := dj.Definition
	agent, _ := def.AgentByID(agentID)

	env := o.composeEnv(dj, agent)
	spec := runner.Spec{
		JobID:             dj.JobID,
		AgentID:           agentID,
		Command:           []string{agent.Target.PythonInterpreter(), "-m", agent.Module},
		WorkDir:           agent.Target.Workdir,
		Env:               env,
		LogDir:            dj.LogDir,
		Host:              agent.Target.Host,
		User:              agent.Target.User,
		SSHKey:            agent.Target.SSHKey,
		Password:          agent.Target.Password,
		Port:              agent.Target.SSHPort(),
		ConnectTimeout:    def.Deployment.SSHDefaults.ConnectTimeout,
		AllowUnknownHosts: def.Deployment.AllowUnknownHosts,
	}

	r := o.runnerFor(agent.Target)
	handle, err := r.Start(ctx, spec)
	if err != nil {
		return fmt.Errorf("start agent %s: %w", agentID, err)
	}

	rh := &AgentRuntimeHandle{
		AgentID:      agentID,
		URL:          dj.Plan.URLs[agentID],
		RunnerHandle: handle,
		Status:       "starting",
		StartedAt:    time.Now(),
		Spec:         spec,
	}
	o.mu.Lock()
	dj.Agents[agentID] = rh
	o.mu.Unlock()

	hc := def.Deployment.HealthCheck
	if err := o.awaitHealth(ctx, rh.URL, hc.Interval, hc.Timeout, hc.Retries); err != nil {
		rh.Status = "failed"
		return fmt.Errorf("agent %s never became healthy: %w", agentID, err)
	}
	rh.Status = "healthy"
	return nil
}

func (o *Orchestrator) awaitHealth(ctx context.Context, url string, interval, timeout time.Duration, retries int) error {
	client := &http.Client{Timeout: timeout}
	var lastErr error
	for i := 0; i < retries; i++ {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		req, _ := http.NewRequestWithContext(reqCtx, http.MethodGet, url+"/health", nil)
		resp, err := client.Do(req)
		cancel()
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("health check returned %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("exhausted %d retries: %w", retries, lastErr)
}

// composeEnv builds the environment passed to a spawned agent process, per
// the documented precedence: fixed AGENT_* variables, then job.Environment,
// then agent.Environment overlay.
func (o *Orchestrator) composeEnv(dj *DeployedJob, agent job.AgentConfig) map[string]string {
	env := map[string]string{
		"AGENT_PORT":          strconv.Itoa(agent.Config.Port),
		"AGENT_NAME":          agent.ID,
		"AGENT_ID":            agent.ID,
		"AGENT_JOB_ID":        dj.JobID,
		"AGENT_MODULE":        agent.Module,
		"CONNECTED_AGENTS":    strings.Join(dj.Plan.Connections[agent.ID], ","),
		"AGENT_ALLOWED_HOSTS": strings.Join(dj.Plan.AllowedHosts, ","),
	}

	for k, v := range dj.Definition.Environment {
		env[k] = v
	}
	for k, v := range agent.Environment {
		env[k] = v
	}
	return env
}

// Stop tears down every agent of jobID in reverse stage order.
func (o *Orchestrator) Stop(ctx context.Context, jobID string, graceful bool) error {
	o.mu.Lock()
	dj, ok := o.jobs[jobID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s is not known to this orchestrator", jobID)
	}

	if dj.State == StateStopped {
		return nil
	}

	dj.State = StateStopping
	o.persist(dj, nil)

	if dj.Monitor != nil {
		dj.Monitor.Stop()
	}

	var all []string
	for _, stage := range dj.Plan.Stages {
		all = append(all, stage...)
	}
	o.teardown(ctx, dj, all)

	dj.State = StateStopped
	now := time.Now()
	o.persist(dj, &now)
	return nil
}

// teardown stops the given already-started agent ids in reverse order.
func (o *Orchestrator) teardown(ctx context.Context, dj *DeployedJob, startedIDs []string) {
	for i := len(startedIDs) - 1; i >= 0; i-- {
		id := startedIDs[i]
		rh, ok := dj.Agents[id]
		if !ok || rh.RunnerHandle == nil {
			continue
		}
		agent, _ := dj.Definition.AgentByID(id)
		r := o.runnerFor(agent.Target)
		if err := r.Stop(ctx, rh.RunnerHandle, 5*time.Second); err != nil {
			slog.Error("failed to stop agent during teardown", "job", dj.JobID, "agent", id, "error", err)
		}
	}
}

func (o *Orchestrator) persist(dj *DeployedJob, stopTime *time.Time) {
	urls := make(map[string]string, len(dj.Plan.URLs))
	for k, v := range dj.Plan.URLs {
		urls[k] = v
	}
	s := Summary{
		JobID:          dj.JobID,
		Name:           dj.Definition.Name,
		DefinitionHash: DefinitionHash(dj.Definition),
		AgentURLs:      urls,
		State:          dj.State,
		StartTime:      dj.StartTime,
		StopTime:       stopTime,
	}
	if err := o.registry.Put(s); err != nil {
		slog.Error("failed to persist job summary", "job", dj.JobID, "error", err)
	}

	// Recompute from scratch rather than Inc(): persist runs once per state
	// transition over the job's life, and an agent's status label changes
	// over time (starting -> healthy -> ...), so incrementing would both
	// double-count the same agent across calls and leave stale label
	// combinations behind at their last value.
	counts := make(map[string]int, len(dj.Agents))
	for _, a := range dj.Agents {
		counts[a.Status]++
	}
	o.agentsGauge.DeletePartialMatch(prometheus.Labels{"job_id": dj.JobID})
	for status, n := range counts {
		o.agentsGauge.WithLabelValues(dj.JobID, status).Set(float64(n))
	}
}

// List returns a summary of every job this orchestrator knows about, live
// or previously persisted.
func (o *Orchestrator) List() ([]Summary, error) {
	return o.registry.List()
}

// Status returns the persisted summary for jobID.
func (o *Orchestrator) Status(jobID string) (Summary, bool, error) {
	return o.registry.Get(jobID)
}

// Logs returns up to `tail` trailing lines of the given agent's stdout log
// (or every agent's, if agentID is empty), newest last.
func (o *Orchestrator) Logs(jobID, agentID string, tail int) (string, error) {
	o.mu.Lock()
	dj, ok := o.jobs[jobID]
	o.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("job %s is not running in this process", jobID)
	}

	var ids []string
	if agentID != "" {
		ids = []string{agentID}
	} else {
		for id := range dj.Agents {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	var b strings.Builder
	for _, id := range ids {
		rh, ok := dj.Agents[id]
		if !ok || rh.RunnerHandle == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("== %s ==\n", id))
		lines, err := tailFile(rh.RunnerHandle.StdoutPath, tail)
		if err != nil {
			continue
		}
		b.WriteString(lines)
	}
	return b.String(), nil
}

func tailFile(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return strings.Join(lines, "\n") + "\n", nil
}

// Cleanup removes stopped/failed job entries from the registry.
func (o *Orchestrator) Cleanup(ctx context.Context) (int, error) {
	all, err := o.registry.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, s := range all {
		if s.State == StateStopped || s.State == StateFailed {
			if err := o.registry.Remove(s.JobID); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
