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

// Package job defines the declarative job model: the YAML-described set of
// cooperating agents, their topology, and deployment options.
package job

import "time"

// JobDefinition is the immutable, validated result of loading a job YAML
// file. Nothing downstream mutates it; derived structures (DeploymentPlan)
// are computed fresh from it.
type JobDefinition struct {
	Name        string            `yaml:"name" mapstructure:"name"`
	Version     string            `yaml:"version" mapstructure:"version"`
	Description string            `yaml:"description" mapstructure:"description"`
	Tags        []string          `yaml:"tags" mapstructure:"tags"`
	Agents      []AgentConfig     `yaml:"agents" mapstructure:"agents"`
	Topology    Topology          `yaml:"topology" mapstructure:"topology"`
	Deployment  DeploymentOptions `yaml:"deployment" mapstructure:"deployment"`
	Execution   ExecutionOptions  `yaml:"execution" mapstructure:"execution"`
	Environment map[string]string `yaml:"environment" mapstructure:"environment"`
}

// AgentByID returns the agent config with the given id, or false if absent.
func (j *JobDefinition) AgentByID(id string) (AgentConfig, bool) {
	for _, a := range j.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// AgentConfig describes a single agent in the job.
type AgentConfig struct {
	ID          string            `yaml:"id" mapstructure:"id"`
	Type        string            `yaml:"type" mapstructure:"type"`
	Module      string            `yaml:"module" mapstructure:"module"`
	Config      AgentSettings     `yaml:"config" mapstructure:"config"`
	Target      Target            `yaml:"target" mapstructure:"target"`
	Environment map[string]string `yaml:"environment" mapstructure:"environment"`
	Resources   Resources         `yaml:"resources" mapstructure:"resources"`
}

// AgentSettings holds the per-agent config block; Port is pulled out because
// the topology resolver and orchestrator both depend on it directly, Extra
// carries any agent-class-specific keys through untouched.
type AgentSettings struct {
	Port  int            `yaml:"port" mapstructure:"port"`
	Extra map[string]any `yaml:",remain" mapstructure:",remain"`
}

// Resources is advisory only; no component enforces it.
type Resources struct {
	CPU    string `yaml:"cpu" mapstructure:"cpu"`
	Memory string `yaml:"memory" mapstructure:"memory"`
}

// TargetKind discriminates the Target tagged union.
type TargetKind string

const (
	TargetLocalhost TargetKind = "localhost"
	TargetRemote    TargetKind = "remote"
)

// Target is the tagged variant of where an agent runs. Only Localhost and
// Remote (SSH) kinds exist; validation does not check Kind, and any kind
// other than remote is treated as localhost.
type Target struct {
	Kind TargetKind `yaml:"kind" mapstructure:"kind"`

	// Remote fields.
	Host    string `yaml:"host" mapstructure:"host"`
	User    string `yaml:"user" mapstructure:"user"`
	SSHKey  string `yaml:"ssh_key" mapstructure:"ssh_key"`
	Password string `yaml:"password" mapstructure:"password"`
	Port    int    `yaml:"port" mapstructure:"port"`
	Python  string `yaml:"python" mapstructure:"python"`
	Workdir string `yaml:"workdir" mapstructure:"workdir"`
}

// IsRemote reports whether this target is SSH-based.
func (t Target) IsRemote() bool { return t.Kind == TargetRemote }

// SSHPort returns the configured SSH port, defaulting to 22.
func (t Target) SSHPort() int {
	if t.Port == 0 {
		return 22
	}
	return t.Port
}

// PythonInterpreter returns the configured interpreter, defaulting to python3.
func (t Target) PythonInterpreter() string {
	if t.Python == "" {
		return "python3"
	}
	return t.Python
}

// TopologyKind discriminates the Topology tagged union.
type TopologyKind string

const (
	TopologyHubSpoke     TopologyKind = "hub_spoke"
	TopologyPipeline     TopologyKind = "pipeline"
	TopologyDag          TopologyKind = "dag"
	TopologyMesh         TopologyKind = "mesh"
	TopologyHierarchical TopologyKind = "hierarchical"
)

// Topology is the tagged variant describing how agents are wired together.
// Only the fields relevant to Kind are populated by the loader.
type Topology struct {
	Kind TopologyKind `yaml:"kind" mapstructure:"kind"`

	// HubSpoke
	Hub    string   `yaml:"hub" mapstructure:"hub"`
	Spokes []string `yaml:"spokes" mapstructure:"spokes"`

	// Pipeline: each entry is either a scalar id or a list of ids (parallel tier).
	Stages []StageSpec `yaml:"stages" mapstructure:"stages"`

	// Dag
	Edges []EdgeSpec `yaml:"edges" mapstructure:"edges"`

	// Mesh
	Members []string `yaml:"members" mapstructure:"members"`

	// Hierarchical
	Root   string     `yaml:"root" mapstructure:"root"`
	Levels [][]string `yaml:"levels" mapstructure:"levels"`
}

// StageSpec is one Pipeline entry: one or more ids that deploy concurrently.
type StageSpec struct {
	IDs []string `yaml:"ids" mapstructure:"ids"`
}

// EdgeSpec is one Dag entry: `from` connects to one or more `to` ids.
type EdgeSpec struct {
	From string   `yaml:"from" mapstructure:"from"`
	To   []string `yaml:"to" mapstructure:"to"`
}

// DeploymentStrategy controls how the orchestrator drives stage launches.
type DeploymentStrategy string

const (
	StrategySequential DeploymentStrategy = "sequential"
	StrategyParallel   DeploymentStrategy = "parallel"
	StrategyStaged     DeploymentStrategy = "staged"
)

// DeploymentOptions carries job-wide deployment defaults.
type DeploymentOptions struct {
	Strategy     DeploymentStrategy `yaml:"strategy" mapstructure:"strategy"`
	Timeout      time.Duration      `yaml:"timeout" mapstructure:"timeout"`
	HealthCheck  HealthCheckDefaults `yaml:"health_check" mapstructure:"health_check"`
	SSHDefaults  SSHDefaults        `yaml:"ssh_defaults" mapstructure:"ssh_defaults"`
	AllowUnknownHosts bool          `yaml:"allow_unknown_hosts" mapstructure:"allow_unknown_hosts"`
	MinPort      int                `yaml:"min_port" mapstructure:"min_port"`
	MaxPort      int                `yaml:"max_port" mapstructure:"max_port"`
}

// HealthCheckDefaults are applied to every agent unless overridden.
type HealthCheckDefaults struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retries  int           `yaml:"retries" mapstructure:"retries"`
}

// SSHDefaults are applied to Remote targets that don't override them.
type SSHDefaults struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// ExecutionOptions names the entry point agent for clients that don't
// address a specific agent directly.
type ExecutionOptions struct {
	EntryPoint string `yaml:"entry_point" mapstructure:"entry_point"`
}

// SetDefaults fills in zero-valued options with the documented defaults.
func (j *JobDefinition) SetDefaults() {
	if j.Deployment.Strategy == "" {
		j.Deployment.Strategy = StrategyStaged
	}
	if j.Deployment.Timeout == 0 {
		j.Deployment.Timeout = 60 * time.Second
	}
	if j.Deployment.HealthCheck.Interval == 0 {
		j.Deployment.HealthCheck.Interval = 2 * time.Second
	}
	if j.Deployment.HealthCheck.Timeout == 0 {
		j.Deployment.HealthCheck.Timeout = 5 * time.Second
	}
	if j.Deployment.HealthCheck.Retries == 0 {
		j.Deployment.HealthCheck.Retries = 10
	}
	if j.Deployment.SSHDefaults.ConnectTimeout == 0 {
		j.Deployment.SSHDefaults.ConnectTimeout = 10 * time.Second
	}
	if j.Deployment.MinPort == 0 {
		j.Deployment.MinPort = 1024
	}
	if j.Deployment.MaxPort == 0 {
		j.Deployment.MaxPort = 65535
	}
	for i := range j.Agents {
		if j.Agents[i].Target.Kind == "" {
			j.Agents[i].Target.Kind = TargetLocalhost
		}
	}
}
