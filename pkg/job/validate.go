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

package job

import (
	"fmt"
	"os"
)

// Validate runs every validation rule against def and returns every issue
// found. It never stops at the first problem — the caller (Load/Parse)
// decides whether any fatal issue blocks the result.
func Validate(def *JobDefinition) []Issue {
	var issues []Issue

	issues = append(issues, validateSchema(def)...)
	issues = append(issues, validateUniqueness(def)...)
	issues = append(issues, validatePorts(def)...)
	issues = append(issues, validateTopologyReferences(def)...)
	issues = append(issues, validateTopologyShape(def)...)
	issues = append(issues, validateSSH(def)...)
	issues = append(issues, validateEntryPoint(def)...)

	return issues
}

func validateSchema(def *JobDefinition) []Issue {
	var issues []Issue

	if def.Name == "" {
		issues = append(issues, Issue{Kind: IssueSchema, Path: "name", Message: "name is required"})
	}
	if len(def.Agents) == 0 {
		issues = append(issues, Issue{Kind: IssueSchema, Path: "agents", Message: "no agents"})
	}
	for i, a := range def.Agents {
		path := fmt.Sprintf("agents[%d]", i)
		if a.ID == "" {
			issues = append(issues, Issue{Kind: IssueSchema, Path: path + ".id", Message: "id is required"})
		}
		if a.Config.Port == 0 {
			issues = append(issues, Issue{Kind: IssueSchema, Path: path + ".config.port", Message: "config.port is required"})
		}
	}
	if def.Topology.Kind == "" {
		issues = append(issues, Issue{Kind: IssueSchema, Path: "topology", Message: "topology.kind is required"})
	}

	return issues
}

func validateUniqueness(def *JobDefinition) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(def.Agents))
	for i, a := range def.Agents {
		if a.ID == "" {
			continue
		}
		if seen[a.ID] {
			issues = append(issues, Issue{
				Kind:    IssueUniqueness,
				Path:    fmt.Sprintf("agents[%d].id", i),
				Message: fmt.Sprintf("duplicate agent id %q", a.ID),
			})
		}
		seen[a.ID] = true
	}
	return issues
}

func validatePorts(def *JobDefinition) []Issue {
	var issues []Issue

	// key: host identifier ("localhost" or remote host) -> port -> agent id
	byHostPort := make(map[string]map[int]string)

	for i, a := range def.Agents {
		host := "localhost"
		if a.Target.IsRemote() {
			host = a.Target.Host
		}
		if byHostPort[host] == nil {
			byHostPort[host] = make(map[int]string)
		}
		if a.Config.Port == 0 {
			continue
		}
		if existing, ok := byHostPort[host][a.Config.Port]; ok {
			issues = append(issues, Issue{
				Kind: IssuePortConflict,
				Path: fmt.Sprintf("agents[%d].config.port", i),
				Message: fmt.Sprintf("port %d on host %q already used by agent %q",
					a.Config.Port, host, existing),
			})
			continue
		}
		byHostPort[host][a.Config.Port] = a.ID

		if a.Config.Port < def.Deployment.MinPort || a.Config.Port > def.Deployment.MaxPort {
			issues = append(issues, Issue{
				Kind: IssuePortRange,
				Path: fmt.Sprintf("agents[%d].config.port", i),
				Message: fmt.Sprintf("port %d outside allowed range [%d, %d]",
					a.Config.Port, def.Deployment.MinPort, def.Deployment.MaxPort),
			})
		}
	}

	return issues
}

func validateTopologyReferences(def *JobDefinition) []Issue {
	var issues []Issue
	ids := make(map[string]bool, len(def.Agents))
	for _, a := range def.Agents {
		ids[a.ID] = true
	}

	check := func(path, id string) {
		if id != "" && !ids[id] {
			issues = append(issues, Issue{
				Kind:    IssueReference,
				Path:    path,
				Message: fmt.Sprintf("topology references unknown agent id %q", id),
			})
		}
	}

	t := def.Topology
	switch t.Kind {
	case TopologyHubSpoke:
		check("topology.hub", t.Hub)
		for i, s := range t.Spokes {
			check(fmt.Sprintf("topology.spokes[%d]", i), s)
		}
	case TopologyPipeline:
		for i, stage := range t.Stages {
			for j, id := range stage.IDs {
				check(fmt.Sprintf("topology.stages[%d][%d]", i, j), id)
			}
		}
	case TopologyDag:
		for i, e := range t.Edges {
			check(fmt.Sprintf("topology.edges[%d].from", i), e.From)
			for j, to := range e.To {
				check(fmt.Sprintf("topology.edges[%d].to[%d]", i, j), to)
			}
		}
	case TopologyMesh:
		for i, m := range t.Members {
			check(fmt.Sprintf("topology.members[%d]", i), m)
		}
	case TopologyHierarchical:
		check("topology.root", t.Root)
		for i, level := range t.Levels {
			for j, id := range level {
				check(fmt.Sprintf("topology.levels[%d][%d]", i, j), id)
			}
		}
	}

	return issues
}

// validateTopologyShape enforces the shape rules that depend on more than
// simple reference existence: DAG acyclicity and hierarchical level
// exclusivity.
func validateTopologyShape(def *JobDefinition) []Issue {
	var issues []Issue
	t := def.Topology

	if t.Kind == TopologyDag {
		if hasCycle(t.Edges) {
			issues = append(issues, Issue{
				Kind:    IssueCycle,
				Path:    "topology.edges",
				Message: "dag topology contains a cycle",
			})
		}
	}

	if t.Kind == TopologyHierarchical {
		count := make(map[string]int)
		for _, level := range t.Levels {
			for _, id := range level {
				count[id]++
			}
		}
		for id, c := range count {
			if c > 1 {
				issues = append(issues, Issue{
					Kind:    IssueSchema,
					Path:    "topology.levels",
					Message: fmt.Sprintf("agent id %q appears in more than one level", id),
				})
			}
		}
		if t.Root != "" && count[t.Root] > 0 {
			issues = append(issues, Issue{
				Kind:    IssueSchema,
				Path:    "topology.root",
				Message: fmt.Sprintf("root %q must not also appear in topology.levels", t.Root),
			})
		}
	}

	return issues
}

// hasCycle runs a standard white/gray/black DFS over the from->to edge set.
func hasCycle(edges []EdgeSpec) bool {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To...)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)

	var visit func(string) bool
	visit = func(n string) bool {
		color[n] = gray
		for _, next := range adj[n] {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for n := range adj {
		if color[n] == white {
			if visit(n) {
				return true
			}
		}
	}
	return false
}

func validateSSH(def *JobDefinition) []Issue {
	var issues []Issue
	for i, a := range def.Agents {
		if !a.Target.IsRemote() {
			continue
		}
		path := fmt.Sprintf("agents[%d].target", i)
		if a.Target.Host == "" {
			issues = append(issues, Issue{Kind: IssueSSH, Path: path + ".host", Message: "remote target requires host"})
		}
		if a.Target.SSHKey != "" {
			if _, err := os.Stat(a.Target.SSHKey); err != nil {
				issues = append(issues, Issue{
					Kind:    IssueSSH,
					Path:    path + ".ssh_key",
					Message: fmt.Sprintf("ssh_key %q is not readable: %v", a.Target.SSHKey, err),
				})
			}
		}
		if a.Target.Password != "" {
			issues = append(issues, Issue{
				Kind:     IssueSSH,
				Path:     path + ".password",
				Message:  "password-based SSH auth is discouraged; prefer ssh_key",
				Severity: SeverityWarning,
			})
		}
	}
	return issues
}

func validateEntryPoint(def *JobDefinition) []Issue {
	if def.Execution.EntryPoint == "" {
		return nil
	}
	if _, ok := def.AgentByID(def.Execution.EntryPoint); !ok {
		return []Issue{{
			Kind:    IssueReference,
			Path:    "execution.entry_point",
			Message: fmt.Sprintf("entry_point references unknown agent id %q", def.Execution.EntryPoint),
		}}
	}
	return nil
}
