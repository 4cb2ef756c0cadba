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

package topology

import (
	"fmt"
	"sort"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/job"
)

// PlanError indicates the topology could not be turned into an ordered plan
// (a shape problem not already caught by job.Validate — e.g. an empty plan).
type PlanError struct {
	Message string
}

func (e *PlanError) Error() string { return "plan error: " + e.Message }

// Resolve translates a validated JobDefinition's topology into a
// DeploymentPlan. It is a pure function: the same JobDefinition always
// yields a byte-identical plan (ids are sorted wherever order is otherwise
// unspecified, e.g. within a DAG generation).
func Resolve(def *job.JobDefinition) (*DeploymentPlan, error) {
	urls := resolveURLs(def)

	var stages [][]string
	var connections map[string][]string
	var err error

	switch def.Topology.Kind {
	case job.TopologyHubSpoke:
		stages, connections = resolveHubSpoke(def.Topology)
	case job.TopologyPipeline:
		stages, connections = resolvePipeline(def.Topology)
	case job.TopologyDag:
		stages, connections, err = resolveDag(def.Topology)
	case job.TopologyMesh:
		stages, connections = resolveMesh(def.Topology)
	case job.TopologyHierarchical:
		stages, connections = resolveHierarchical(def.Topology)
	default:
		return nil, &PlanError{Message: fmt.Sprintf("unsupported topology kind %q", def.Topology.Kind)}
	}
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, &PlanError{Message: "topology resolved to an empty plan"}
	}

	connURLs := make(map[string][]string, len(connections))
	hostSet := make(map[string]bool)
	for id, peers := range connections {
		peerURLs := make([]string, 0, len(peers))
		for _, p := range peers {
			peerURLs = append(peerURLs, urls[p])
		}
		sort.Strings(peerURLs)
		connURLs[id] = peerURLs
	}
	for _, u := range urls {
		hostSet[hostOf(u)] = true
	}
	allowedHosts := make([]string, 0, len(hostSet))
	for h := range hostSet {
		allowedHosts = append(allowedHosts, h)
	}
	sort.Strings(allowedHosts)

	return &DeploymentPlan{
		Stages:       stages,
		URLs:         urls,
		Connections:  connURLs,
		AllowedHosts: allowedHosts,
	}, nil
}

func resolveURLs(def *job.JobDefinition) map[string]string {
	urls := make(map[string]string, len(def.Agents))
	for _, a := range def.Agents {
		if a.Target.IsRemote() {
			urls[a.ID] = fmt.Sprintf("http://%s:%d", a.Target.Host, a.Config.Port)
		} else {
			urls[a.ID] = fmt.Sprintf("http://127.0.0.1:%d", a.Config.Port)
		}
	}
	return urls
}

func hostOf(url string) string {
	// url is always "http://host:port" as constructed by resolveURLs.
	rest := url[len("http://"):]
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == ':' {
			return rest[:i]
		}
	}
	return rest
}

func resolveHubSpoke(t job.Topology) ([][]string, map[string][]string) {
	spokes := append([]string(nil), t.Spokes...)
	sort.Strings(spokes)

	var stages [][]string
	if len(spokes) > 0 {
		stages = append(stages, spokes)
	}
	stages = append(stages, []string{t.Hub})

	connections := map[string][]string{t.Hub: spokes}
	for _, s := range spokes {
		connections[s] = nil
	}
	return stages, connections
}

func resolvePipeline(t job.Topology) ([][]string, map[string][]string) {
	stages := make([][]string, len(t.Stages))
	for i, s := range t.Stages {
		stages[i] = append([]string(nil), s.IDs...)
	}

	connections := make(map[string][]string)
	for i, s := range t.Stages {
		var next []string
		if i+1 < len(t.Stages) {
			next = t.Stages[i+1].IDs
		}
		for _, id := range s.IDs {
			connections[id] = append([]string(nil), next...)
		}
	}
	return stages, connections
}

func resolveDag(t job.Topology) ([][]string, map[string][]string, error) {
	out := make(map[string][]string)
	nodes := make(map[string]bool)
	for _, e := range t.Edges {
		nodes[e.From] = true
		out[e.From] = append(out[e.From], e.To...)
		for _, to := range e.To {
			nodes[to] = true
		}
	}

	level := make(map[string]int)
	const (
		unvisited = -1
		visiting  = -2
	)
	for n := range nodes {
		level[n] = unvisited
	}

	var compute func(string) (int, error)
	compute = func(n string) (int, error) {
		switch level[n] {
		case visiting:
			return 0, &PlanError{Message: "dag contains a cycle"}
		default:
			if level[n] != unvisited {
				return level[n], nil
			}
		}
		level[n] = visiting
		maxChild := -1
		for _, to := range out[n] {
			l, err := compute(to)
			if err != nil {
				return 0, err
			}
			if l > maxChild {
				maxChild = l
			}
		}
		level[n] = maxChild + 1
		return level[n], nil
	}

	for n := range nodes {
		if _, err := compute(n); err != nil {
			return nil, nil, err
		}
	}

	maxLevel := 0
	for _, l := range level {
		if l > maxLevel {
			maxLevel = l
		}
	}
	stages := make([][]string, maxLevel+1)
	for n, l := range level {
		stages[l] = append(stages[l], n)
	}
	for _, s := range stages {
		sort.Strings(s)
	}

	connections := make(map[string][]string)
	for _, e := range t.Edges {
		connections[e.From] = append(connections[e.From], e.To...)
	}
	for n := range nodes {
		if _, ok := connections[n]; !ok {
			connections[n] = nil
		}
	}

	return stages, connections, nil
}

func resolveMesh(t job.Topology) ([][]string, map[string][]string) {
	members := append([]string(nil), t.Members...)
	sort.Strings(members)

	connections := make(map[string][]string, len(members))
	for _, m := range members {
		var peers []string
		for _, other := range members {
			if other != m {
				peers = append(peers, other)
			}
		}
		connections[m] = peers
	}
	return [][]string{members}, connections
}

func resolveHierarchical(t job.Topology) ([][]string, map[string][]string) {
	// t.Levels[0] is nearest the root; deploy bottom-up, root last.
	stages := make([][]string, 0, len(t.Levels)+1)
	for i := len(t.Levels) - 1; i >= 0; i-- {
		level := append([]string(nil), t.Levels[i]...)
		sort.Strings(level)
		stages = append(stages, level)
	}
	stages = append(stages, []string{t.Root})

	connections := make(map[string][]string)
	for i, level := range t.Levels {
		var children []string
		if i+1 < len(t.Levels) {
			children = t.Levels[i+1]
		}
		for _, id := range level {
			connections[id] = append([]string(nil), children...)
		}
	}
	if len(t.Levels) > 0 {
		connections[t.Root] = append([]string(nil), t.Levels[0]...)
	} else {
		connections[t.Root] = nil
	}

	return stages, connections
}
