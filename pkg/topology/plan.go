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

// Package topology turns a job's declared topology into an ordered
// deployment plan: which agents launch together, in what order, and who is
// permitted to talk to whom.
package topology

// DeploymentPlan is the pure, deterministic output of Resolve. Nothing
// mutates it after construction.
type DeploymentPlan struct {
	// Stages is an ordered list of agent-id sets; every id in one set may
	// launch concurrently, and stage k+1 only begins once stage k is
	// healthy.
	Stages [][]string

	// URLs maps agent id to its resolved base URL.
	URLs map[string]string

	// Connections maps agent id to the set of base URLs it is permitted
	// (and expected) to call at startup.
	Connections map[string][]string

	// AllowedHosts is the union of hosts appearing in URLs, for SSRF
	// allow-list propagation to AGENT_ALLOWED_HOSTS.
	AllowedHosts []string
}
