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

package agentserver

import (
	"sync"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/agentcard"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/tool"
)

// AgentClass is the compiled-in equivalent of "the Python module a job
// references": a named bundle of a base system prompt, a description and
// skill list for the agent card, and the domain tools the agent exposes to
// its backend. AgentConfig.Module in a job definition selects one of these
// by name; the orchestrator passes it through as AGENT_MODULE.
type AgentClass struct {
	Name        string
	Description string
	Skills      []agentcard.Skill
	BasePrompt  string

	// Tools builds the domain tools this class exposes, beyond the A2A
	// transport tools every agent gets regardless of class. Nil is treated
	// as "no domain tools".
	Tools func() []tool.CallableTool
}

var (
	classMu sync.Mutex
	classes = map[string]AgentClass{}
)

func init() {
	Register(AgentClass{
		Name:        "echo",
		Description: "Reference agent class with no domain tools, used when a job does not name one.",
		BasePrompt:  "You are a helpful assistant. Answer the user's query directly and concisely.",
	})
}

// Register adds or replaces an agent class by name. Intended to be called
// from an init() in a package that defines domain agent classes, and from
// tests.
func Register(class AgentClass) {
	classMu.Lock()
	defer classMu.Unlock()
	classes[class.Name] = class
}

// LookupClass returns the registered class named name, falling back to the
// "echo" class if name is empty or unregistered.
func LookupClass(name string) AgentClass {
	classMu.Lock()
	defer classMu.Unlock()
	if c, ok := classes[name]; ok {
		return c
	}
	return classes["echo"]
}
