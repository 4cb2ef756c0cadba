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

package a2a

import (
	"fmt"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/tool"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/tool/functiontool"
)

// QueryAgentArgs is the parameter struct for the query_agent tool.
type QueryAgentArgs struct {
	AgentURL  string `json:"agent_url" jsonschema:"required,description=Base URL of the target agent"`
	Query     string `json:"query" jsonschema:"required,description=Question or instruction to send"`
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Existing session id on the target agent, if continuing a conversation"`
}

// DiscoverAgentArgs is the parameter struct for the discover_agent tool.
type DiscoverAgentArgs struct {
	AgentURL string `json:"agent_url" jsonschema:"required,description=Base URL of the agent to discover"`
}

// Tools builds the two A2A tools as CallableTools bound to t, for direct
// registration with an agent's tool set (in-process; not via MCP).
func (t *Transport) Tools() []tool.CallableTool {
	queryTool, err := functiontool.New(
		functiontool.Config{
			Name:        "query_agent",
			Description: "Send a query to another agent and return its response text.",
		},
		func(ctx tool.Context, args QueryAgentArgs) (map[string]any, error) {
			resp, err := t.QueryAgent(ctx, args.AgentURL, args.Query, args.SessionID)
			if err != nil {
				return map[string]any{"error": err.Error()}, nil
			}
			return map[string]any{"response": resp}, nil
		},
	)
	if err != nil {
		panic(fmt.Sprintf("a2a: build query_agent tool: %v", err))
	}

	discoverTool, err := functiontool.New(
		functiontool.Config{
			Name:        "discover_agent",
			Description: "Fetch another agent's configuration card and summarize its name, description, and skills.",
		},
		func(ctx tool.Context, args DiscoverAgentArgs) (map[string]any, error) {
			card, err := t.DiscoverAgent(ctx, args.AgentURL)
			if err != nil {
				return map[string]any{"error": err.Error()}, nil
			}
			return map[string]any{"summary": card.Summarize()}, nil
		},
	)
	if err != nil {
		panic(fmt.Sprintf("a2a: build discover_agent tool: %v", err))
	}

	return []tool.CallableTool{queryTool, discoverTool}
}
