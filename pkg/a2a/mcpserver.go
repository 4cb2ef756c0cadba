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
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools adds query_agent and discover_agent to an MCP server, so
// an agent process can expose the A2A transport to peers that talk to it
// over MCP rather than calling the Go functions in-process.
func (t *Transport) RegisterMCPTools(s *server.MCPServer) {
	s.AddTool(
		mcp.NewTool("query_agent",
			mcp.WithDescription("Send a query to another agent and return its response text."),
			mcp.WithString("agent_url", mcp.Required(), mcp.Description("Base URL of the target agent")),
			mcp.WithString("query", mcp.Required(), mcp.Description("Question or instruction to send")),
			mcp.WithString("session_id", mcp.Description("Existing session id on the target agent, if continuing a conversation")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			agentURL := req.GetString("agent_url", "")
			query := req.GetString("query", "")
			sessionID := req.GetString("session_id", "")

			resp, err := t.QueryAgent(ctx, agentURL, query, sessionID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(resp), nil
		},
	)

	s.AddTool(
		mcp.NewTool("discover_agent",
			mcp.WithDescription("Fetch another agent's configuration card and summarize its name, description, and skills."),
			mcp.WithString("agent_url", mcp.Required(), mcp.Description("Base URL of the agent to discover")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			agentURL := req.GetString("agent_url", "")

			card, err := t.DiscoverAgent(ctx, agentURL)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			raw, _ := json.Marshal(card)
			return mcp.NewToolResultText(card.Summarize() + "\n" + string(raw)), nil
		},
	)
}
