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

// Package backend provides the uniform query contract over multiple LLM
// providers. Every backend streams BackendMessage values; callers never see
// provider-specific wire formats.
package backend

// Message is one turn of conversation history passed to a backend.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system", "tool"
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"` // tool name, when Role == "tool"
}

// ToolDefinition describes a tool the backend may invoke, in JSON Schema form.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// MessageKind discriminates BackendMessage variants.
type MessageKind string

const (
	KindAssistantText  MessageKind = "assistant_text"
	KindToolInvocation MessageKind = "tool_invocation"
	KindToolResult     MessageKind = "tool_result"
	KindSystemInfo     MessageKind = "system_info"
	KindDone           MessageKind = "done"
)

// BackendMessage is one event in a backend's query stream. Only the fields
// relevant to Kind are populated.
type BackendMessage struct {
	Kind MessageKind

	// AssistantText
	Text string

	// ToolInvocation / ToolResult
	ToolName  string
	ToolInput map[string]interface{}
	Result    string
	IsError   bool

	// SystemInfo
	Info map[string]interface{}

	// Done
	FinalText string
}
