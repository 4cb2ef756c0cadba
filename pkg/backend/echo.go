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

package backend

import (
	"context"
	"fmt"
	"strings"
)

// echoBackend echoes the last user message back, optionally listing
// available tools. It requires no credentials and is the default backend,
// useful for smoke-testing a deployment before wiring a real provider.
type echoBackend struct {
	prefix string
}

func newEchoBackend(cfg Config) *echoBackend {
	prefix := cfg.Model
	if prefix == "" {
		prefix = "echo: "
	}
	return &echoBackend{prefix: prefix}
}

func (b *echoBackend) Name() string { return TypeEcho }
func (b *echoBackend) Close() error { return nil }

func (b *echoBackend) Query(ctx context.Context, systemPrompt string, history []Message, tools []ToolDefinition) (<-chan BackendMessage, error) {
	var last string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			last = history[i].Content
			break
		}
	}

	text := b.prefix + last
	if len(tools) > 0 {
		names := make([]string, len(tools))
		for i, t := range tools {
			names[i] = t.Name
		}
		text += fmt.Sprintf(" [tools: %s]", strings.Join(names, ", "))
	}

	out := make(chan BackendMessage, 2)
	go func() {
		defer close(out)
		select {
		case <-ctx.Done():
			return
		case out <- BackendMessage{Kind: KindAssistantText, Text: text}:
		}
		select {
		case <-ctx.Done():
		case out <- BackendMessage{Kind: KindDone, FinalText: text}:
		}
	}()
	return out, nil
}
