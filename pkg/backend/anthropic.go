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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/httpclient"
)

// anthropicBackend calls the Anthropic Messages API. Auth and the base
// client are resolved once at construction; Query builds a fresh request
// and a fresh per-call response channel on every invocation.
type anthropicBackend struct {
	apiKey      string
	model       string
	host        string
	maxTokens   int
	temperature float64
	client      *httpclient.Client
}

func newAnthropicBackend(cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, &Error{Backend: TypeAnthropic, Message: "API key is required"}
	}
	host := cfg.Host
	if host == "" {
		host = "https://api.anthropic.com"
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &anthropicBackend{
		apiKey:      cfg.APIKey,
		model:       model,
		host:        host,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
		),
	}, nil
}

func (b *anthropicBackend) Name() string { return TypeAnthropic }
func (b *anthropicBackend) Close() error { return nil }

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string                  `json:"type"`
	Text      string                  `json:"text,omitempty"`
	ID        string                  `json:"id,omitempty"`
	Name      string                  `json:"name,omitempty"`
	Input     *map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                  `json:"tool_use_id,omitempty"`
	Content   string                  `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
	System      string             `json:"system,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicStreamEvent struct {
	Type         string            `json:"type"`
	Index        int               `json:"index"`
	Delta        *anthropicDelta   `json:"delta,omitempty"`
	ContentBlock *anthropicContent `json:"content_block,omitempty"`
}

type anthropicDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

func (b *anthropicBackend) buildRequest(systemPrompt string, history []Message, tools []ToolDefinition) anthropicRequest {
	msgs := make([]anthropicMessage, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case "tool":
			msgs = append(msgs, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "tool_result", Content: m.Content}},
			})
		case "assistant":
			msgs = append(msgs, anthropicMessage{
				Role:    "assistant",
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		default:
			msgs = append(msgs, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		}
	}

	req := anthropicRequest{
		Model:       b.model,
		Messages:    msgs,
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
		Stream:      true,
		System:      systemPrompt,
	}
	if len(tools) > 0 {
		req.Tools = make([]anthropicTool, len(tools))
		for i, t := range tools {
			req.Tools[i] = anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters}
		}
	}
	return req
}

// Query issues one streaming Messages API call. The HTTP request, response
// body, and tool-call accumulation buffers are all local to this call —
// nothing survives to the next Query beyond the fields fixed at
// construction.
func (b *anthropicBackend) Query(ctx context.Context, systemPrompt string, history []Message, tools []ToolDefinition) (<-chan BackendMessage, error) {
	req := b.buildRequest(systemPrompt, history, tools)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Backend: TypeAnthropic, Message: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.host+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Backend: TypeAnthropic, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", b.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Backend: TypeAnthropic, Message: "request failed", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, &Error{Backend: TypeAnthropic, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(raw))}
	}

	out := make(chan BackendMessage, 16)
	go func() {
		defer resp.Body.Close()
		defer close(out)
		b.streamEvents(ctx, resp.Body, out)
	}()
	return out, nil
}

func (b *anthropicBackend) streamEvents(ctx context.Context, body io.Reader, out chan<- BackendMessage) {
	toolCalls := make(map[int]*BackendMessage)
	toolBuffers := make(map[int]string)
	var finalText strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var ev anthropicStreamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_start":
			if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
				toolCalls[ev.Index] = &BackendMessage{Kind: KindToolInvocation, ToolName: ev.ContentBlock.Name}
				toolBuffers[ev.Index] = ""
			}
		case "content_block_delta":
			if ev.Delta == nil {
				continue
			}
			if ev.Delta.Text != "" {
				finalText.WriteString(ev.Delta.Text)
				out <- BackendMessage{Kind: KindAssistantText, Text: ev.Delta.Text}
			}
			if ev.Delta.Type == "input_json_delta" && ev.Delta.PartialJSON != "" {
				toolBuffers[ev.Index] += ev.Delta.PartialJSON
			}
		case "content_block_stop":
			if tc, ok := toolCalls[ev.Index]; ok {
				var args map[string]interface{}
				if js := toolBuffers[ev.Index]; js != "" {
					_ = json.Unmarshal([]byte(js), &args)
				}
				tc.ToolInput = args
				out <- *tc
			}
		case "message_stop":
			out <- BackendMessage{Kind: KindDone, FinalText: finalText.String()}
			return
		}
	}
}
