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
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/backend"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/observability"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/session"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/tool"
)

// maxToolRounds bounds the ReAct loop: each round is one fresh backend.Query
// call. A well-behaved backend finishes in one or two rounds (answer, or
// one tool call then an answer); this is a backstop against a model that
// never stops invoking tools.
const maxToolRounds = 6

// runQuery drives one /query request: load history, run the backend/tool
// loop to a terminal answer, persist the turn, and return the response.
// Step 4 of §4.5 ("record each assistant text block, each tool invocation
// ... as sub-spans of a query root span") happens inline as the loop
// consumes each backend message.
func (s *Server) runQuery(ctx context.Context, req queryRequestBody) (*queryResponseBody, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HTTPTimeout)
	defer cancel()

	sessionID, _ := s.sessions.GetOrCreate(req.SessionID)
	now := time.Now()
	if err := s.sessions.Append(sessionID, "user", req.Query, now); err != nil {
		return nil, errInternal("append user message: " + err.Error())
	}

	tools := s.allowedTools()
	toolsByName := make(map[string]tool.CallableTool, len(tools))
	for _, t := range tools {
		toolsByName[t.Name()] = t
	}
	toolDefs := toolDefinitions(tools)

	history := toBackendHistory(s.sessions.History(sessionID))
	tracer := s.obsManager.Tracer("agentserver")

	var finalText string
	for round := 0; round < maxToolRounds; round++ {
		assistantText, invocations, done, err := s.runBackendRound(ctx, tracer, history, toolDefs, sessionID)
		if err != nil {
			return nil, err
		}
		if assistantText != "" {
			history = append(history, backend.Message{Role: "assistant", Content: assistantText})
		}
		if len(invocations) == 0 {
			finalText = done
			break
		}

		for _, inv := range invocations {
			result, isError := s.callTool(ctx, tracer, toolsByName, sessionID, inv)
			history = append(history, backend.Message{
				Role:    "tool",
				Name:    inv.ToolName,
				Content: result,
			})
			_ = isError // recorded on the span; history carries the textual result either way
		}

		if round == maxToolRounds-1 {
			finalText = done
		}
	}

	if err := s.sessions.Append(sessionID, "assistant", finalText, time.Now()); err != nil {
		return nil, errInternal("append assistant message: " + err.Error())
	}

	return &queryResponseBody{Response: finalText, SessionID: sessionID}, nil
}

// runBackendRound issues one fresh backend.Query call and consumes its
// stream to completion, recording an llm span around the whole call (not
// just message receipt, per §4.11's note on zero-duration span bugs) and
// returning any tool invocations the model requested this round.
func (s *Server) runBackendRound(ctx context.Context, tracer trace.Tracer, history []backend.Message, toolDefs []backend.ToolDefinition, sessionID string) (assistantText string, invocations []backend.BackendMessage, doneText string, err error) {
	llmCtx, span := tracer.Start(ctx, "llm", trace.WithAttributes(
		observability.KindAttr(observability.KindLLM),
		attribute.String(observability.AttrLLMBackend, s.backend.Name()),
		attribute.String(observability.AttrSessionID, sessionID),
	))
	start := time.Now()
	defer func() {
		span.SetAttributes(attribute.Int64(observability.AttrDurationMs, time.Since(start).Milliseconds()))
		span.End()
	}()

	ch, qerr := s.backend.Query(llmCtx, s.systemPrompt, history, toolDefs)
	if qerr != nil {
		span.SetStatus(codes.Error, qerr.Error())
		if llmCtx.Err() == context.DeadlineExceeded {
			return "", nil, "", errTimeout("backend call timed out")
		}
		s.recorder.RecordLLMCall(s.cfg.Name, s.backend.Name(), time.Since(start))
		return "", nil, "", errInternal("backend query: " + qerr.Error())
	}

	var textBuilder strings.Builder
	for {
		select {
		case <-llmCtx.Done():
			span.SetStatus(codes.Error, "context cancelled")
			return textBuilder.String(), invocations, textBuilder.String(), errTimeout("query cancelled or timed out")
		case msg, ok := <-ch:
			if !ok {
				s.recorder.RecordLLMCall(s.cfg.Name, s.backend.Name(), time.Since(start))
				return textBuilder.String(), invocations, textBuilder.String(), nil
			}
			switch msg.Kind {
			case backend.KindAssistantText:
				textBuilder.WriteString(msg.Text)
			case backend.KindToolInvocation:
				invocations = append(invocations, msg)
			case backend.KindDone:
				s.recorder.RecordLLMCall(s.cfg.Name, s.backend.Name(), time.Since(start))
				if msg.FinalText != "" {
					return msg.FinalText, invocations, msg.FinalText, nil
				}
				return textBuilder.String(), invocations, textBuilder.String(), nil
			}
		}
	}
}

// callTool executes one tool invocation the backend requested, recording a
// tool span with name/input-length/result-length/is_error per §4.11.
func (s *Server) callTool(ctx context.Context, tracer trace.Tracer, tools map[string]tool.CallableTool, sessionID string, inv backend.BackendMessage) (resultText string, isError bool) {
	toolCtx, span := tracer.Start(ctx, "tool:"+inv.ToolName, trace.WithAttributes(
		observability.KindAttr(observability.KindTool),
		attribute.String(observability.AttrToolName, inv.ToolName),
		attribute.String(observability.AttrSessionID, sessionID),
	))
	start := time.Now()
	defer func() {
		span.SetAttributes(
			attribute.Int64(observability.AttrDurationMs, time.Since(start).Milliseconds()),
			attribute.Bool(observability.AttrIsError, isError),
			attribute.Int(observability.AttrToolResultLen, len(resultText)),
		)
		span.End()
	}()

	inputJSON, _ := json.Marshal(inv.ToolInput)
	span.SetAttributes(attribute.Int(observability.AttrToolInputLen, len(inputJSON)))

	t, ok := tools[inv.ToolName]
	if !ok {
		isError = true
		resultText = `{"error":"unknown tool ` + inv.ToolName + `"}`
		span.SetStatus(codes.Error, "unknown tool")
		s.recorder.RecordToolCall(s.cfg.Name, inv.ToolName, time.Since(start), true)
		return resultText, isError
	}

	callCtx := newToolCallContext(toolCtx, uuid.NewString(), sessionID)
	result, err := t.Call(callCtx, inv.ToolInput)
	if err != nil {
		isError = true
		resultText = `{"error":"` + err.Error() + `"}`
		span.SetStatus(codes.Error, err.Error())
		s.recorder.RecordToolCall(s.cfg.Name, inv.ToolName, time.Since(start), true)
		return resultText, isError
	}

	out, _ := json.Marshal(result)
	resultText = string(out)
	if errField, ok := result["error"]; ok && errField != nil && errField != "" {
		isError = true
	}
	s.recorder.RecordToolCall(s.cfg.Name, inv.ToolName, time.Since(start), isError)
	return resultText, isError
}

func toBackendHistory(msgs []session.Message) []backend.Message {
	out := make([]backend.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, backend.Message{Role: m.Role, Content: m.Text})
	}
	return out
}
