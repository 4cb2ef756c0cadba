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

// Package a2a implements the agent-to-agent transport: outbound calls one
// agent process makes to another, with an SSRF guard, W3C trace-context
// propagation, and span recording.
package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/agentcard"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/observability"
)

// CardLookup resolves a previously discovered agent's card by URL, so a2a
// spans can be enriched with the target's name once known. C8's registry
// satisfies this interface; nil is accepted and treated as "unknown".
type CardLookup interface {
	ByURL(url string) (agentcard.Card, bool)
}

// Transport issues outbound A2A calls for one agent process.
type Transport struct {
	cfg    Config
	client *http.Client
	tracer trace.Tracer
	cards  CardLookup
}

// New builds a Transport. cards may be nil.
func New(cfg Config, tracer trace.Tracer, cards CardLookup) *Transport {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("a2a")
	}
	return &Transport{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		tracer: tracer,
		cards:  cards,
	}
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// QueryAgent sends query to the agent at agentURL and returns its response
// text. It never returns a raw transport error to be raised into the LLM
// flow — callers (the tool wrapper) turn a non-nil error into a ToolResult
// with is_error=true instead.
func (t *Transport) QueryAgent(ctx context.Context, agentURL, query, sessionID string) (string, error) {
	start := time.Now()
	targetName := ""
	if t.cards != nil {
		if card, ok := t.cards.ByURL(agentURL); ok {
			targetName = card.Name
		}
	}

	ctx, span := t.tracer.Start(ctx, "a2a.query_agent", trace.WithAttributes(
		observability.KindAttr(observability.KindA2A),
		attribute.String(observability.AttrTargetURL, agentURL),
		attribute.String(observability.AttrTargetName, targetName),
	))
	defer span.End()

	status := "ok"
	propagated := false
	defer func() {
		span.SetAttributes(
			attribute.String(observability.AttrStatus, status),
			attribute.Int64(observability.AttrDurationMs, time.Since(start).Milliseconds()),
			attribute.Bool(observability.AttrTracePropagated, propagated),
		)
	}()

	if err := validateURL(t.cfg, agentURL); err != nil {
		status = "error"
		return "", err
	}

	body, err := json.Marshal(queryRequest{Query: query, SessionID: sessionID})
	if err != nil {
		status = "error"
		return "", fmt.Errorf("a2a: marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, strings.TrimRight(agentURL, "/")+"/query", bytes.NewReader(body))
	if err != nil {
		status = "error"
		return "", fmt.Errorf("a2a: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", t.cfg.APIKey)
	}
	if propagateTraceContext(req, span.SpanContext()) {
		propagated = true
	}

	resp, err := t.client.Do(req)
	if err != nil {
		status = "error"
		return "", fmt.Errorf("a2a: request to %s: %w", agentURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		status = "error"
		return "", fmt.Errorf("a2a: read response from %s: %w", agentURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status = "error"
		return "", fmt.Errorf("a2a: %s returned HTTP %d: %s", agentURL, resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed queryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		status = "error"
		return "", fmt.Errorf("a2a: decode response from %s: %w", agentURL, err)
	}
	return parsed.Response, nil
}

// DiscoverAgent fetches the agent-configuration card at agentURL.
func (t *Transport) DiscoverAgent(ctx context.Context, agentURL string) (agentcard.Card, error) {
	start := time.Now()
	ctx, span := t.tracer.Start(ctx, "a2a.discover_agent", trace.WithAttributes(
		observability.KindAttr(observability.KindA2A),
		attribute.String(observability.AttrTargetURL, agentURL),
	))
	defer span.End()

	status := "ok"
	defer func() {
		span.SetAttributes(
			attribute.String(observability.AttrStatus, status),
			attribute.Int64(observability.AttrDurationMs, time.Since(start).Milliseconds()),
		)
	}()

	if err := validateURL(t.cfg, agentURL); err != nil {
		status = "error"
		return agentcard.Card{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.DiscoveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, strings.TrimRight(agentURL, "/")+"/.well-known/agent-configuration", nil)
	if err != nil {
		status = "error"
		return agentcard.Card{}, fmt.Errorf("a2a: build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		status = "error"
		return agentcard.Card{}, fmt.Errorf("a2a: discovery request to %s: %w", agentURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status = "error"
		return agentcard.Card{}, fmt.Errorf("a2a: %s returned HTTP %d", agentURL, resp.StatusCode)
	}

	var card agentcard.Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		status = "error"
		return agentcard.Card{}, fmt.Errorf("a2a: decode card from %s: %w", agentURL, err)
	}
	span.SetAttributes(attribute.String(observability.AttrTargetName, card.Name))
	return card, nil
}

// propagateTraceContext sets a standard W3C traceparent header from sc.
// Returns false (and sets nothing) if sc carries no valid span context, so
// callers can record whether propagation actually happened.
func propagateTraceContext(req *http.Request, sc trace.SpanContext) bool {
	if !sc.IsValid() {
		return false
	}
	flags := "00"
	if sc.IsSampled() {
		flags = "01"
	}
	req.Header.Set("traceparent", fmt.Sprintf("00-%s-%s-%s", sc.TraceID(), sc.SpanID(), flags))
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
