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
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/observability"
)

type healthResponse struct {
	Status string `json:"status"`
	Agent  string `json:"agent"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Agent: s.cfg.Name})
}

func (s *Server) handleAgentConfiguration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.card())
}

type queryRequestBody struct {
	Query     string         `json:"query"`
	SessionID string         `json:"session_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

type queryResponseBody struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	select {
	case s.inFlight <- struct{}{}:
		defer func() { <-s.inFlight }()
	default:
		writeError(w, errOverCapacity("too many in-flight queries"))
		return
	}

	var body queryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errInvalidJSON("invalid JSON body: "+err.Error()))
		return
	}
	if body.Query == "" {
		writeError(w, errValidation("query is required"))
		return
	}

	if target, ok := body.Context["target_url"].(string); ok && target != "" {
		if err := s.transport.ValidateURL(target); err != nil {
			writeError(w, errForbidden(err.Error()))
			return
		}
	}

	ctx := r.Context()
	if sc, ok := observability.ExtractTraceparent(r.Header.Get("traceparent")); ok {
		// A valid incoming traceparent makes the query root span a child of
		// the caller's span rather than the start of a fresh trace, so a
		// cross-agent A2A call joins the same trace_id end to end.
		ctx = trace.ContextWithRemoteSpanContext(ctx, sc)
	}

	tracer := s.obsManager.Tracer("agentserver")
	ctx, span := tracer.Start(ctx, "query", trace.WithAttributes(
		observability.KindAttr(observability.KindQuery),
	))
	defer span.End()

	resp, err := s.runQuery(ctx, body)
	if err != nil {
		if ae, ok := err.(*appError); ok {
			writeError(w, ae)
			return
		}
		writeError(w, errInternal(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
