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

// Package observability records distributed trace spans and Prometheus
// metrics for an agent process, and exports spans as one JSON object per line to a
// per-job trace file so a cross-agent trace can be reconstructed offline by
// joining on trace_id.
package observability

import "go.opentelemetry.io/otel/attribute"

// Span kind values. A kind is recorded as the "span.kind" attribute on every
// span this package starts.
const (
	KindQuery     = "query"
	KindLLM       = "llm"
	KindTool      = "tool"
	KindA2A       = "a2a"
	KindAgentLife = "agent:start"
)

// Attribute keys used across span kinds.
const (
	AttrSpanKind        = "span.kind"
	AttrAgentName       = "agent.name"
	AttrAgentID         = "agent.id"
	AttrJobID           = "job.id"
	AttrSessionID       = "session.id"
	AttrToolName        = "tool.name"
	AttrToolInputLen    = "tool.input_length"
	AttrToolResultLen   = "tool.result_length"
	AttrIsError         = "is_error"
	AttrTargetURL       = "target.url"
	AttrTargetName      = "target.name"
	AttrStatus          = "status"
	AttrDurationMs      = "duration_ms"
	AttrTracePropagated = "trace.propagated"
	AttrLLMModel        = "llm.model"
	AttrLLMBackend      = "llm.backend"
	AttrHTTPMethod      = "http.method"
	AttrHTTPPath        = "http.path"
	AttrHTTPStatus      = "http.status_code"
)

// KindAttr is a convenience constructor for the span.kind attribute.
func KindAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrSpanKind, kind)
}

// SpanRecord is the serialized form of a span written to the trace file. It
// mirrors the wire shape documented for trace export: one JSON object per
// line, fields flattened to plain Go types so no OTel-specific decoder is
// needed to read a trace back.
type SpanRecord struct {
	TraceID      string            `json:"trace_id"`
	SpanID       string            `json:"span_id"`
	ParentSpanID string            `json:"parent_span_id,omitempty"`
	Name         string            `json:"name"`
	Kind         string            `json:"kind"`
	StartTimeNs  int64             `json:"start_time_ns"`
	EndTimeNs    int64             `json:"end_time_ns"`
	Status       string            `json:"status"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Events       []SpanEventRecord `json:"events,omitempty"`
}

// SpanEventRecord is one event recorded on a span (e.g. an error).
type SpanEventRecord struct {
	Name       string            `json:"name"`
	TimeNs     int64             `json:"time_ns"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
