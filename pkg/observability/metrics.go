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

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface an agent process uses while serving
// queries. A nil *Recorder is valid and records nothing, so call sites never
// need a separate disabled-metrics branch.
type Recorder struct {
	registry *prometheus.Registry

	queryCalls    *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	queryErrors   *prometheus.CounterVec

	llmCalls    *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	toolErrors   *prometheus.CounterVec

	a2aCalls    *prometheus.CounterVec
	a2aDuration *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	healthState *prometheus.GaugeVec
}

// NewRecorder builds a Recorder on its own registry — agents run as
// separate processes, but a single process may host more than one
// Orchestrator/health-monitor instance in tests, and the default global
// registry panics on duplicate registration across instances.
func NewRecorder(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		queryCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "query_calls_total", Help: "Total /query invocations.",
		}, []string{"agent"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_duration_seconds", Help: "Query handling latency.",
		}, []string{"agent"}),
		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "query_errors_total", Help: "Query failures by kind.",
		}, []string{"agent", "kind"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_calls_total", Help: "Backend invocations.",
		}, []string{"agent", "backend"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "llm_duration_seconds", Help: "Backend call latency.",
		}, []string{"agent", "backend"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tool_calls_total", Help: "Tool invocations.",
		}, []string{"agent", "tool"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tool_duration_seconds", Help: "Tool call latency.",
		}, []string{"agent", "tool"}),
		toolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tool_errors_total", Help: "Tool call failures.",
		}, []string{"agent", "tool"}),
		a2aCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "a2a_calls_total", Help: "Outbound A2A calls.",
		}, []string{"agent", "target"}),
		a2aDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "a2a_duration_seconds", Help: "Outbound A2A call latency.",
		}, []string{"agent", "target"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests served.",
		}, []string{"agent", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_duration_seconds", Help: "HTTP request latency.",
		}, []string{"agent", "path"}),
		healthState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "agent_health_state", Help: "Current health-monitor state, 1 for the active state per agent.",
		}, []string{"agent", "state"}),
	}

	reg.MustRegister(
		r.queryCalls, r.queryDuration, r.queryErrors,
		r.llmCalls, r.llmDuration,
		r.toolCalls, r.toolDuration, r.toolErrors,
		r.a2aCalls, r.a2aDuration,
		r.httpRequests, r.httpDuration,
		r.healthState,
	)
	return r
}

func (r *Recorder) RecordQuery(agent string, d time.Duration, errKind string) {
	if r == nil {
		return
	}
	r.queryCalls.WithLabelValues(agent).Inc()
	r.queryDuration.WithLabelValues(agent).Observe(d.Seconds())
	if errKind != "" {
		r.queryErrors.WithLabelValues(agent, errKind).Inc()
	}
}

func (r *Recorder) RecordLLMCall(agent, backend string, d time.Duration) {
	if r == nil {
		return
	}
	r.llmCalls.WithLabelValues(agent, backend).Inc()
	r.llmDuration.WithLabelValues(agent, backend).Observe(d.Seconds())
}

func (r *Recorder) RecordToolCall(agent, tool string, d time.Duration, isError bool) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(agent, tool).Inc()
	r.toolDuration.WithLabelValues(agent, tool).Observe(d.Seconds())
	if isError {
		r.toolErrors.WithLabelValues(agent, tool).Inc()
	}
}

func (r *Recorder) RecordA2ACall(agent, target string, d time.Duration) {
	if r == nil {
		return
	}
	r.a2aCalls.WithLabelValues(agent, target).Inc()
	r.a2aDuration.WithLabelValues(agent, target).Observe(d.Seconds())
}

func (r *Recorder) RecordHTTPRequest(agent, path, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(agent, path, status).Inc()
	r.httpDuration.WithLabelValues(agent, path).Observe(d.Seconds())
}

// SetHealthState zeroes every other known state for agent and sets state to 1.
func (r *Recorder) SetHealthState(agent string, states []string, active string) {
	if r == nil {
		return
	}
	for _, s := range states {
		v := 0.0
		if s == active {
			v = 1.0
		}
		r.healthState.WithLabelValues(agent, s).Set(v)
	}
}

// Handler exposes the registry over HTTP for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
