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
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config configures a Manager. TracesDir and JobID select the per-job JSONL
// sink (§6.4); StdoutDebug additionally mirrors spans to stdout, useful when
// running an agent outside an orchestrated job for manual inspection.
type Config struct {
	Enabled     bool
	TracesDir   string
	JobID       string
	ServiceName string
	StdoutDebug bool
}

// Manager owns the TracerProvider for one agent process and its shutdown.
type Manager struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// NewManager builds a Manager per cfg. When cfg.Enabled is false, the
// returned Manager's Tracer calls are no-ops.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return &Manager{provider: noop.NewTracerProvider(), shutdown: func(context.Context) error { return nil }}, nil
	}

	var exporters []sdktrace.SpanExporter

	if cfg.TracesDir != "" && cfg.JobID != "" {
		fe, err := newFileExporter(cfg.TracesDir, cfg.JobID)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, fe)
	}

	if cfg.StdoutDebug {
		se, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("observability: stdout exporter: %w", err)
		}
		exporters = append(exporters, se)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "agent"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("observability: resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	for _, e := range exporters {
		// WithSyncer exports each span as it ends rather than batching, so a
		// span is visible in the trace file as soon as its handler returns.
		opts = append(opts, sdktrace.WithSyncer(e))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	return &Manager{
		provider: tp,
		shutdown: tp.Shutdown,
	}, nil
}

// Tracer returns a named tracer bound to this manager's provider.
func (m *Manager) Tracer(name string) trace.Tracer {
	if m == nil || m.provider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return m.provider.Tracer(name)
}

// Shutdown flushes and closes every exporter.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil || m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx)
}
