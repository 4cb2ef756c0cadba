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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// fileExporter implements sdktrace.SpanExporter, appending each span as one
// JSON line to a single file shared by every agent process in a job. Agents
// run as separate OS processes, so the file handle is opened O_APPEND per
// write rather than held open — O_APPEND write() calls are atomic with
// respect to each other on POSIX filesystems as long as each write is below
// the platform's atomic-write limit, which a single span line always is.
type fileExporter struct {
	mu   sync.Mutex
	path string
}

// newFileExporter creates the trace directory for jobID (under tracesDir)
// and returns an exporter that appends spans to tracesDir/jobID/spans.jsonl.
func newFileExporter(tracesDir, jobID string) (*fileExporter, error) {
	dir := filepath.Join(tracesDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("observability: create trace dir: %w", err)
	}
	return &fileExporter{path: filepath.Join(dir, "spans.jsonl")}, nil
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *fileExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("observability: open trace file: %w", err)
	}
	defer f.Close()

	for _, span := range spans {
		rec := toSpanRecord(span)
		line, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		line = append(line, '\n')
		if _, err := f.Write(line); err != nil {
			return fmt.Errorf("observability: write span: %w", err)
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *fileExporter) Shutdown(ctx context.Context) error { return nil }

func toSpanRecord(span sdktrace.ReadOnlySpan) SpanRecord {
	attrs := make(map[string]string, len(span.Attributes()))
	kind := ""
	for _, a := range span.Attributes() {
		key := string(a.Key)
		val := a.Value.AsString()
		if key == AttrSpanKind {
			kind = val
		}
		attrs[key] = val
	}

	status := "ok"
	if span.Status().Code.String() == "Error" {
		status = "error"
	}

	rec := SpanRecord{
		TraceID:     span.SpanContext().TraceID().String(),
		SpanID:      span.SpanContext().SpanID().String(),
		Name:        span.Name(),
		Kind:        kind,
		StartTimeNs: span.StartTime().UnixNano(),
		EndTimeNs:   span.EndTime().UnixNano(),
		Status:      status,
		Attributes:  attrs,
	}
	if span.Parent().HasSpanID() {
		rec.ParentSpanID = span.Parent().SpanID().String()
	}
	for _, ev := range span.Events() {
		evAttrs := make(map[string]string, len(ev.Attributes))
		for _, a := range ev.Attributes {
			evAttrs[string(a.Key)] = a.Value.AsString()
		}
		rec.Events = append(rec.Events, SpanEventRecord{
			Name:       ev.Name,
			TimeNs:     ev.Time.UnixNano(),
			Attributes: evAttrs,
		})
	}
	return rec
}

var _ sdktrace.SpanExporter = (*fileExporter)(nil)
