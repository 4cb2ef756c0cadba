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
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder captures the status code written by the wrapped handler so
// it can be attached to the span and metric after the handler returns.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware wraps handlers mounted on an agent's chi router, starting an
// HTTP span and recording request metrics per call. agentName labels both.
func HTTPMiddleware(mgr *Manager, rec *Recorder, agentName string) func(http.Handler) http.Handler {
	tracer := mgr.Tracer("agentserver")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), r.URL.Path, trace.WithAttributes(
				KindAttr(KindQuery),
				attribute.String(AttrAgentName, agentName),
				attribute.String(AttrHTTPMethod, r.Method),
				attribute.String(AttrHTTPPath, r.URL.Path),
			))
			defer span.End()

			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r.WithContext(ctx))

			d := time.Since(start)
			span.SetAttributes(attribute.Int(AttrHTTPStatus, sr.status))
			if sr.status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(sr.status))
			}
			rec.RecordHTTPRequest(agentName, r.URL.Path, strconv.Itoa(sr.status), d)
		})
	}
}
