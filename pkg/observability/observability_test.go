package observability

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_DisabledIsNoop(t *testing.T) {
	mgr, err := NewManager(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	tracer := mgr.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-span")
	span.End()
	require.NoError(t, mgr.Shutdown(context.Background()))
}

func TestNewManager_WritesJSONLTraceFile(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(context.Background(), Config{
		Enabled:     true,
		TracesDir:   dir,
		JobID:       "job-1",
		ServiceName: "agent-a",
	})
	require.NoError(t, err)

	tracer := mgr.Tracer("test")
	_, span := tracer.Start(context.Background(), "query")
	span.End()
	require.NoError(t, mgr.Shutdown(context.Background()))

	path := filepath.Join(dir, "job-1", "spans.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	count := 0
	for scanner.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		assert.NotEmpty(t, rec.TraceID)
		assert.NotEmpty(t, rec.SpanID)
		assert.Equal(t, "query", rec.Name)
		count++
	}
	assert.Equal(t, 1, count)
}

func TestNewManager_ConcurrentSpansAppendCleanly(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(context.Background(), Config{
		Enabled: true, TracesDir: dir, JobID: "job-concurrent", ServiceName: "agent-a",
	})
	require.NoError(t, err)
	tracer := mgr.Tracer("worker")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, span := tracer.Start(context.Background(), "span")
			span.End()
		}()
	}
	wg.Wait()
	require.NoError(t, mgr.Shutdown(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "job-concurrent", "spans.jsonl"))
	require.NoError(t, err)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lines := 0
	for scanner.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		lines++
	}
	assert.Equal(t, 20, lines)
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordQuery("agent", time.Millisecond, "")
		r.RecordLLMCall("agent", "openai", time.Millisecond)
		r.RecordToolCall("agent", "search", time.Millisecond, true)
		r.RecordA2ACall("agent", "http://other", time.Millisecond)
		r.RecordHTTPRequest("agent", "/query", "200", time.Millisecond)
		r.SetHealthState("agent", []string{"healthy", "failed"}, "healthy")
	})

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.Handler().ServeHTTP(resp, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestRecorder_ExposesMetrics(t *testing.T) {
	r := NewRecorder("agentctl_test")
	r.RecordQuery("agent-a", 5*time.Millisecond, "")
	r.RecordHTTPRequest("agent-a", "/query", "200", time.Millisecond)

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.Handler().ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "agentctl_test_query_calls_total")
}

func TestHTTPMiddleware_RecordsStatusAndSpan(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(context.Background(), Config{
		Enabled: true, TracesDir: dir, JobID: "job-mw", ServiceName: "agent-a",
	})
	require.NoError(t, err)
	rec := NewRecorder("agentctl_mw_test")

	handler := HTTPMiddleware(mgr, rec, "agent-a")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.NoError(t, mgr.Shutdown(context.Background()))

	assert.Equal(t, http.StatusTeapot, resp.Code)

	data, err := os.ReadFile(filepath.Join(dir, "job-mw", "spans.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"/query\"")
}
