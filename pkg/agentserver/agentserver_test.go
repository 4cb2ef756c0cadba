package agentserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/backend"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/observability"
)

func testServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := Config{
		Name:          "test-agent",
		ID:            "agent-1",
		JobID:         "job-1",
		Version:       "0.1.0",
		HTTPTimeout:   2 * time.Second,
		MaxHistory:    50,
		MaxSessions:   100,
		SessionTTL:    time.Hour,
		MaxInFlight:   2,
		ShutdownGrace: time.Second,
		Backend:       backend.Config{Type: backend.TypeEcho},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	mgr, err := observability.NewManager(context.Background(), observability.Config{Enabled: false})
	require.NoError(t, err)
	rec := observability.NewRecorder("test")

	s, err := New(context.Background(), cfg, mgr, rec)
	require.NoError(t, err)
	return s
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "test-agent", body.Agent)
}

func TestHandleAgentConfiguration(t *testing.T) {
	s := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent-configuration", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test-agent")
}

func postQuery(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHandleQuery_RoundTripWithEcho(t *testing.T) {
	s := testServer(t, nil)
	w := postQuery(s, `{"query":"hello there"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body queryResponseBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Response, "hello there")
	assert.NotEmpty(t, body.SessionID)
}

func TestHandleQuery_InvalidJSONIsBadRequest(t *testing.T) {
	s := testServer(t, nil)
	w := postQuery(s, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleQuery_MissingQueryIsUnprocessable(t *testing.T) {
	s := testServer(t, nil)
	w := postQuery(s, `{"session_id":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleQuery_SessionContinuity(t *testing.T) {
	s := testServer(t, nil)

	w1 := postQuery(s, `{"query":"My name is Alice"}`)
	require.Equal(t, http.StatusOK, w1.Code)
	var body1 queryResponseBody
	require.NoError(t, json.Unmarshal(w1.Body.Bytes(), &body1))
	sessionID := body1.SessionID

	w2 := postQuery(s, `{"query":"What is my name?","session_id":"`+sessionID+`"}`)
	require.Equal(t, http.StatusOK, w2.Code)

	w3 := postQuery(s, `{"query":"What is my name?","session_id":"not-the-same-session"}`)
	require.Equal(t, http.StatusOK, w3.Code)
	var body3 queryResponseBody
	require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &body3))
	assert.NotEqual(t, sessionID, body3.SessionID)
}

func TestHandleQuery_AuthRequiredRejectsMissingKey(t *testing.T) {
	s := testServer(t, func(c *Config) {
		c.AuthRequired = true
		c.APIKey = "secret"
	})
	w := postQuery(s, `{"query":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleQuery_AuthRequiredAcceptsHeaderOrQueryParam(t *testing.T) {
	s := testServer(t, func(c *Config) {
		c.AuthRequired = true
		c.APIKey = "secret"
	})

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(`{"query":"hi"}`))
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/query?api_key=secret", bytes.NewBufferString(`{"query":"hi"}`))
	w2 := httptest.NewRecorder()
	s.Router().ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestHandleQuery_OverCapacityReturns429(t *testing.T) {
	s := testServer(t, func(c *Config) { c.MaxInFlight = 1 })
	s.inFlight <- struct{}{} // occupy the only slot

	w := postQuery(s, `{"query":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHandleQuery_ForbiddenTargetURL(t *testing.T) {
	s := testServer(t, nil)
	w := postQuery(s, `{"query":"hi","context":{"target_url":"http://169.254.169.254/"}}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMCPServer_IsConstructed(t *testing.T) {
	s := testServer(t, nil)
	assert.NotNil(t, s.MCPServer())
}

func TestLookupClass_FallsBackToEcho(t *testing.T) {
	c := LookupClass("does-not-exist")
	assert.Equal(t, "echo", c.Name)
}
