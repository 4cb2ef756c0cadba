package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/agentcard"
)

func allowAllConfig() Config {
	return Config{
		MinPort:          1,
		MaxPort:          65535,
		HTTPTimeout:      2 * time.Second,
		DiscoveryTimeout: 2 * time.Second,
		AllowPrivateNets: true,
	}
}

func TestQueryAgent_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Query)
		json.NewEncoder(w).Encode(queryResponse{Response: "world", SessionID: "sess-1"})
	}))
	defer srv.Close()

	transport := New(allowAllConfig(), nil, nil)
	resp, err := transport.QueryAgent(context.Background(), srv.URL, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "world", resp)
}

func TestQueryAgent_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	transport := New(allowAllConfig(), nil, nil)
	_, err := transport.QueryAgent(context.Background(), srv.URL, "hello", "")
	assert.Error(t, err)
}

func TestQueryAgent_BlockedHostNeverReachesNetwork(t *testing.T) {
	cfg := allowAllConfig()
	cfg.AllowedHosts = []string{"only-this-host"}
	transport := New(cfg, nil, nil)
	_, err := transport.QueryAgent(context.Background(), "http://127.0.0.1:9999", "hello", "")
	assert.Error(t, err)
	var blocked *ErrHostBlocked
	assert.ErrorAs(t, err, &blocked)
}

func TestDiscoverAgent_Success(t *testing.T) {
	card := agentcard.Card{Name: "planner", Description: "plans things", URL: "http://planner"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/.well-known/agent-configuration", r.URL.Path)
		json.NewEncoder(w).Encode(card)
	}))
	defer srv.Close()

	transport := New(allowAllConfig(), nil, nil)
	got, err := transport.DiscoverAgent(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "planner", got.Name)
}

func TestTools_QueryAgentToolReturnsErrorFieldNotGoError(t *testing.T) {
	transport := New(allowAllConfig(), nil, nil)
	tools := transport.Tools()
	require.Len(t, tools, 2)

	var queryTool = tools[0]
	assert.Equal(t, "query_agent", queryTool.Name())

	ctx := newTestToolContext()
	result, err := queryTool.Call(ctx, map[string]any{
		"agent_url": "http://127.0.0.1:1",
		"query":     "hi",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result["error"])
}

type testToolContext struct{ context.Context }

func (c *testToolContext) FunctionCallID() string { return "fc-1" }
func (c *testToolContext) SessionID() string      { return "sess-1" }

func newTestToolContext() *testToolContext {
	return &testToolContext{Context: context.Background()}
}
