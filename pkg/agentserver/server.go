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
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/a2a"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/agentcard"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/auth"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/backend"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/discovery"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/observability"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/session"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/tool"
)

// Server is one agent process's HTTP runtime: the A2A surface (§4.5) wired
// to a backend, a session store, the A2A transport, and observability.
type Server struct {
	cfg   Config
	class AgentClass

	backend      backend.Backend
	sessions     *session.Store
	transport    *a2a.Transport
	registry     *discovery.Registry
	mcp          *server.MCPServer
	jwtValidator *auth.JWTValidator

	obsManager *observability.Manager
	recorder   *observability.Recorder

	systemPrompt string
	inFlight     chan struct{}

	httpServer *http.Server
}

// New constructs a Server from cfg. It performs the startup sequence §4.5
// describes short of binding the listening socket: building the MCP server,
// initializing the backend, running agent-registry discovery, and
// synthesizing the effective system prompt. Run binds and serves.
func New(ctx context.Context, cfg Config, obsManager *observability.Manager, recorder *observability.Recorder) (*Server, error) {
	class := LookupClass(cfg.Module)

	be, err := backend.New(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("agentserver: init backend: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		class:      class,
		backend:    be,
		sessions:   session.NewStore(cfg.JobID, cfg.ID, cfg.MaxHistory, cfg.MaxSessions, cfg.SessionTTL),
		obsManager: obsManager,
		recorder:   recorder,
		inFlight:   make(chan struct{}, maxInFlight(cfg.MaxInFlight)),
	}

	if cfg.JWTJWKSURL != "" {
		v, err := auth.NewJWTValidator(cfg.JWTJWKSURL, cfg.JWTIssuer, cfg.JWTAudience)
		if err != nil {
			return nil, fmt.Errorf("agentserver: init JWT validator: %w", err)
		}
		s.jwtValidator = v
	}

	a2aCfg := a2a.ConfigFromEnv()
	a2aCfg.HTTPTimeout = cfg.HTTPTimeout
	reg := discovery.New()
	s.registry = reg
	s.transport = a2a.New(a2aCfg, obsManager.Tracer("a2a"), reg)

	if len(cfg.ConnectedAgents) > 0 {
		reg.Discover(ctx, s.transport, cfg.ConnectedAgents)
	}

	s.systemPrompt = reg.RenderPrompt(class.BasePrompt)

	s.mcp = server.NewMCPServer(cfg.Name, cfg.Version)
	s.transport.RegisterMCPTools(s.mcp)

	return s, nil
}

func maxInFlight(n int) int {
	if n <= 0 {
		return 16
	}
	return n
}

// Router builds the chi router serving the A2A HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(observability.HTTPMiddleware(s.obsManager, s.recorder, s.cfg.Name))

	r.Get("/health", s.handleHealth)
	r.Get("/.well-known/agent-configuration", s.handleAgentConfiguration)

	r.Group(func(gr chi.Router) {
		if s.cfg.AuthRequired {
			gr.Use(s.apiKeyMiddleware)
		}
		if s.jwtValidator != nil {
			gr.Use(s.jwtMiddleware)
		}
		gr.Post("/query", s.handleQuery)
	})

	return r
}

// apiKeyMiddleware accepts the key via header or query parameter, per §6.1:
// "header X-API-Key: <value> or query parameter api_key=<value>".
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-API-Key")
		if got == "" {
			got = r.URL.Query().Get("api_key")
		}
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.APIKey)) != 1 {
			writeError(w, &appError{Status: http.StatusUnauthorized, Kind: "unauthorized", Message: "missing or invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// jwtMiddleware sits alongside apiKeyMiddleware rather than replacing it:
// a job can require an API key, a JWT issuer, both, or neither. It delegates
// to auth.JWTValidator.HTTPMiddleware for the actual bearer-token
// verification and claim extraction.
func (s *Server) jwtMiddleware(next http.Handler) http.Handler {
	return s.jwtValidator.HTTPMiddleware(next)
}

// MCPServer returns the SDK MCP server exposing the A2A transport tools
// (and, once an agent class registers any, its domain tools too). A future
// MCP-over-HTTP transport mount would serve this; today it exists so a
// caller embedding this package in a single process can talk to the tools
// over MCP in-process without going through the HTTP surface at all.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

func (s *Server) card() agentcard.Card {
	return agentcard.Card{
		Name:        s.cfg.Name,
		Description: s.class.Description,
		Version:     s.cfg.Version,
		URL:         fmt.Sprintf("http://localhost:%d", s.cfg.Port),
		Capabilities: agentcard.Capabilities{
			Streaming: true,
		},
		Skills: s.class.Skills,
	}
}

// Run binds AGENT_PORT and serves until ctx is cancelled, then drains
// in-flight queries up to cfg.ShutdownGrace before returning.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         ":" + strconv.Itoa(s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("agent HTTP server starting", "agent", s.cfg.Name, "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown drains in-flight queries up to cfg.ShutdownGrace, closes the
// backend, and stops the observability manager.
func (s *Server) Shutdown(ctx context.Context) error {
	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.backend.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.obsManager != nil {
		if err := s.obsManager.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.jwtValidator != nil {
		s.jwtValidator.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("agentserver: shutdown errors: %v", errs)
	}
	return nil
}

// allowedTools gathers the A2A transport tools every agent gets plus the
// agent class's domain tools, in the stable order used both to build the
// backend's tool-definition list and to resolve a ToolInvocation by name.
func (s *Server) allowedTools() []tool.CallableTool {
	tools := s.transport.Tools()
	if s.class.Tools != nil {
		tools = append(tools, s.class.Tools()...)
	}
	return tools
}

func toolDefinitions(tools []tool.CallableTool) []backend.ToolDefinition {
	defs := make([]backend.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, backend.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}
