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
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/backend"
)

// Config is everything one agent process needs to serve its HTTP surface,
// resolved once from the AGENT_* environment at startup (§6.5).
type Config struct {
	Port    int
	Name    string
	ID      string
	JobID   string
	Module  string
	Version string

	ConnectedAgents []string

	AuthRequired bool
	APIKey       string

	// JWTJWKSURL, when set, switches /query to accept a bearer JWT
	// validated against this JWKS instead of (or in addition to) the
	// API key — an external identity provider's issuer rather than a
	// shared secret this process holds.
	JWTJWKSURL  string
	JWTIssuer   string
	JWTAudience string

	HTTPTimeout time.Duration

	MaxHistory  int
	MaxSessions int
	SessionTTL  time.Duration

	MaxInFlight   int
	ShutdownGrace time.Duration

	Backend backend.Config
}

// ConfigFromEnv reads the agent process environment. Defaults match §5/§6.5
// where the spec gives one; AGENT_PORT is required by the caller (the
// process cannot usefully bind without it) but defaults to 0 here so
// validation lives at the call site, not buried in env parsing.
func ConfigFromEnv() Config {
	cfg := Config{
		Port:          envInt("AGENT_PORT", 0),
		Name:          os.Getenv("AGENT_NAME"),
		ID:            os.Getenv("AGENT_ID"),
		JobID:         os.Getenv("AGENT_JOB_ID"),
		Module:        os.Getenv("AGENT_MODULE"),
		Version:       envOr("AGENT_VERSION", "0.1.0"),
		AuthRequired:  os.Getenv("AGENT_AUTH_REQUIRED") == "true",
		APIKey:        os.Getenv("AGENT_API_KEY"),
		JWTJWKSURL:    os.Getenv("AGENT_JWT_JWKS_URL"),
		JWTIssuer:     os.Getenv("AGENT_JWT_ISSUER"),
		JWTAudience:   os.Getenv("AGENT_JWT_AUDIENCE"),
		HTTPTimeout:   envDuration("AGENT_HTTP_TIMEOUT", 30*time.Second),
		MaxHistory:    envInt("AGENT_MAX_HISTORY", 50),
		MaxSessions:   envInt("AGENT_MAX_SESSIONS", 1000),
		SessionTTL:    envDuration("AGENT_SESSION_TTL", time.Hour),
		MaxInFlight:   envInt("AGENT_MAX_IN_FLIGHT", 16),
		ShutdownGrace: envDuration("AGENT_SHUTDOWN_GRACE", 5*time.Second),
		Backend: backend.Config{
			Type:        envOr("AGENT_BACKEND_TYPE", backend.DefaultType),
			APIKey:      os.Getenv("AGENT_BACKEND_API_KEY"),
			Model:       os.Getenv("AGENT_BACKEND_MODEL"),
			Host:        os.Getenv("AGENT_BACKEND_HOST"),
			MaxTokens:   envInt("AGENT_BACKEND_MAX_TOKENS", 0),
			Temperature: envFloat("AGENT_BACKEND_TEMPERATURE", 0),
			MaxRetries:  envInt("AGENT_BACKEND_MAX_RETRIES", 3),
		},
	}

	if v := os.Getenv("CONNECTED_AGENTS"); v != "" {
		for _, u := range strings.Split(v, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				cfg.ConnectedAgents = append(cfg.ConnectedAgents, u)
			}
		}
	}

	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
