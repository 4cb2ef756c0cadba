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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/agentserver"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/observability"
)

// ServeCmd runs this process as a single agent, the way the orchestrator's
// runner invokes it: every setting comes from the AGENT_* environment (see
// pkg/agentserver.ConfigFromEnv), not CLI flags, since the orchestrator
// composes that environment per agent rather than constructing a command
// line.
type ServeCmd struct{}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg := agentserver.ConfigFromEnv()
	if cfg.Port == 0 {
		return fmt.Errorf("AGENT_PORT is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("agent shutting down", "agent", cfg.Name)
		cancel()
	}()

	obsCfg := observability.Config{
		Enabled:     os.Getenv("AGENT_OBSERVABILITY_ENABLED") != "false",
		TracesDir:   envOrDefault("AGENT_TRACES_DIR", "traces"),
		JobID:       cfg.JobID,
		ServiceName: cfg.Name,
		StdoutDebug: os.Getenv("AGENT_OBSERVABILITY_STDOUT") == "true",
	}
	mgr, err := observability.NewManager(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	rec := observability.NewRecorder(cfg.Name)

	srv, err := agentserver.New(ctx, cfg, mgr, rec)
	if err != nil {
		return fmt.Errorf("init agent server: %w", err)
	}

	slog.Info("agent starting", "agent", cfg.Name, "port", cfg.Port, "module", cfg.Module)
	return srv.Run(ctx)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
