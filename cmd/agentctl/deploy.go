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

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/job"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/orchestrator"
)

// DeployCmd deploys a job definition and then blocks, supervising it, until
// it is interrupted. The orchestrator's live agent handles and health
// monitor only exist inside this process; stop/status/logs issued from a
// different invocation operate on the registry file and log directory
// instead (see stop.go/status.go/logs.go).
type DeployCmd struct {
	File string `arg:"" help:"Path to the job definition YAML file." type:"path"`
}

func (c *DeployCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	def, issues, err := job.NewLoader(c.File).Load(ctx)
	if err != nil {
		printIssues(issues)
		return fmt.Errorf("load job definition: %w", err)
	}
	printIssues(issues)

	reg, err := orchestrator.NewJobRegistry(cli.Registry)
	if err != nil {
		return fmt.Errorf("open job registry: %w", err)
	}
	orch := orchestrator.New(reg, cli.LogRoot)

	dj, err := orch.Deploy(ctx, def)
	if err != nil {
		return fmt.Errorf("deploy: %w", err)
	}

	fmt.Printf("job %s deployed (%d agents)\n", dj.JobID, len(dj.Agents))
	for id, rh := range dj.Agents {
		fmt.Printf("  %s  %s  %s\n", id, rh.Status, rh.URL)
	}
	fmt.Println("press Ctrl+C to stop")

	<-sigCh
	slog.Info("stop signal received, tearing down", "job", dj.JobID)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), def.Deployment.Timeout)
	defer stopCancel()
	if err := orch.Stop(stopCtx, dj.JobID, true); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	fmt.Printf("job %s stopped\n", dj.JobID)
	return nil
}

func printIssues(issues []job.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", iss.Kind, iss.Path, iss.Message)
	}
}
