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
	"time"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/orchestrator"
)

// StopCmd requests that a job stop. A job's live agent handles exist only
// inside the orchestrator process that deployed it (§ job registry
// persistence), so this only succeeds while that `agentctl deploy`
// invocation is still running in its own terminal/session; otherwise it
// reports the job unknown to this process, matching the registry model's
// documented limitation rather than silently no-oping.
type StopCmd struct {
	JobID    string `arg:"" help:"Job ID to stop."`
	Graceful bool   `default:"true" negatable:"" help:"Deliver a graceful stop before force-terminating."`
}

func (c *StopCmd) Run(cli *CLI) error {
	reg, err := orchestrator.NewJobRegistry(cli.Registry)
	if err != nil {
		return fmt.Errorf("open job registry: %w", err)
	}
	orch := orchestrator.New(reg, cli.LogRoot)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := orch.Stop(ctx, c.JobID, c.Graceful); err != nil {
		return fmt.Errorf("stop %s: %w (is the deploying `agentctl deploy` process still running?)", c.JobID, err)
	}
	fmt.Printf("job %s stopped\n", c.JobID)
	return nil
}
