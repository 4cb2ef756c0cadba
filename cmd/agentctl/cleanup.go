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

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/orchestrator"
)

// CleanupCmd removes stopped/failed entries from the job registry.
type CleanupCmd struct{}

func (c *CleanupCmd) Run(cli *CLI) error {
	reg, err := orchestrator.NewJobRegistry(cli.Registry)
	if err != nil {
		return fmt.Errorf("open job registry: %w", err)
	}
	orch := orchestrator.New(reg, cli.LogRoot)

	removed, err := orch.Cleanup(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("removed %d entries\n", removed)
	return nil
}
