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
	"encoding/json"
	"fmt"
	"os"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/orchestrator"
)

// StatusCmd prints the persisted registry summary for one job, or every
// job known to the registry when JobID is omitted. This reads the registry
// file directly and needs no live orchestrator process.
type StatusCmd struct {
	JobID string `arg:"" optional:"" help:"Job ID to show; all jobs if omitted."`
	JSON  bool   `help:"Print as JSON instead of a table."`
}

func (c *StatusCmd) Run(cli *CLI) error {
	reg, err := orchestrator.NewJobRegistry(cli.Registry)
	if err != nil {
		return fmt.Errorf("open job registry: %w", err)
	}

	if c.JobID != "" {
		s, ok, err := reg.Get(c.JobID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("job %s not found in registry", c.JobID)
		}
		return printSummaries(c.JSON, []orchestrator.Summary{s})
	}

	all, err := reg.List()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("no jobs in registry")
		return nil
	}
	return printSummaries(c.JSON, all)
}

func printSummaries(asJSON bool, summaries []orchestrator.Summary) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	for _, s := range summaries {
		fmt.Printf("%-30s %-10s %-12s started=%s\n", s.JobID, s.Name, s.State, s.StartTime.Format("2006-01-02T15:04:05"))
		for id, url := range s.AgentURLs {
			fmt.Printf("    %-20s %s\n", id, url)
		}
	}
	return nil
}
