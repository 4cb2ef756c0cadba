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

// Command agentctl deploys and manages multi-agent jobs.
//
// Usage:
//
//	agentctl deploy job.yaml
//	agentctl status <job_id>
//	agentctl stop <job_id>
//	agentctl logs <job_id> --agent worker-1
//	agentctl validate job.yaml
//	agentctl serve
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Deploy   DeployCmd   `cmd:"" help:"Deploy a job definition and supervise it in the foreground."`
	Stop     StopCmd     `cmd:"" help:"Stop a deployed job."`
	Status   StatusCmd   `cmd:"" help:"Show the status of one or all deployed jobs."`
	Logs     LogsCmd     `cmd:"" help:"Show an agent's captured stdout/stderr."`
	Validate ValidateCmd `cmd:"" help:"Validate a job definition file."`
	Cleanup  CleanupCmd  `cmd:"" help:"Remove stopped/failed entries from the job registry."`
	Serve    ServeCmd    `cmd:"" help:"Run this process as a single agent (used by deployed agent processes)."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the job definition format."`

	Registry  string `help:"Path to the job registry file." default:".agentctl/jobs.jsonl" type:"path"`
	LogRoot   string `help:"Root directory for per-agent log files." default:".agentctl/logs" type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or custom)." default:"simple"`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentctl"),
		kong.Description("Deploy and manage multi-agent jobs"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
