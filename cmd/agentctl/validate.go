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
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/job"
)

// ValidateCmd validates a job definition file and prints every issue found
// (schema, reference, port, cycle, SSH), not just the first.
type ValidateCmd struct {
	File   string `arg:"" help:"Path to the job definition YAML file." type:"path"`
	Format string `short:"f" help:"Output format: compact, verbose, json." default:"compact" enum:"compact,verbose,json"`
	Print  bool   `name:"print" help:"Print the decoded definition (defaults applied) alongside the result."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	def, issues, err := job.NewLoader(c.File).Load(context.Background())
	ok := err == nil

	switch c.Format {
	case "json":
		printValidationJSON(c.File, ok, issues)
	case "verbose":
		printValidationVerbose(c.File, ok, issues)
	default:
		printValidationCompact(c.File, ok, issues)
	}

	if ok && c.Print {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		_ = enc.Encode(def)
		enc.Close()
	}

	if !ok {
		return fmt.Errorf("%s: invalid", c.File)
	}
	return nil
}

type validationResult struct {
	Valid  bool        `json:"valid"`
	File   string      `json:"file"`
	Issues []job.Issue `json:"issues,omitempty"`
}

func printValidationJSON(file string, ok bool, issues []job.Issue) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(validationResult{Valid: ok, File: file, Issues: issues})
}

func printValidationVerbose(file string, ok bool, issues []job.Issue) {
	fmt.Printf("Job Definition Validation\n")
	fmt.Printf("=========================\n\n")
	fmt.Printf("File:   %s\n", file)
	if ok {
		fmt.Printf("Status: OK valid\n")
	} else {
		fmt.Printf("Status: invalid\n")
	}
	for _, iss := range issues {
		fmt.Printf("  [%s] %s: %s\n", iss.Kind, iss.Path, iss.Message)
	}
}

func printValidationCompact(file string, ok bool, issues []job.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: [%s] %s: %s\n", file, iss.Kind, iss.Path, iss.Message)
	}
	if ok {
		fmt.Printf("%s: valid\n", file)
	} else {
		fmt.Printf("%s: invalid\n", file)
	}
}
