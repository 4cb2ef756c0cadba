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
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LogsCmd tails an agent's captured stdout/stderr. Log files live at
// <log-root>/<job_id>/<agent_id>.{stdout,stderr}.log regardless of which
// process wrote them, so unlike stop/status this works from any CLI
// invocation without needing a live orchestrator.
type LogsCmd struct {
	JobID  string `arg:"" help:"Job ID."`
	Agent  string `help:"Agent ID; every agent's logs if omitted."`
	Stream string `help:"Which stream to show: stdout, stderr, both." default:"stdout" enum:"stdout,stderr,both"`
	Tail   int    `help:"Number of trailing lines per file." default:"100"`
}

func (c *LogsCmd) Run(cli *CLI) error {
	jobDir := filepath.Join(cli.LogRoot, c.JobID)
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		return fmt.Errorf("read log directory %s: %w", jobDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if c.Agent != "" && !strings.HasPrefix(name, c.Agent+".") {
			continue
		}
		if c.Stream != "both" && !strings.HasSuffix(name, "."+c.Stream+".log") {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	if len(files) == 0 {
		return fmt.Errorf("no log files matched under %s", jobDir)
	}

	for _, name := range files {
		fmt.Printf("== %s ==\n", name)
		lines, err := tailLines(filepath.Join(jobDir, name), c.Tail)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  (could not read: %v)\n", err)
			continue
		}
		for _, l := range lines {
			fmt.Println(l)
		}
	}
	return nil
}

func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}
