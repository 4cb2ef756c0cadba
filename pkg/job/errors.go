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

package job

import "strings"

// IssueKind names the category of a single validation problem. Kept
// separate from IssueSeverity so callers can group or count by cause.
type IssueKind string

const (
	IssueSchema       IssueKind = "schema"
	IssueUniqueness   IssueKind = "uniqueness"
	IssuePortConflict IssueKind = "port_conflict"
	IssueReference    IssueKind = "reference"
	IssueCycle        IssueKind = "cycle"
	IssueSSH          IssueKind = "ssh"
	IssuePortRange    IssueKind = "port_range"
)

// IssueSeverity distinguishes fatal problems from advisory warnings. Only
// warnings may coexist with a successful load.
type IssueSeverity string

const (
	SeverityFatal   IssueSeverity = "fatal"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one concrete validation problem, with enough context to print a
// path + kind + message line per the CLI's validate output.
type Issue struct {
	Kind     IssueKind
	Path     string
	Message  string
	Severity IssueSeverity
}

// IsFatal reports whether this issue must block a successful load.
func (i Issue) IsFatal() bool {
	return i.Severity != SeverityWarning
}

// LoadError is returned by Load/Parse when validation collects one or more
// fatal issues. It always carries every issue found, not just the first.
type LoadError struct {
	Issues []Issue
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("job definition invalid:")
	for _, iss := range e.Issues {
		b.WriteString("\n  [")
		b.WriteString(string(iss.Kind))
		b.WriteString("] ")
		if iss.Path != "" {
			b.WriteString(iss.Path)
			b.WriteString(": ")
		}
		b.WriteString(iss.Message)
	}
	return b.String()
}

// FatalIssues returns only the issues that blocked the load.
func (e *LoadError) FatalIssues() []Issue {
	var out []Issue
	for _, iss := range e.Issues {
		if iss.IsFatal() {
			out = append(out, iss)
		}
	}
	return out
}
