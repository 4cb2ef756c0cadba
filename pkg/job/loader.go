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

import (
	"context"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Loader reads a job YAML file from disk, expands environment references,
// decodes it, applies defaults, and validates it end to end. Adapted from
// the config-loader pipeline pattern: read -> parse -> expand -> decode ->
// defaults -> validate.
type Loader struct {
	path string
}

// NewLoader creates a Loader for the job file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load runs the full load pipeline and returns a validated JobDefinition
// plus every issue found (including non-fatal warnings). err is non-nil
// (a *LoadError) only when a fatal issue is present.
func (l *Loader) Load(ctx context.Context) (*JobDefinition, []Issue, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read job file: %w", err)
	}
	return Parse(data)
}

// Parse runs the load pipeline over in-memory bytes (used by Loader.Load,
// which `agentctl deploy` and `agentctl validate` call, and directly by tests).
func Parse(data []byte) (*JobDefinition, []Issue, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		le := &LoadError{Issues: []Issue{{Kind: IssueSchema, Message: fmt.Sprintf("invalid YAML: %v", err)}}}
		return nil, le.Issues, le
	}
	if raw == nil {
		raw = map[string]any{}
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		le := &LoadError{Issues: []Issue{{Kind: IssueSchema, Message: err.Error()}}}
		return nil, le.Issues, le
	}

	normalizeTopology(expanded)

	def := &JobDefinition{}
	if err := decode(expanded, def); err != nil {
		le := &LoadError{Issues: []Issue{{Kind: IssueSchema, Message: fmt.Sprintf("decode: %v", err)}}}
		return nil, le.Issues, le
	}

	def.SetDefaults()

	issues := Validate(def)
	var fatal []Issue
	for _, iss := range issues {
		if iss.IsFatal() {
			fatal = append(fatal, iss)
		}
	}
	if len(fatal) > 0 {
		return nil, issues, &LoadError{Issues: issues}
	}

	return def, issues, nil
}

func decode(input map[string]any, out *JobDefinition) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	return decoder.Decode(input)
}

// normalizeTopology rewrites the scalar-or-list shorthand fields
// (`topology.stages[i]`, `topology.edges[i].to`) into plain lists so the
// mapstructure decode step sees a uniform shape.
func normalizeTopology(raw map[string]any) {
	topo, ok := raw["topology"].(map[string]any)
	if !ok {
		return
	}

	if stages, ok := topo["stages"].([]any); ok {
		norm := make([]any, len(stages))
		for i, s := range stages {
			norm[i] = map[string]any{"ids": toStringList(s)}
		}
		topo["stages"] = norm
	}

	if edges, ok := topo["edges"].([]any); ok {
		for _, e := range edges {
			em, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if to, ok := em["to"]; ok {
				em["to"] = toStringList(to)
			}
		}
	}
}

func toStringList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	default:
		return []any{t}
	}
}
