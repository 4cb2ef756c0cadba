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

package backend

import (
	"fmt"
	"log/slog"
)

// Type names selectable via AGENT_BACKEND_TYPE.
const (
	TypeAnthropic = "anthropic"
	TypeEcho      = "echo"

	DefaultType = TypeEcho
)

// Config carries the construction parameters for every backend type; unused
// fields are ignored by a given implementation.
type Config struct {
	Type        string
	APIKey      string
	Model       string
	Host        string
	MaxTokens   int
	Temperature float64
	MaxRetries  int
}

// New constructs the Backend named by cfg.Type. An unrecognized type falls
// back to DefaultType with a warning rather than failing startup, since a
// misconfigured backend type should not take an otherwise-healthy agent
// process down.
//
// The returned value is an interface; call sites must invoke Query on the
// value this function returns and never special-case by type after the
// fact. Branching back to a specific implementation after dispatch has
// picked one defeats the point of the abstraction and is the dispatcher bug
// this package is designed to make structurally impossible.
func New(cfg Config) (Backend, error) {
	t := cfg.Type
	switch t {
	case TypeAnthropic, TypeEcho:
		// recognized
	case "":
		t = DefaultType
	default:
		slog.Warn("unknown backend type, falling back to default", "requested", cfg.Type, "default", DefaultType)
		t = DefaultType
	}

	switch t {
	case TypeAnthropic:
		return newAnthropicBackend(cfg)
	case TypeEcho:
		return newEchoBackend(cfg), nil
	default:
		return nil, fmt.Errorf("backend: unreachable type %q", t)
	}
}
