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

import "context"

// Backend is the uniform query contract every provider implementation
// satisfies. Query returns a channel of BackendMessage values; the channel
// is closed after a Done message, or without one when ctx is cancelled or
// the provider stream ends early. Failures before streaming starts are
// returned as Query's error; no error value is sent on the channel.
//
// Fresh-client-per-query is mandatory: Query must not reuse state from a
// prior call beyond what was cached at construction time (auth, model
// negotiation). Implementations that stash per-query state on the receiver
// and reuse it across calls reproduce the truncated-response bug this
// contract exists to avoid.
type Backend interface {
	Query(ctx context.Context, systemPrompt string, history []Message, tools []ToolDefinition) (<-chan BackendMessage, error)

	// Name identifies the backend for logs and spans, e.g. "anthropic".
	Name() string

	// Close releases resources cached at construction time (connections,
	// negotiated model info). Called once at agent shutdown, not per-query.
	Close() error
}

// Error wraps a backend-side failure (model unavailable, protocol
// violation, network error) so callers can distinguish it from a tool or
// application error.
type Error struct {
	Backend string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "backend " + e.Backend + ": " + e.Message + ": " + e.Err.Error()
	}
	return "backend " + e.Backend + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }
