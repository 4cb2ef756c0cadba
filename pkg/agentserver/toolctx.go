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

package agentserver

import "context"

// toolCallContext implements tool.Context for one tool invocation inside a
// query's ReAct loop.
type toolCallContext struct {
	context.Context
	callID    string
	sessionID string
}

func newToolCallContext(ctx context.Context, callID, sessionID string) *toolCallContext {
	return &toolCallContext{Context: ctx, callID: callID, sessionID: sessionID}
}

func (c *toolCallContext) FunctionCallID() string { return c.callID }
func (c *toolCallContext) SessionID() string      { return c.sessionID }
