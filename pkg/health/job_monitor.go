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

package health

import (
	"context"
	"sync"
)

// JobMonitor runs one AgentMonitor per agent in a deployed job and owns
// their cancellation as a group, so orchestrator shutdown can cancel every
// probe task and wait for each to complete within one probe-timeout.
type JobMonitor struct {
	mu       sync.Mutex
	monitors map[string]*AgentMonitor
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewJobMonitor creates an empty JobMonitor.
func NewJobMonitor() *JobMonitor {
	return &JobMonitor{monitors: make(map[string]*AgentMonitor)}
}

// Watch starts probing agentID at url under policy, restarting it via
// restarter per policy, reporting transitions to cb. ctx is the parent
// context for the whole job monitor; Stop cancels every agent's probe loop.
func (jm *JobMonitor) Watch(ctx context.Context, agentID, url string, policy Policy, restarter Restarter, cb Callback) {
	jm.mu.Lock()
	ctx, cancel := context.WithCancel(ctx)
	prev := jm.cancel
	jm.cancel = func() {
		if prev != nil {
			prev()
		}
		cancel()
	}
	m := NewAgentMonitor(agentID, url, policy, restarter, cb)
	jm.monitors[agentID] = m
	jm.mu.Unlock()

	jm.wg.Add(1)
	go func() {
		defer jm.wg.Done()
		m.Run(ctx)
	}()
}

// Status returns the current state of agentID, if it is being watched.
func (jm *JobMonitor) Status(agentID string) (State, bool) {
	jm.mu.Lock()
	m, ok := jm.monitors[agentID]
	jm.mu.Unlock()
	if !ok {
		return "", false
	}
	return m.State(), true
}

// Stop cancels every probe task and waits for them to return.
func (jm *JobMonitor) Stop() {
	jm.mu.Lock()
	cancel := jm.cancel
	jm.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	jm.wg.Wait()
}
