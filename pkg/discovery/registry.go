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

// Package discovery implements the agent registry: parallel bounded-timeout
// discovery of connected peers at startup, and the read-mostly lookups C5
// and C7 use afterward.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/agentcard"
	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/registry"
)

// Discoverer fetches one agent's card. *a2a.Transport satisfies this via its
// DiscoverAgent method; kept as an interface here so discovery never
// imports a2a and a2a can freely import discovery's consumers.
type Discoverer interface {
	DiscoverAgent(ctx context.Context, agentURL string) (agentcard.Card, error)
}

// Registry caches discovered AgentCards keyed by URL.
type Registry struct {
	byURL *registry.BaseRegistry[agentcard.Card]

	mu     sync.RWMutex
	failed map[string]struct{}
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		byURL:  registry.NewBaseRegistry[agentcard.Card](),
		failed: make(map[string]struct{}),
	}
}

// Discover fetches the card for every URL in urls concurrently, each bounded
// by the Discoverer's own per-call timeout. URLs that fail are recorded so
// RenderPrompt can still mention them.
func (r *Registry) Discover(ctx context.Context, d Discoverer, urls []string) {
	var wg sync.WaitGroup
	for _, u := range urls {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()
			card, err := d.DiscoverAgent(ctx, u)
			if err != nil {
				r.mu.Lock()
				r.failed[u] = struct{}{}
				r.mu.Unlock()
				return
			}
			_ = r.byURL.Register(u, card)
		}()
	}
	wg.Wait()
}

// ByURL returns the card discovered for url, if any.
func (r *Registry) ByURL(url string) (agentcard.Card, bool) {
	return r.byURL.Get(url)
}

// RenderPrompt appends a "Connected agents:" block to base, listing every
// successfully discovered card (name, URL, description, skills) and, for
// each URL that failed discovery, a note that capabilities were not
// retrievable.
func (r *Registry) RenderPrompt(base string) string {
	cards := r.byURL.List()
	r.mu.RLock()
	failed := make([]string, 0, len(r.failed))
	for u := range r.failed {
		failed = append(failed, u)
	}
	r.mu.RUnlock()

	if len(cards) == 0 && len(failed) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nConnected agents:\n")
	for _, c := range cards {
		fmt.Fprintf(&b, "- %s\n", c.Summarize())
	}
	for _, u := range failed {
		fmt.Fprintf(&b, "- %s: capabilities not retrievable (discovery failed)\n", u)
	}
	return b.String()
}
