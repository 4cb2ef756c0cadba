// Package agentcard defines the discovery payload an agent process serves
// at /.well-known/agent-configuration and that peers cache after fetching it.
package agentcard

import (
	"fmt"
	"strings"
)

// Card describes one agent: its identity, transport URL, and the skills it
// advertises to other agents and to clients.
type Card struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Version      string       `json:"version"`
	URL          string       `json:"url"`
	Capabilities Capabilities `json:"capabilities"`
	Skills       []Skill      `json:"skills,omitempty"`
}

// Capabilities advertises optional transport features.
type Capabilities struct {
	Streaming         bool `json:"streaming,omitempty"`
	PushNotifications bool `json:"push_notifications,omitempty"`
}

// Skill is one capability an agent advertises, in the style of a function
// description: enough for another agent (or a human) to decide whether to
// call it.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// Summarize renders a one-block, human-readable description of c — its
// name, URL, description, and skill list — used both by query_agent's
// discover_agent tool result and by the registry's system-prompt block.
func (c Card) Summarize() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): %s", c.Name, c.URL, c.Description)
	for _, s := range c.Skills {
		fmt.Fprintf(&b, "\n  - %s: %s", s.Name, s.Description)
	}
	return b.String()
}
