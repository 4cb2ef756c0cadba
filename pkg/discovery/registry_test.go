package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/agentcard"
)

type fakeDiscoverer struct {
	cards map[string]agentcard.Card
}

func (f *fakeDiscoverer) DiscoverAgent(ctx context.Context, agentURL string) (agentcard.Card, error) {
	card, ok := f.cards[agentURL]
	if !ok {
		return agentcard.Card{}, fmt.Errorf("no card for %s", agentURL)
	}
	return card, nil
}

func TestDiscover_PopulatesRegistryForSuccessfulURLs(t *testing.T) {
	d := &fakeDiscoverer{cards: map[string]agentcard.Card{
		"http://a": {Name: "a", Description: "agent a"},
	}}
	r := New()
	r.Discover(context.Background(), d, []string{"http://a", "http://b"})

	card, ok := r.ByURL("http://a")
	require.True(t, ok)
	assert.Equal(t, "a", card.Name)

	_, ok = r.ByURL("http://b")
	assert.False(t, ok)
}

func TestRenderPrompt_ListsDiscoveredAndFailedAgents(t *testing.T) {
	d := &fakeDiscoverer{cards: map[string]agentcard.Card{
		"http://a": {Name: "a", Description: "agent a", Skills: []agentcard.Skill{{Name: "search", Description: "search docs"}}},
	}}
	r := New()
	r.Discover(context.Background(), d, []string{"http://a", "http://b"})

	prompt := r.RenderPrompt("base prompt")
	assert.Contains(t, prompt, "base prompt")
	assert.Contains(t, prompt, "Connected agents:")
	assert.Contains(t, prompt, "agent a")
	assert.Contains(t, prompt, "search")
	assert.Contains(t, prompt, "http://b: capabilities not retrievable")
}

func TestRenderPrompt_NoAgentsReturnsBaseUnchanged(t *testing.T) {
	r := New()
	assert.Equal(t, "base", r.RenderPrompt("base"))
}
