package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan BackendMessage) []BackendMessage {
	t.Helper()
	var out []BackendMessage
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, m)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for backend message")
		}
	}
}

func TestNew_DefaultsToEchoOnUnknownType(t *testing.T) {
	b, err := New(Config{Type: "some-unknown-provider"})
	require.NoError(t, err)
	assert.Equal(t, TypeEcho, b.Name())
}

func TestNew_EmptyTypeUsesDefault(t *testing.T) {
	b, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultType, b.Name())
}

func TestNew_AnthropicRequiresAPIKey(t *testing.T) {
	_, err := New(Config{Type: TypeAnthropic})
	assert.Error(t, err)
}

func TestEchoBackend_QueryEchoesLastUserMessage(t *testing.T) {
	b, err := New(Config{Type: TypeEcho})
	require.NoError(t, err)

	ch, err := b.Query(context.Background(), "sys", []Message{
		{Role: "user", Content: "hello"},
	}, nil)
	require.NoError(t, err)

	msgs := drain(t, ch)
	require.Len(t, msgs, 2)
	assert.Equal(t, KindAssistantText, msgs[0].Kind)
	assert.Contains(t, msgs[0].Text, "hello")
	assert.Equal(t, KindDone, msgs[1].Kind)
}

func TestEchoBackend_ListsToolNames(t *testing.T) {
	b, _ := New(Config{Type: TypeEcho})
	ch, err := b.Query(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, []ToolDefinition{
		{Name: "search"}, {Name: "fetch"},
	})
	require.NoError(t, err)
	msgs := drain(t, ch)
	assert.Contains(t, msgs[0].Text, "search")
	assert.Contains(t, msgs[0].Text, "fetch")
}

func TestEchoBackend_CancelledContextStopsStream(t *testing.T) {
	b, _ := New(Config{Type: TypeEcho})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := b.Query(ctx, "", []Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)

	// Either zero or a partial set of messages arrives before the channel
	// closes; it must not hang.
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("stream did not close after context cancellation")
		}
	}
}
