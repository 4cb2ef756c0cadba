package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate_MintsNewSession(t *testing.T) {
	s := NewStore("job-1", "agent-1", 10, 100, time.Hour)
	id, sess := s.GetOrCreate("")
	require.NotEmpty(t, id)
	assert.Equal(t, "job-1", sess.JobID)
	assert.Equal(t, "agent-1", sess.AgentID)
}

func TestGetOrCreate_ReturnsExisting(t *testing.T) {
	s := NewStore("job-1", "agent-1", 10, 100, time.Hour)
	id, _ := s.GetOrCreate("")
	_, sess2 := s.GetOrCreate(id)
	assert.Equal(t, id, sess2.SessionID)
}

func TestGetOrCreate_UnknownIDMintsNew(t *testing.T) {
	s := NewStore("job-1", "agent-1", 10, 100, time.Hour)
	id, _ := s.GetOrCreate("does-not-exist")
	assert.NotEqual(t, "does-not-exist", id)
}

func TestAppendAndHistory(t *testing.T) {
	s := NewStore("job-1", "agent-1", 10, 100, time.Hour)
	id, _ := s.GetOrCreate("")
	require.NoError(t, s.Append(id, "user", "hi", time.Now()))
	require.NoError(t, s.Append(id, "assistant", "hello", time.Now()))

	hist := s.History(id)
	require.Len(t, hist, 2)
	assert.Equal(t, "hi", hist[0].Text)
	assert.Equal(t, "hello", hist[1].Text)
}

func TestAppend_UnknownSessionErrors(t *testing.T) {
	s := NewStore("job-1", "agent-1", 10, 100, time.Hour)
	err := s.Append("nope", "user", "hi", time.Now())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHistory_BoundedByMaxHistory(t *testing.T) {
	s := NewStore("job-1", "agent-1", 2, 100, time.Hour)
	id, _ := s.GetOrCreate("")
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(id, "user", string(rune('a'+i)), time.Now()))
	}
	hist := s.History(id)
	require.Len(t, hist, 2)
	assert.Equal(t, "d", hist[0].Text)
	assert.Equal(t, "e", hist[1].Text)
}

func TestEviction_OldestLastAccessedDroppedOverCapacity(t *testing.T) {
	s := NewStore("job-1", "agent-1", 10, 2, time.Hour)
	id1, _ := s.GetOrCreate("")
	time.Sleep(2 * time.Millisecond)
	id2, _ := s.GetOrCreate("")
	time.Sleep(2 * time.Millisecond)
	_, _ = s.GetOrCreate("") // third insert should evict id1 (oldest)

	_, stillThere := s.sessions[id1]
	_, alsoThere := s.sessions[id2]
	assert.False(t, stillThere)
	assert.True(t, alsoThere)
	assert.Len(t, s.sessions, 2)
}

func TestEviction_LazyByTTL(t *testing.T) {
	s := NewStore("job-1", "agent-1", 10, 100, time.Millisecond)
	id, _ := s.GetOrCreate("")
	time.Sleep(5 * time.Millisecond)

	// Triggers lazy eviction as a side effect of the next GetOrCreate call.
	newID, _ := s.GetOrCreate("")
	assert.NotEqual(t, id, newID)
	_, ok := s.sessions[id]
	assert.False(t, ok)
}
