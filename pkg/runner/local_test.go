package runner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunner_StartAliveStop(t *testing.T) {
	dir := t.TempDir()
	r := NewLocalRunner()

	handle, err := r.Start(context.Background(), Spec{
		AgentID: "sleeper",
		Command: []string{"sleep", "5"},
		WorkDir: dir,
		LogDir:  dir,
	})
	require.NoError(t, err)
	require.Greater(t, handle.PID, 0)

	alive, err := r.Alive(context.Background(), handle)
	require.NoError(t, err)
	assert.True(t, alive)

	err = r.Stop(context.Background(), handle, 2*time.Second)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	alive, err = r.Alive(context.Background(), handle)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestLocalRunner_StartCapturesOutput(t *testing.T) {
	dir := t.TempDir()
	r := NewLocalRunner()

	handle, err := r.Start(context.Background(), Spec{
		AgentID: "echoer",
		Command: []string{"sh", "-c", "echo hello"},
		WorkDir: dir,
		LogDir:  dir,
	})
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	data, err := os.ReadFile(handle.StdoutPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
