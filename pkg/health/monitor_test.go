package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRestarter struct {
	startCount int32
	stopCount  int32
	startErr   error
}

func (r *fakeRestarter) Stop(ctx context.Context) error {
	atomic.AddInt32(&r.stopCount, 1)
	return nil
}

func (r *fakeRestarter) Start(ctx context.Context) (string, error) {
	atomic.AddInt32(&r.startCount, 1)
	return "http://restarted", r.startErr
}

func TestAgentMonitor_StaysHealthyOnSuccessfulProbes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var transitions []State
	cb := func(agentID string, from, to State) { transitions = append(transitions, to) }

	policy := Policy{Interval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond, Retries: 2}
	m := NewAgentMonitor("agent-1", srv.URL, policy, &fakeRestarter{}, cb)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	assert.Equal(t, StateHealthy, m.State())
	assert.NotContains(t, transitions, StateUnreachable)
}

func TestAgentMonitor_TransitionsToUnreachableAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	policy := Policy{Interval: 5 * time.Millisecond, Timeout: 50 * time.Millisecond, Retries: 2, RestartEnabled: false}
	m := NewAgentMonitor("agent-1", srv.URL, policy, &fakeRestarter{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	assert.Equal(t, StateUnreachable, m.State())
}

func TestAgentMonitor_RestartsAndRecoversToHealthy(t *testing.T) {
	var up int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&up) == 1 {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	restarter := &fakeRestarter{}
	policy := Policy{
		Interval: 5 * time.Millisecond, Timeout: 50 * time.Millisecond,
		Retries: 1, RestartEnabled: true, MaxRestarts: 3, BackoffBase: 2 * time.Millisecond,
	}
	m := NewAgentMonitor("agent-1", srv.URL, policy, restarter, nil)

	go func() {
		time.Sleep(15 * time.Millisecond)
		atomic.StoreInt32(&up, 1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	assert.Equal(t, StateHealthy, m.State())
	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&restarter.startCount)), 1)
}

func TestAgentMonitor_FailsAfterExceedingMaxRestarts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	policy := Policy{
		Interval: 2 * time.Millisecond, Timeout: 20 * time.Millisecond,
		Retries: 1, RestartEnabled: true, MaxRestarts: 1, BackoffBase: time.Millisecond,
	}
	m := NewAgentMonitor("agent-1", srv.URL, policy, &fakeRestarter{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	assert.Equal(t, StateFailed, m.State())
}

func TestJobMonitor_StopCancelsAllAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	jm := NewJobMonitor()
	policy := Policy{Interval: 5 * time.Millisecond, Timeout: 50 * time.Millisecond, Retries: 2}
	jm.Watch(context.Background(), "a", srv.URL, policy, &fakeRestarter{}, nil)
	jm.Watch(context.Background(), "b", srv.URL, policy, &fakeRestarter{}, nil)

	time.Sleep(20 * time.Millisecond)
	st, ok := jm.Status("a")
	require.True(t, ok)
	assert.Equal(t, StateHealthy, st)

	jm.Stop()
	_, ok = jm.Status("nonexistent")
	assert.False(t, ok)
}
