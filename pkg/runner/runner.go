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

// Package runner starts and stops a single agent process on a target —
// either as a local subprocess or over SSH on a remote host.
package runner

import (
	"context"
	"fmt"
	"time"
)

// Spec describes one agent process to launch.
type Spec struct {
	JobID   string
	AgentID string
	// Command is the module invocation, e.g. ["python3", "-m", "agents.weather"].
	Command []string
	WorkDir string
	Env     map[string]string
	LogDir  string

	// Remote-only fields; zero values for a local spec.
	Host     string
	User     string
	SSHKey   string
	Password string
	Port     int

	ConnectTimeout    time.Duration
	AllowUnknownHosts bool
}

// Handle is an opaque reference to a started process, returned by Start and
// consumed by Stop/Signal/Alive. Local and SSH runners populate different
// subsets of its fields but callers only need the handle itself.
type Handle struct {
	AgentID string
	PID     int

	// Local-only.
	StdoutPath string
	StderrPath string

	// Remote-only.
	Host string
	User string
}

// SignalKind names the signal Stop/Signal send to the remote/local process.
type SignalKind string

const (
	SignalTerminate SignalKind = "terminate"
	SignalKill      SignalKind = "kill"
)

// Runner is the abstract capability to manage one process's lifecycle.
type Runner interface {
	Start(ctx context.Context, spec Spec) (*Handle, error)
	Stop(ctx context.Context, handle *Handle, timeout time.Duration) error
	Signal(ctx context.Context, handle *Handle, kind SignalKind) error
	Alive(ctx context.Context, handle *Handle) (bool, error)
}

// Error kinds per the runner error taxonomy. Each is a distinct type so
// callers can errors.As to the specific kind they care about.

type ConnectionFailedError struct {
	Host string
	Err  error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
}
func (e *ConnectionFailedError) Unwrap() error { return e.Err }

type AuthFailedError struct {
	Host string
	User string
	Err  error
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("ssh auth to %s@%s failed: %v", e.User, e.Host, e.Err)
}
func (e *AuthFailedError) Unwrap() error { return e.Err }

type TransferFailedError struct {
	Path string
	Err  error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("transfer to %s failed: %v", e.Path, e.Err)
}
func (e *TransferFailedError) Unwrap() error { return e.Err }

type StartFailedError struct {
	AgentID    string
	ExitCode   int
	StderrTail string
}

func (e *StartFailedError) Error() string {
	return fmt.Sprintf("agent %s failed to start (exit %d): %s", e.AgentID, e.ExitCode, e.StderrTail)
}

type NotAliveError struct {
	AgentID string
}

func (e *NotAliveError) Error() string {
	return fmt.Sprintf("agent %s is not alive", e.AgentID)
}

type StopFailedError struct {
	AgentID string
	Err     error
}

func (e *StopFailedError) Error() string {
	return fmt.Sprintf("failed to stop agent %s: %v", e.AgentID, e.Err)
}
func (e *StopFailedError) Unwrap() error { return e.Err }
