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

package runner

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SshRunner launches agents on a remote host over SSH, pooling one
// connection per (host, user) pair across every agent that targets it.
type SshRunner struct {
	pool *sshPool

	mu   sync.Mutex
	pids map[string]remotePID

	homeMu sync.Mutex
	homes  map[*ssh.Client]string
}

type remotePID struct {
	client *ssh.Client
	pid    int
	host   string
	user   string
}

// NewSshRunner creates an SshRunner with its own connection pool.
func NewSshRunner() *SshRunner {
	return &SshRunner{
		pool:  newSSHPool(),
		pids:  make(map[string]remotePID),
		homes: make(map[*ssh.Client]string),
	}
}

// Close tears down every pooled SSH connection.
func (r *SshRunner) Close() { r.pool.closeAll() }

func (r *SshRunner) Start(ctx context.Context, spec Spec) (*Handle, error) {
	client, err := r.pool.get(spec)
	if err != nil {
		return nil, err
	}

	workdir, err := r.resolveHome(client, spec.WorkDir)
	if err != nil {
		return nil, &TransferFailedError{Path: spec.WorkDir, Err: err}
	}
	workdir = expandRemotePath(workdir, spec.Env)

	if err := r.run(client, fmt.Sprintf("mkdir -p %s", shellQuote(workdir))); err != nil {
		return nil, &TransferFailedError{Path: workdir, Err: err}
	}

	if err := r.transferTree(client, spec.WorkDir, workdir); err != nil {
		return nil, &TransferFailedError{Path: workdir, Err: err}
	}

	envAssignments := make([]string, 0, len(spec.Env))
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		envAssignments = append(envAssignments, fmt.Sprintf("%s=%s", k, shellQuote(spec.Env[k])))
	}

	cmd := strings.Join(quoteAll(spec.Command), " ")
	launch := fmt.Sprintf(
		"cd %s && setsid env %s %s > %s.out 2> %s.err < /dev/null & echo $!",
		shellQuote(workdir),
		strings.Join(envAssignments, " "),
		cmd,
		shellQuote(spec.AgentID),
		shellQuote(spec.AgentID),
	)

	out, err := r.runOutput(client, launch)
	if err != nil {
		return nil, &StartFailedError{AgentID: spec.AgentID, StderrTail: err.Error()}
	}
	pid, perr := strconv.Atoi(strings.TrimSpace(firstLine(out)))
	if perr != nil {
		return nil, &StartFailedError{AgentID: spec.AgentID, StderrTail: fmt.Sprintf("could not parse remote pid from %q", out)}
	}

	r.mu.Lock()
	r.pids[spec.AgentID] = remotePID{client: client, pid: pid, host: spec.Host, user: spec.User}
	r.mu.Unlock()

	return &Handle{AgentID: spec.AgentID, PID: pid, Host: spec.Host, User: spec.User}, nil
}

func (r *SshRunner) Stop(ctx context.Context, handle *Handle, timeout time.Duration) error {
	r.mu.Lock()
	rp, ok := r.pids[handle.AgentID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	_ = r.run(rp.client, fmt.Sprintf("kill -TERM %d 2>/dev/null", rp.pid))

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		alive, _ := r.aliveOn(rp.client, rp.pid)
		if !alive {
			r.mu.Lock()
			delete(r.pids, handle.AgentID)
			r.mu.Unlock()
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	if err := r.run(rp.client, fmt.Sprintf("kill -KILL %d 2>/dev/null", rp.pid)); err != nil {
		return &StopFailedError{AgentID: handle.AgentID, Err: err}
	}
	r.mu.Lock()
	delete(r.pids, handle.AgentID)
	r.mu.Unlock()
	return nil
}

func (r *SshRunner) Signal(ctx context.Context, handle *Handle, kind SignalKind) error {
	r.mu.Lock()
	rp, ok := r.pids[handle.AgentID]
	r.mu.Unlock()
	if !ok {
		return &NotAliveError{AgentID: handle.AgentID}
	}
	sig := "TERM"
	if kind == SignalKill {
		sig = "KILL"
	}
	if err := r.run(rp.client, fmt.Sprintf("kill -%s %d", sig, rp.pid)); err != nil {
		return &StopFailedError{AgentID: handle.AgentID, Err: err}
	}
	return nil
}

func (r *SshRunner) Alive(ctx context.Context, handle *Handle) (bool, error) {
	r.mu.Lock()
	rp, ok := r.pids[handle.AgentID]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	return r.aliveOn(rp.client, rp.pid)
}

func (r *SshRunner) aliveOn(client *ssh.Client, pid int) (bool, error) {
	err := r.run(client, fmt.Sprintf("kill -0 %d", pid))
	return err == nil, nil
}

func (r *SshRunner) run(client *ssh.Client, cmd string) error {
	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()
	return session.Run(cmd)
}

func (r *SshRunner) runOutput(client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()
	var buf bytes.Buffer
	session.Stdout = &buf
	if err := session.Run(cmd); err != nil {
		return buf.String(), err
	}
	return buf.String(), nil
}

// transferTree copies the agent's source tree to the remote workdir using
// tar piped over the existing SSH connection, skipping VCS and cache
// directories but keeping package-init files.
func (r *SshRunner) transferTree(client *ssh.Client, localDir, remoteDir string) error {
	if localDir == "" {
		return nil
	}

	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return err
	}

	if err := session.Start(fmt.Sprintf("tar -x -C %s", shellQuote(remoteDir))); err != nil {
		return err
	}

	if err := tarDir(localDir, stdin); err != nil {
		stdin.Close()
		return err
	}
	stdin.Close()

	return session.Wait()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func quoteAll(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = shellQuote(p)
	}
	return out
}

// expandRemotePath expands ${VAR}/$VAR references in path using the env map
// that will also be exported to the remote process. It does not touch a
// leading ~ — resolveHome handles that against the remote's actual home
// directory, since the result here is always single-quoted before it
// reaches the remote shell and a literal "$HOME" placed in it would never
// be expanded.
func expandRemotePath(path string, env map[string]string) string {
	for k, v := range env {
		path = strings.ReplaceAll(path, "${"+k+"}", v)
		path = strings.ReplaceAll(path, "$"+k, v)
	}
	return path
}

// resolveHome substitutes a leading ~ in path with the SSH session's real
// remote home directory. The home directory is queried once per connection
// (via "echo $HOME") and cached, since workdir is always quoted for the
// remote shell and a literal "$HOME" placed there would never expand.
func (r *SshRunner) resolveHome(client *ssh.Client, path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := r.remoteHome(client)
	if err != nil {
		return "", err
	}
	return home + strings.TrimPrefix(path, "~"), nil
}

func (r *SshRunner) remoteHome(client *ssh.Client) (string, error) {
	r.homeMu.Lock()
	if home, ok := r.homes[client]; ok {
		r.homeMu.Unlock()
		return home, nil
	}
	r.homeMu.Unlock()

	out, err := r.runOutput(client, "echo $HOME")
	if err != nil {
		return "", fmt.Errorf("resolve remote home directory: %w", err)
	}
	home := strings.TrimSpace(firstLine(out))
	if home == "" {
		return "", fmt.Errorf("remote $HOME is empty")
	}

	r.homeMu.Lock()
	r.homes[client] = home
	r.homeMu.Unlock()
	return home, nil
}
