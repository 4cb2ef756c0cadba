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
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// sshPool keeps one *ssh.Client per (host, user) key, shared across every
// agent targeting that host. The pool owns each connection and callers just
// borrow it; entries are never released individually or on idle, and every
// connection stays open until closeAll closes them all.
type sshPool struct {
	mu      sync.Mutex
	clients map[string]*ssh.Client
}

func newSSHPool() *sshPool {
	return &sshPool{clients: make(map[string]*ssh.Client)}
}

func poolKey(host, user string) string { return user + "@" + host }

func (p *sshPool) get(spec Spec) (*ssh.Client, error) {
	alias := resolveSSHConfig(spec.Host)

	host := spec.Host
	if alias.HostName != "" {
		host = alias.HostName
	}
	user := spec.User
	if user == "" {
		user = alias.User
	}
	port := spec.Port
	if port == 0 && alias.Port != "" {
		fmt.Sscanf(alias.Port, "%d", &port)
	}
	if port == 0 {
		port = 22
	}
	keyPath := spec.SSHKey
	if keyPath == "" {
		keyPath = alias.IdentityFile
	}

	key := poolKey(spec.Host, user)

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[key]; ok {
		return c, nil
	}

	authMethods, err := authMethodsFor(keyPath, spec.Password)
	if err != nil {
		return nil, &AuthFailedError{Host: host, User: user, Err: err}
	}

	hostKeyCallback, err := hostKeyCallbackFor(spec.AllowUnknownHosts)
	if err != nil {
		return nil, fmt.Errorf("host key verification setup: %w", err)
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         spec.ConnectTimeout,
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, &ConnectionFailedError{Host: addr, Err: err}
	}

	p.clients[key] = client
	return client, nil
}

func authMethodsFor(keyPath, password string) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if keyPath != "" {
		bytes, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key %s: %w", keyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(bytes)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key %s: %w", keyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if password != "" {
		methods = append(methods, ssh.Password(password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no ssh authentication method available (no key or password configured)")
	}
	return methods, nil
}

// hostKeyCallbackFor rejects unknown hosts by default — weakening this is
// an explicit, per-deployment opt-in, never a silent fallback.
func hostKeyCallbackFor(allowUnknown bool) (ssh.HostKeyCallback, error) {
	if allowUnknown {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := home + "/.ssh/known_hosts"
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("known_hosts not found at %s and allow_unknown_hosts is false", path)
	}
	return knownhosts.New(path)
}

func (p *sshPool) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, c := range p.clients {
		_ = c.Close()
		delete(p.clients, k)
	}
}
