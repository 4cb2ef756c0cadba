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

package orchestrator

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JaimeCernuda/agentic-deployment-engine-sub000/pkg/job"
)

// JobRegistry persists DeployedJob summaries to a single JSONL file, one
// object per job_id per line. Handles are never persisted; after a process
// restart each entry still carries the state last written for it, and the
// registry does not re-check whether its agents are alive.
//
// The file is rewritten atomically (temp file + rename) under a mutex.
// This guards concurrent writers *within* this process; true cross-process
// locking is out of scope (see DESIGN.md).
type JobRegistry struct {
	mu   sync.Mutex
	path string
}

// NewJobRegistry opens (creating if necessary) the registry file at path.
func NewJobRegistry(path string) (*JobRegistry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return nil, fmt.Errorf("create registry file: %w", err)
		}
	}
	return &JobRegistry{path: path}, nil
}

// Put writes or replaces the summary for s.JobID.
func (r *JobRegistry) Put(s Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return err
	}
	all[s.JobID] = s
	return r.writeAll(all)
}

// Get returns the summary for jobID, or false if absent.
func (r *JobRegistry) Get(jobID string) (Summary, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return Summary{}, false, err
	}
	s, ok := all[jobID]
	return s, ok, nil
}

// List returns every persisted summary with the state last written for it.
// It does not check liveness and does not mark entries "stopped" (the
// registry itself holds no live handles).
func (r *JobRegistry) List() ([]Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(all))
	for _, s := range all {
		out = append(out, s)
	}
	return out, nil
}

// Remove deletes a job's entry (used by `cleanup`).
func (r *JobRegistry) Remove(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return err
	}
	delete(all, jobID)
	return r.writeAll(all)
}

func (r *JobRegistry) readAll() (map[string]Summary, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()

	all := make(map[string]Summary)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var s Summary
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("corrupt registry line: %w", err)
		}
		all[s.JobID] = s
	}
	return all, scanner.Err()
}

func (r *JobRegistry) writeAll(all map[string]Summary) error {
	tmp := r.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, s := range all {
		b, err := json.Marshal(s)
		if err != nil {
			f.Close()
			return fmt.Errorf("marshal summary: %w", err)
		}
		if _, err := w.Write(b); err != nil {
			f.Close()
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

// DefinitionHash returns a stable content hash of a JobDefinition, stored in
// the registry so a future deploy can detect whether the underlying YAML
// changed since the recorded run.
func DefinitionHash(def *job.JobDefinition) string {
	b, _ := json.Marshal(def)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
