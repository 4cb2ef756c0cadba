// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session holds per-agent conversation history in memory, keyed by
// session_id. It does not persist across agent process restarts.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one turn of conversation history.
type Message struct {
	Role      string
	Text      string
	Timestamp time.Time
}

// Session is one conversation thread with a single agent.
type Session struct {
	SessionID      string
	JobID          string
	AgentID        string
	Messages       []Message
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Store is an in-memory map of session_id -> Session, bounded by capacity
// and idle TTL.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxHistory  int
	maxSessions int
	ttl         time.Duration
	jobID       string
	agentID     string
}

// NewStore constructs a Store for one agent process. maxHistory bounds how
// many messages History returns; maxSessions and ttl bound the session set
// itself.
func NewStore(jobID, agentID string, maxHistory, maxSessions int, ttl time.Duration) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		maxHistory:  maxHistory,
		maxSessions: maxSessions,
		ttl:         ttl,
		jobID:       jobID,
		agentID:     agentID,
	}
}

// GetOrCreate returns the session for sessionID, minting a new 128-bit id
// and session if sessionID is empty or unknown. Touches last-accessed time
// on either path and performs lazy TTL eviction of the rest of the store.
func (s *Store) GetOrCreate(sessionID string) (string, *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()

	if sessionID != "" {
		if sess, ok := s.sessions[sessionID]; ok {
			sess.LastAccessedAt = time.Now()
			return sessionID, sess
		}
	}

	id := uuid.NewString()
	now := time.Now()
	sess := &Session{
		SessionID:      id,
		JobID:          s.jobID,
		AgentID:        s.agentID,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	s.insertLocked(id, sess)
	return id, sess
}

// Append records one message against sessionID. The session must already
// exist (via a prior GetOrCreate); unknown ids are a no-op error.
func (s *Store) Append(sessionID, role, text string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Messages = append(sess.Messages, Message{Role: role, Text: text, Timestamp: ts})
	sess.LastAccessedAt = ts
	return nil
}

// History returns at most maxHistory most-recent messages for sessionID.
func (s *Store) History(sessionID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if s.maxHistory <= 0 || len(sess.Messages) <= s.maxHistory {
		out := make([]Message, len(sess.Messages))
		copy(out, sess.Messages)
		return out
	}
	start := len(sess.Messages) - s.maxHistory
	out := make([]Message, s.maxHistory)
	copy(out, sess.Messages[start:])
	return out
}

// insertLocked stores sess and evicts the oldest-accessed entry if the
// store now exceeds maxSessions. Caller holds s.mu.
func (s *Store) insertLocked(id string, sess *Session) {
	s.sessions[id] = sess
	if s.maxSessions <= 0 || len(s.sessions) <= s.maxSessions {
		return
	}

	var oldestID string
	var oldestAt time.Time
	for sid, sv := range s.sessions {
		if oldestID == "" || sv.LastAccessedAt.Before(oldestAt) {
			oldestID = sid
			oldestAt = sv.LastAccessedAt
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// evictExpiredLocked drops every session idle longer than the TTL. Caller
// holds s.mu.
func (s *Store) evictExpiredLocked() {
	if s.ttl <= 0 {
		return
	}
	now := time.Now()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastAccessedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
