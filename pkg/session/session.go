// Package session provides in-process session management for tutoring
// conversations.
//
// Each session has:
//   - A unique identifier
//   - An associated student
//   - Exchange history (user query + reply pairs)
//   - State (key-value store scoped to the session)
//
// Ended sessions are persisted through an ArchiveStore.
package session

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned when a session doesn't exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrStateKeyNotExist is returned when a state key doesn't exist.
var ErrStateKeyNotExist = errors.New("state key does not exist")

// Exchange is a single user query and tutor reply pair.
type Exchange struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Reply     string    `json:"reply"`
}

// Session represents one tutoring conversation.
type Session struct {
	id           string
	studentID    string
	createdAt    time.Time
	lastActivity time.Time
	exchanges    []Exchange
	state        map[string]any
	mu           sync.RWMutex
}

func (s *Session) ID() string        { return s.id }
func (s *Session) StudentID() string { return s.studentID }
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// MessageCount returns the number of recorded exchanges.
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exchanges)
}

func (s *Session) recordExchange(query, reply string, maxMessages int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exchanges = append(s.exchanges, Exchange{
		Timestamp: time.Now(),
		Query:     query,
		Reply:     reply,
	})
	if maxMessages > 0 && len(s.exchanges) > maxMessages {
		s.exchanges = s.exchanges[len(s.exchanges)-maxMessages:]
	}
	s.lastActivity = time.Now()
}

// history returns a copy of the last limit exchanges.
// limit <= 0 returns the full history.
func (s *Session) history(limit int) []Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.exchanges)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Exchange, n)
	copy(out, s.exchanges[len(s.exchanges)-n:])
	return out
}

func (s *Session) setState(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = val
	s.lastActivity = time.Now()
}

func (s *Session) getState(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.state[key]
	if !ok {
		return nil, ErrStateKeyNotExist
	}
	return val, nil
}

// Stats summarizes a session.
type Stats struct {
	SessionID    string        `json:"session_id"`
	StudentID    string        `json:"student_id"`
	MessageCount int           `json:"message_count"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}
