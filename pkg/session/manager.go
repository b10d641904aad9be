package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

// Manager owns all live sessions and the per-student current session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	current  map[string]string // studentID -> sessionID
	cfg      config.SessionConfig
	archive  ArchiveStore
	counter  *tokenCounter
}

// NewManager creates a session manager backed by the given archive store.
func NewManager(cfg config.SessionConfig, archive ArchiveStore) *Manager {
	if archive == nil {
		archive = NewInMemoryArchive()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		current:  make(map[string]string),
		cfg:      cfg,
		archive:  archive,
		counter:  newTokenCounter(),
	}
}

// Create starts a new session for a student and makes it current.
func (m *Manager) Create(studentID string) *Session {
	now := time.Now()
	s := &Session{
		id:           uuid.NewString(),
		studentID:    studentID,
		createdAt:    now,
		lastActivity: now,
		state:        make(map[string]any),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.current[studentID] = s.id
	m.mu.Unlock()

	slog.Debug("Created session", "session_id", s.id, "student_id", studentID)
	return s
}

// Get retrieves a session by ID.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Current returns the student's active session, if any.
func (m *Manager) Current(studentID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.current[studentID]
	if !ok {
		return nil, false
	}
	s, ok := m.sessions[id]
	return s, ok
}

// RecordExchange appends a query/reply pair to the session history.
// History is capped at the configured max_messages.
func (m *Manager) RecordExchange(sessionID, query, reply string) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	s.recordExchange(query, reply, m.cfg.MaxMessages)
	return nil
}

// SetState stores a value in the session state.
func (m *Manager) SetState(sessionID, key string, val any) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	s.setState(key, val)
	return nil
}

// GetState retrieves a value from the session state.
func (m *Manager) GetState(sessionID, key string) (any, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.getState(key)
}

// History returns the last limit exchanges; limit <= 0 returns all.
func (m *Manager) History(sessionID string, limit int) ([]Exchange, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.history(limit), nil
}

// Stats summarizes a session.
func (m *Manager) Stats(sessionID string) (Stats, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return Stats{}, err
	}

	last := s.LastActivity()
	return Stats{
		SessionID:    s.id,
		StudentID:    s.studentID,
		MessageCount: s.MessageCount(),
		Duration:     last.Sub(s.createdAt),
		CreatedAt:    s.createdAt,
		LastActivity: last,
	}, nil
}

// End archives the session and removes it from the live set.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	if m.current[s.studentID] == sessionID {
		delete(m.current, s.studentID)
	}
	m.mu.Unlock()

	if err := m.archiveSession(ctx, s); err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}

	slog.Debug("Ended session", "session_id", sessionID, "student_id", s.studentID)
	return nil
}

// CleanupInactive archives and removes sessions idle longer than maxAge.
// Returns the number of sessions removed.
func (m *Manager) CleanupInactive(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
			if m.current[s.studentID] == id {
				delete(m.current, s.studentID)
			}
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		if err := m.archiveSession(ctx, s); err != nil {
			slog.Warn("Failed to archive inactive session",
				"session_id", s.id, "error", err)
		}
	}

	if len(stale) > 0 {
		slog.Info("Cleaned up inactive sessions", "count", len(stale))
	}
	return len(stale)
}

// StartCleanup runs CleanupInactive every interval until ctx is
// cancelled, using the configured max_idle as the age cutoff. An
// interval <= 0 derives one from max_idle.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Duration(m.cfg.MaxIdle) / 4
		if interval < time.Minute {
			interval = time.Minute
		}
		if interval > time.Hour {
			interval = time.Hour
		}
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupInactive(ctx, m.cfg.MaxIdle.Duration())
			}
		}
	}()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Archive exposes the backing archive store.
func (m *Manager) Archive() ArchiveStore {
	return m.archive
}

func (m *Manager) archiveSession(ctx context.Context, s *Session) error {
	return m.archive.Save(ctx, &ArchivedSession{
		ID:           s.id,
		StudentID:    s.studentID,
		CreatedAt:    s.createdAt,
		EndedAt:      time.Now(),
		MessageCount: s.MessageCount(),
		Exchanges:    s.history(0),
	})
}
