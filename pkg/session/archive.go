package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

// ArchivedSession is a session snapshot persisted at end-of-session.
type ArchivedSession struct {
	ID           string     `json:"id"`
	StudentID    string     `json:"student_id"`
	CreatedAt    time.Time  `json:"created_at"`
	EndedAt      time.Time  `json:"ended_at"`
	MessageCount int        `json:"message_count"`
	Exchanges    []Exchange `json:"exchanges"`
}

// ArchiveStore persists ended sessions.
type ArchiveStore interface {
	// Save persists a session snapshot.
	Save(ctx context.Context, archived *ArchivedSession) error

	// List returns archived sessions for a student, newest first.
	List(ctx context.Context, studentID string) ([]*ArchivedSession, error)

	// Close releases store resources.
	Close() error
}

// NewArchiveStore builds the archive store selected by config.
// The SQL backend resolves its database through the shared pool.
func NewArchiveStore(cfg config.SessionConfig, dbCfg *config.DatabaseConfig, pool *config.DBPool) (ArchiveStore, error) {
	switch cfg.Archive.Backend {
	case config.StorageBackendSQL:
		if dbCfg == nil {
			return nil, fmt.Errorf("archive backend is sql but no database is configured")
		}
		db, err := pool.Get(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive database: %w", err)
		}
		return NewSQLArchive(db, dbCfg.Dialect())
	default:
		return NewInMemoryArchive(), nil
	}
}

// InMemoryArchive keeps archived sessions in process memory.
// Useful for testing and development.
type InMemoryArchive struct {
	mu       sync.RWMutex
	sessions map[string][]*ArchivedSession // studentID -> newest first
}

func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{
		sessions: make(map[string][]*ArchivedSession),
	}
}

func (a *InMemoryArchive) Save(ctx context.Context, archived *ArchivedSession) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[archived.StudentID] = append(
		[]*ArchivedSession{archived}, a.sessions[archived.StudentID]...)
	return nil
}

func (a *InMemoryArchive) List(ctx context.Context, studentID string) ([]*ArchivedSession, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*ArchivedSession, len(a.sessions[studentID]))
	copy(out, a.sessions[studentID])
	return out, nil
}

func (a *InMemoryArchive) Close() error {
	return nil
}

// SQLArchive persists archived sessions to a SQL database.
// Exchanges are stored as a JSON column.
type SQLArchive struct {
	db      *sql.DB
	dialect string
}

// NewSQLArchive creates the archive table if needed.
func NewSQLArchive(db *sql.DB, dialect string) (*SQLArchive, error) {
	a := &SQLArchive{db: db, dialect: dialect}
	if err := a.createTable(); err != nil {
		return nil, fmt.Errorf("failed to create archive table: %w", err)
	}
	return a, nil
}

func (a *SQLArchive) createTable() error {
	textType := "TEXT"
	if a.dialect == "mysql" {
		textType = "LONGTEXT"
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS session_archive (
		id VARCHAR(64) PRIMARY KEY,
		student_id VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NOT NULL,
		message_count INTEGER NOT NULL,
		exchanges %s NOT NULL
	)`, textType)

	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	_, err := a.db.Exec(`CREATE INDEX IF NOT EXISTS idx_session_archive_student
		ON session_archive (student_id)`)
	if err != nil && a.dialect == "mysql" {
		// MySQL has no IF NOT EXISTS for indexes; a duplicate is fine.
		return nil
	}
	return err
}

// placeholder returns the parameter marker for the dialect.
func (a *SQLArchive) placeholder(n int) string {
	if a.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (a *SQLArchive) Save(ctx context.Context, archived *ArchivedSession) error {
	exchangesJSON, err := json.Marshal(archived.Exchanges)
	if err != nil {
		return fmt.Errorf("failed to marshal exchanges: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO session_archive
		(id, student_id, created_at, ended_at, message_count, exchanges)
		VALUES (%s, %s, %s, %s, %s, %s)`,
		a.placeholder(1), a.placeholder(2), a.placeholder(3),
		a.placeholder(4), a.placeholder(5), a.placeholder(6))

	_, err = a.db.ExecContext(ctx, query,
		archived.ID, archived.StudentID, archived.CreatedAt,
		archived.EndedAt, archived.MessageCount, string(exchangesJSON))
	if err != nil {
		return fmt.Errorf("failed to insert archived session: %w", err)
	}
	return nil
}

func (a *SQLArchive) List(ctx context.Context, studentID string) ([]*ArchivedSession, error) {
	query := fmt.Sprintf(`SELECT id, student_id, created_at, ended_at, message_count, exchanges
		FROM session_archive WHERE student_id = %s ORDER BY ended_at DESC`,
		a.placeholder(1))

	rows, err := a.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*ArchivedSession
	for rows.Next() {
		var s ArchivedSession
		var exchangesJSON string
		if err := rows.Scan(&s.ID, &s.StudentID, &s.CreatedAt, &s.EndedAt,
			&s.MessageCount, &exchangesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan archived session: %w", err)
		}
		if err := json.Unmarshal([]byte(exchangesJSON), &s.Exchanges); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exchanges: %w", err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// Close is a no-op; the shared pool owns the connection.
func (a *SQLArchive) Close() error {
	return nil
}

var (
	_ ArchiveStore = (*InMemoryArchive)(nil)
	_ ArchiveStore = (*SQLArchive)(nil)
)
