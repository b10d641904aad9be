// Package progress persists per-student quiz and practice results as
// JSON documents, one file per student.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

// ScoreEntry is one recorded result.
type ScoreEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Score      float64   `json:"score"`
	Difficulty string    `json:"difficulty,omitempty"`
}

// TopicProgress aggregates results for one topic.
type TopicProgress struct {
	Scores       []ScoreEntry `json:"scores"`
	Attempts     int          `json:"attempts"`
	LastScore    float64      `json:"last_score"`
	AverageScore float64      `json:"average_score"`
}

// Record is the full progress document for one student.
type Record struct {
	StudentID     string                    `json:"student_id"`
	Topics        map[string]*TopicProgress `json:"topics"`
	TotalSessions int                       `json:"total_sessions"`
	TotalProblems int                       `json:"total_problems"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// Store reads and writes progress records with a write-through cache.
type Store struct {
	cfg   config.ProgressConfig
	mu    sync.Mutex
	cache map[string]*Record
}

// NewStore creates the storage directory if needed.
func NewStore(cfg config.ProgressConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create progress directory: %w", err)
	}
	return &Store{
		cfg:   cfg,
		cache: make(map[string]*Record),
	}, nil
}

func (s *Store) recordPath(studentID string) string {
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("progress_%s.json", sanitizeID(studentID)))
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

// load returns the cached record, reading from disk on first use.
// Callers must hold s.mu.
func (s *Store) load(studentID string) (*Record, error) {
	if rec, ok := s.cache[studentID]; ok {
		return rec, nil
	}

	rec := &Record{
		StudentID: studentID,
		Topics:    make(map[string]*TopicProgress),
		CreatedAt: time.Now(),
	}

	data, err := os.ReadFile(s.recordPath(studentID))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("failed to parse progress file for %s: %w", studentID, err)
		}
		if rec.Topics == nil {
			rec.Topics = make(map[string]*TopicProgress)
		}
	case os.IsNotExist(err):
		// New student.
	default:
		return nil, fmt.Errorf("failed to read progress file for %s: %w", studentID, err)
	}

	s.cache[studentID] = rec
	return rec, nil
}

// save writes the record to disk. Callers must hold s.mu.
func (s *Store) save(rec *Record) error {
	rec.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress record: %w", err)
	}

	path := s.recordPath(rec.StudentID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace progress file: %w", err)
	}
	return nil
}

// RecordScore appends a result for a topic and updates its aggregates.
// Scores are percentages in [0, 100].
func (s *Store) RecordScore(studentID, topic string, score float64, difficulty string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(studentID)
	if err != nil {
		return err
	}

	tp, ok := rec.Topics[topic]
	if !ok {
		tp = &TopicProgress{}
		rec.Topics[topic] = tp
	}

	tp.Scores = append(tp.Scores, ScoreEntry{
		Timestamp:  time.Now(),
		Score:      score,
		Difficulty: difficulty,
	})
	tp.Attempts++
	tp.LastScore = score

	var sum float64
	for _, entry := range tp.Scores {
		sum += entry.Score
	}
	tp.AverageScore = sum / float64(len(tp.Scores))

	rec.TotalProblems++
	return s.save(rec)
}

// TopicProgress returns aggregates for one topic, or nil when the
// student has no results for it.
func (s *Store) TopicProgress(studentID, topic string) (*TopicProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(studentID)
	if err != nil {
		return nil, err
	}

	tp, ok := rec.Topics[topic]
	if !ok {
		return nil, nil
	}

	out := *tp
	out.Scores = append([]ScoreEntry(nil), tp.Scores...)
	return &out, nil
}

// Topics lists all topics with recorded results, sorted.
func (s *Store) Topics(studentID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(studentID)
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, len(rec.Topics))
	for topic := range rec.Topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics, nil
}

// WeakTopics lists topics whose average score is below the weak
// threshold, sorted by average ascending.
func (s *Store) WeakTopics(studentID string) ([]string, error) {
	return s.topicsByThreshold(studentID, func(avg float64) bool {
		return avg < s.cfg.WeakThreshold
	}, true)
}

// StrongTopics lists topics whose average score meets the strong
// threshold, sorted by average descending.
func (s *Store) StrongTopics(studentID string) ([]string, error) {
	return s.topicsByThreshold(studentID, func(avg float64) bool {
		return avg >= s.cfg.StrongThreshold
	}, false)
}

func (s *Store) topicsByThreshold(studentID string, match func(float64) bool, ascending bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(studentID)
	if err != nil {
		return nil, err
	}

	type entry struct {
		topic string
		avg   float64
	}
	var entries []entry
	for topic, tp := range rec.Topics {
		if match(tp.AverageScore) {
			entries = append(entries, entry{topic, tp.AverageScore})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].avg == entries[j].avg {
			return entries[i].topic < entries[j].topic
		}
		if ascending {
			return entries[i].avg < entries[j].avg
		}
		return entries[i].avg > entries[j].avg
	})

	topics := make([]string, len(entries))
	for i, e := range entries {
		topics[i] = e.topic
	}
	return topics, nil
}

// IncrementSessions bumps the session counter and returns the new count.
func (s *Store) IncrementSessions(studentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(studentID)
	if err != nil {
		return 0, err
	}

	rec.TotalSessions++
	if err := s.save(rec); err != nil {
		return 0, err
	}
	return rec.TotalSessions, nil
}

// Totals returns the overall session and problem counts.
func (s *Store) Totals(studentID string) (sessions, problems int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(studentID)
	if err != nil {
		return 0, 0, err
	}
	return rec.TotalSessions, rec.TotalProblems, nil
}
