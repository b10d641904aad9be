package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/edumentor-ai/edumentor/pkg/config"
)

const replySummaryLimit = 200

// Bank is the per-student memory store. Records live as JSON files
// under the configured directory and are cached in process; every
// mutation is written through to disk.
type Bank struct {
	cfg   config.MemoryConfig
	mu    sync.Mutex
	cache map[string]*Record
}

// NewBank creates the storage directory if needed.
func NewBank(cfg config.MemoryConfig) (*Bank, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}
	return &Bank{
		cfg:   cfg,
		cache: make(map[string]*Record),
	}, nil
}

func (b *Bank) recordPath(studentID string) string {
	return filepath.Join(b.cfg.Dir, fmt.Sprintf("memory_%s.json", sanitizeID(studentID)))
}

// sanitizeID keeps student IDs safe as file name components.
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

// load returns the cached record, reading it from disk on first use.
// Callers must hold b.mu.
func (b *Bank) load(studentID string) (*Record, error) {
	if rec, ok := b.cache[studentID]; ok {
		return rec, nil
	}

	rec := &Record{
		StudentID: studentID,
		Topics:    make(map[string]*TopicStat),
		CreatedAt: time.Now(),
	}

	data, err := os.ReadFile(b.recordPath(studentID))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, rec); err != nil {
			return nil, fmt.Errorf("failed to parse memory file for %s: %w", studentID, err)
		}
		if rec.Topics == nil {
			rec.Topics = make(map[string]*TopicStat)
		}
	case os.IsNotExist(err):
		// New student.
	default:
		return nil, fmt.Errorf("failed to read memory file for %s: %w", studentID, err)
	}

	b.cache[studentID] = rec
	return rec, nil
}

// save writes the record to disk. Callers must hold b.mu.
func (b *Bank) save(rec *Record) error {
	rec.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory record: %w", err)
	}

	path := b.recordPath(rec.StudentID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write memory file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace memory file: %w", err)
	}
	return nil
}

// AddInteraction records an exchange and updates topic stats. The
// interaction list is capped and periodically compacted.
func (b *Bank) AddInteraction(studentID, query, reply, intent string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return err
	}

	topic := ExtractTopic(query)
	now := time.Now()

	rec.Interactions = append(rec.Interactions, Interaction{
		Timestamp:    now,
		Query:        query,
		ReplySummary: truncateRunes(reply, replySummaryLimit),
		Intent:       intent,
		Topic:        topic,
	})
	rec.TotalInteractions++

	if topic != "" {
		stat, ok := rec.Topics[topic]
		if !ok {
			stat = &TopicStat{FirstSeen: now}
			rec.Topics[topic] = stat
		}
		stat.LastSeen = now
		stat.Count++
	}

	if b.cfg.CompactThreshold > 0 && rec.TotalInteractions >= b.cfg.CompactThreshold {
		b.compact(rec)
	}
	if max := b.cfg.MaxInteractions; max > 0 && len(rec.Interactions) > max {
		rec.Interactions = rec.Interactions[len(rec.Interactions)-max:]
	}

	return b.save(rec)
}

// StudentContext returns the personalization snapshot for a student.
func (b *Bank) StudentContext(studentID string) (*StudentContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return nil, err
	}

	return &StudentContext{
		StudentID:         studentID,
		Profile:           rec.Profile,
		RecentTopics:      recentTopics(rec.Interactions, 5),
		TotalInteractions: rec.TotalInteractions,
		TopicsStudied:     len(rec.Topics),
		Preferences:       rec.Preferences,
	}, nil
}

// recentTopics returns up to limit unique topics, newest first.
func recentTopics(interactions []Interaction, limit int) []string {
	seen := make(map[string]bool)
	var topics []string
	for i := len(interactions) - 1; i >= 0 && len(topics) < limit; i-- {
		topic := interactions[i].Topic
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}
	return topics
}

// InteractionHistory returns the last limit interactions, oldest first.
// limit <= 0 returns all retained interactions.
func (b *Bank) InteractionHistory(studentID string, limit int) ([]Interaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return nil, err
	}

	n := len(rec.Interactions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Interaction, n)
	copy(out, rec.Interactions[len(rec.Interactions)-n:])
	return out, nil
}

// UpdateProfile merges non-empty fields into the student profile.
func (b *Bank) UpdateProfile(studentID string, profile Profile) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return err
	}

	if profile.Level != "" {
		rec.Profile.Level = profile.Level
	}
	if profile.LearningStyle != "" {
		rec.Profile.LearningStyle = profile.LearningStyle
	}
	for _, s := range profile.Strengths {
		rec.Profile.Strengths = appendUnique(rec.Profile.Strengths, s)
	}
	for _, g := range profile.Gaps {
		rec.Profile.Gaps = appendUnique(rec.Profile.Gaps, g)
	}
	for _, i := range profile.Interests {
		rec.Profile.Interests = appendUnique(rec.Profile.Interests, i)
	}

	return b.save(rec)
}

// AddStrength records a strength, ignoring duplicates.
func (b *Bank) AddStrength(studentID, strength string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return err
	}
	rec.Profile.Strengths = appendUnique(rec.Profile.Strengths, strength)
	return b.save(rec)
}

// AddGap records a knowledge gap, ignoring duplicates.
func (b *Bank) AddGap(studentID, gap string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return err
	}
	rec.Profile.Gaps = appendUnique(rec.Profile.Gaps, gap)
	return b.save(rec)
}

// SetGaps replaces the gap list.
func (b *Bank) SetGaps(studentID string, gaps []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return err
	}
	rec.Profile.Gaps = nil
	for _, g := range gaps {
		rec.Profile.Gaps = appendUnique(rec.Profile.Gaps, g)
	}
	return b.save(rec)
}

// SetPreferences updates non-empty preference fields.
func (b *Bank) SetPreferences(studentID string, prefs Preferences) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return err
	}
	if prefs.ExplanationDetail != "" {
		rec.Preferences.ExplanationDetail = prefs.ExplanationDetail
	}
	if prefs.PracticeDifficulty != "" {
		rec.Preferences.PracticeDifficulty = prefs.PracticeDifficulty
	}
	return b.save(rec)
}

// ContextSummary formats a compact prompt block describing the student.
func (b *Bank) ContextSummary(studentID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return "", err
	}

	var lines []string
	if rec.Profile.Level != "" {
		lines = append(lines, fmt.Sprintf("Level: %s", rec.Profile.Level))
	}
	if rec.Profile.LearningStyle != "" {
		lines = append(lines, fmt.Sprintf("Learning style: %s", rec.Profile.LearningStyle))
	}
	if len(rec.Profile.Strengths) > 0 {
		lines = append(lines, fmt.Sprintf("Strengths: %s", strings.Join(rec.Profile.Strengths, ", ")))
	}
	if len(rec.Profile.Gaps) > 0 {
		lines = append(lines, fmt.Sprintf("Needs work on: %s", strings.Join(rec.Profile.Gaps, ", ")))
	}
	if topics := recentTopics(rec.Interactions, 5); len(topics) > 0 {
		lines = append(lines, fmt.Sprintf("Recent topics: %s", strings.Join(topics, ", ")))
	}
	if rec.ContextSummary != "" {
		lines = append(lines, rec.ContextSummary)
	}

	if len(lines) == 0 {
		return "", nil
	}
	return "Student background:\n" + strings.Join(lines, "\n"), nil
}

// Compact folds older interactions into the context summary now,
// regardless of the configured threshold.
func (b *Bank) Compact(studentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.load(studentID)
	if err != nil {
		return err
	}
	b.compact(rec)
	return b.save(rec)
}

// compact folds all but the most recent interactions into a
// topic-count summary line. Callers must hold b.mu.
func (b *Bank) compact(rec *Record) {
	keep := b.cfg.MaxInteractions
	if keep <= 0 {
		keep = 50
	}
	if len(rec.Interactions) <= keep {
		return
	}

	old := rec.Interactions[:len(rec.Interactions)-keep]
	counts := make(map[string]int)
	for _, it := range old {
		if it.Topic != "" {
			counts[it.Topic]++
		}
	}

	topics := make([]string, 0, len(rec.Topics))
	for topic := range rec.Topics {
		if counts[topic] > 0 {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)

	parts := make([]string, 0, len(topics))
	for _, topic := range topics {
		parts = append(parts, fmt.Sprintf("%s (%d times)", topic, rec.Topics[topic].Count))
	}
	if len(parts) > 0 {
		rec.ContextSummary = fmt.Sprintf("Earlier sessions covered: %s.", strings.Join(parts, ", "))
	}

	rec.Interactions = rec.Interactions[len(rec.Interactions)-keep:]
	slog.Debug("Compacted memory record",
		"student_id", rec.StudentID, "folded", len(old))
}

func appendUnique(list []string, item string) []string {
	item = strings.TrimSpace(item)
	if item == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, item) {
			return list
		}
	}
	return append(list, item)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
