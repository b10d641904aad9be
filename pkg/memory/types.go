// Package memory provides the per-student memory bank: a JSON document
// per student with a write-through in-process cache.
package memory

import "time"

// Profile describes what we know about a student.
type Profile struct {
	// Level is the student's grade or ability level, free-form.
	Level string `json:"level,omitempty"`

	// LearningStyle is how the student prefers to learn
	// (visual, verbal, hands-on).
	LearningStyle string `json:"learning_style,omitempty"`

	Strengths []string `json:"strengths,omitempty"`
	Gaps      []string `json:"gaps,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// Interaction is one recorded exchange with the student.
type Interaction struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`

	// ReplySummary holds the first 200 runes of the reply.
	ReplySummary string `json:"reply_summary"`

	Intent string `json:"intent,omitempty"`
	Topic  string `json:"topic,omitempty"`
}

// TopicStat tracks engagement with one topic.
type TopicStat struct {
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Count     int       `json:"count"`
}

// Preferences holds tutoring preferences.
type Preferences struct {
	// ExplanationDetail is "simple", "medium", or "detailed".
	ExplanationDetail string `json:"explanation_detail,omitempty"`

	// PracticeDifficulty is "easy", "medium", or "hard".
	PracticeDifficulty string `json:"practice_difficulty,omitempty"`
}

// Record is the full memory document for one student.
type Record struct {
	StudentID    string                `json:"student_id"`
	Profile      Profile               `json:"profile"`
	Interactions []Interaction         `json:"interactions"`
	Topics       map[string]*TopicStat `json:"topics"`
	Preferences  Preferences           `json:"preferences"`

	// ContextSummary holds compacted history from older interactions.
	ContextSummary string `json:"context_summary,omitempty"`

	// TotalInteractions counts all interactions ever recorded,
	// including compacted ones.
	TotalInteractions int `json:"total_interactions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StudentContext is the snapshot agents personalize from.
type StudentContext struct {
	StudentID         string   `json:"student_id"`
	Profile           Profile  `json:"profile"`
	RecentTopics      []string `json:"recent_topics"`
	TotalInteractions int      `json:"total_interactions"`
	TopicsStudied     int      `json:"topics_studied"`
	Preferences       Preferences
}
