package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/assess"
	"github.com/edumentor-ai/edumentor/pkg/llms"
	"github.com/edumentor-ai/edumentor/pkg/logger"
	"github.com/edumentor-ai/edumentor/pkg/memory"
	"github.com/edumentor-ai/edumentor/pkg/progress"
	"github.com/edumentor-ai/edumentor/pkg/prompts"
)

const trackerAgentName = "tracker"

// historyWindow bounds how many interactions feed an analysis prompt.
const historyWindow = 10

// ProgressTracker analyzes learning history and produces reports,
// gap/strength lists, study plans, and mastery scores.
type ProgressTracker struct {
	llm      llms.LLMProvider
	memory   *memory.Bank
	progress *progress.Store
	logger   *slog.Logger
}

func NewProgressTracker(llm llms.LLMProvider, bank *memory.Bank, store *progress.Store) *ProgressTracker {
	return &ProgressTracker{
		llm:      llm,
		memory:   bank,
		progress: store,
		logger:   logger.GetLogger().With("agent", trackerAgentName),
	}
}

// AnalyzeProgress produces a personalized progress report. Students
// with no recorded history get a friendly starting message instead of
// an LLM call.
func (p *ProgressTracker) AnalyzeProgress(ctx context.Context, studentID string) (string, error) {
	history, err := p.memory.InteractionHistory(studentID, historyWindow)
	if err != nil {
		return "", fmt.Errorf("%s: %w", trackerAgentName, err)
	}

	if len(history) == 0 {
		return emptyProgressReport, nil
	}

	sc, err := p.memory.StudentContext(studentID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", trackerAgentName, err)
	}

	user := fmt.Sprintf(`Analyze this student's learning progress and create a comprehensive report.

STUDENT PROFILE:
Level: %s
Learning style: %s
Strengths: %s
Knowledge gaps: %s
Recent topics: %s

INTERACTION HISTORY (last %d sessions):
%s

Structure the report with these sections:
1. Overall progress summary
2. Topics mastered
3. Areas for improvement
4. Learning patterns observed
5. Specific recommendations
6. Motivational encouragement

Make it personal, encouraging, and actionable.`,
		orDefault(sc.Profile.Level, "intermediate"),
		orDefault(sc.Profile.LearningStyle, "unspecified"),
		joinOrDefault(sc.Profile.Strengths, "not yet identified"),
		joinOrDefault(sc.Profile.Gaps, "none identified"),
		joinOrDefault(sc.RecentTopics, "none"),
		len(history),
		formatInteractions(history),
	)

	report, err := generate(ctx, p.llm, trackerAgentName, []llms.Message{
		llms.System(prompts.Tracker),
		llms.User(user),
	})
	if err != nil {
		return "", err
	}

	sessions, problems, err := p.progress.Totals(studentID)
	if err != nil {
		p.logger.Warn("progress totals unavailable", "student_id", studentID, "error", err)
	}

	return fmt.Sprintf("Progress report, %s\n\n%s\n\nTotal sessions: %d | Problems attempted: %d",
		time.Now().Format("January 2, 2006"), report, sessions, problems), nil
}

// IdentifyGaps extracts 3-5 specific knowledge gaps from recent
// interactions and persists them to the student's profile.
func (p *ProgressTracker) IdentifyGaps(ctx context.Context, studentID string) ([]string, error) {
	history, err := p.memory.InteractionHistory(studentID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", trackerAgentName, err)
	}
	if len(history) == 0 {
		return nil, nil
	}

	user := fmt.Sprintf(`Analyze these student interactions and identify specific knowledge gaps:

%s

Identify 3-5 specific concepts or skills where the student shows
difficulty. Look for recurring questions about the same topics,
difficulty patterns, misconceptions, and topics they avoid.

Return a JSON array of short strings.`, formatInteractions(history))

	var gaps []string
	err = generateInto(ctx, p.llm, trackerAgentName, []llms.Message{
		llms.System(prompts.Tracker),
		llms.User(user),
	}, &llms.StructuredOutputConfig{Format: "json", Schema: stringArraySchema}, &gaps)
	if err != nil {
		return nil, err
	}

	if err := p.memory.SetGaps(studentID, gaps); err != nil {
		p.logger.Warn("failed to persist gaps", "student_id", studentID, "error", err)
	}
	return gaps, nil
}

// IdentifyStrengths extracts 3-5 strengths from recent interactions
// and adds them to the student's profile.
func (p *ProgressTracker) IdentifyStrengths(ctx context.Context, studentID string) ([]string, error) {
	history, err := p.memory.InteractionHistory(studentID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", trackerAgentName, err)
	}
	if len(history) == 0 {
		return nil, nil
	}

	user := fmt.Sprintf(`Analyze these student interactions and identify their learning strengths:

%s

Identify 3-5 specific strengths, skills, or topics they excel at. Look
for topics they engage with confidently, quick understanding, advanced
questions, and consistent performance.

Return a JSON array of short strings.`, formatInteractions(history))

	var strengths []string
	err = generateInto(ctx, p.llm, trackerAgentName, []llms.Message{
		llms.System(prompts.Tracker),
		llms.User(user),
	}, &llms.StructuredOutputConfig{Format: "json", Schema: stringArraySchema}, &strengths)
	if err != nil {
		return nil, err
	}

	for _, strength := range strengths {
		if err := p.memory.AddStrength(studentID, strength); err != nil {
			p.logger.Warn("failed to persist strength", "student_id", studentID, "error", err)
		}
	}
	return strengths, nil
}

// StudyPlan generates a day-by-day plan over the given duration,
// focused on the given topics or the student's known gaps.
func (p *ProgressTracker) StudyPlan(ctx context.Context, studentID string, days int, topics []string) (string, error) {
	if days <= 0 {
		days = 7
	}

	sc, err := p.memory.StudentContext(studentID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", trackerAgentName, err)
	}

	if len(topics) == 0 {
		topics = sc.Profile.Gaps
		if len(topics) > 5 {
			topics = topics[:5]
		}
	}
	if len(topics) == 0 {
		topics = []string{"review fundamentals", "explore new topics"}
	}

	user := fmt.Sprintf(`Create a %d-day personalized study plan for this student.

STUDENT PROFILE:
Level: %s
Strengths: %s
Areas to improve: %s

TOPICS TO COVER:
%s

Give a day-by-day plan with daily learning objectives, specific
concepts to study, realistic time estimates, practice activities, and
review checkpoints. Make it achievable, motivating, and balanced.`,
		days,
		orDefault(sc.Profile.Level, "intermediate"),
		joinOrDefault(sc.Profile.Strengths, "to be discovered"),
		joinOrDefault(sc.Profile.Gaps, "general review"),
		strings.Join(topics, ", "),
	)

	plan, err := generate(ctx, p.llm, trackerAgentName, []llms.Message{
		llms.System(prompts.Tracker),
		llms.User(user),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d-day study plan\n\n%s\n\nConsistency is key: even 20 minutes daily makes a difference.", days, plan), nil
}

// TopicMastery is the mastery assessment for one topic.
type TopicMastery struct {
	Topic        string         `json:"topic"`
	Mastery      assess.Mastery `json:"mastery"`
	Attempts     int            `json:"attempts"`
	Interactions int            `json:"interactions"`
}

// MasteryScore assesses a topic from recorded quiz scores, falling
// back to an engagement-count estimate when no scores exist.
func (p *ProgressTracker) MasteryScore(studentID, topic string) (*TopicMastery, error) {
	tp, err := p.progress.TopicProgress(studentID, topic)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", trackerAgentName, err)
	}

	interactions, err := p.countTopicInteractions(studentID, topic)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", trackerAgentName, err)
	}

	result := &TopicMastery{Topic: topic, Interactions: interactions}

	if tp != nil && len(tp.Scores) > 0 {
		attempts := make([]assess.ScoredAttempt, len(tp.Scores))
		for i, entry := range tp.Scores {
			attempts[i] = assess.ScoredAttempt{Score: entry.Score, Difficulty: entry.Difficulty}
		}
		result.Mastery = assess.ComputeMastery(attempts)
		result.Attempts = tp.Attempts
		return result, nil
	}

	// No graded work yet: estimate from engagement alone.
	result.Mastery = assess.ComputeMastery(engagementAttempts(interactions))
	return result, nil
}

// engagementAttempts converts an interaction count into a synthetic
// attempt so repeated engagement registers as growing mastery.
func engagementAttempts(interactions int) []assess.ScoredAttempt {
	if interactions == 0 {
		return nil
	}

	var estimate float64
	switch {
	case interactions >= 10:
		estimate = 85
	case interactions >= 6:
		estimate = 70
	case interactions >= 3:
		estimate = 55
	default:
		estimate = 30
	}
	return []assess.ScoredAttempt{{Score: estimate, Difficulty: "medium"}}
}

func (p *ProgressTracker) countTopicInteractions(studentID, topic string) (int, error) {
	history, err := p.memory.InteractionHistory(studentID, 0)
	if err != nil {
		return 0, err
	}

	needle := strings.ToLower(topic)
	count := 0
	for _, interaction := range history {
		if strings.Contains(strings.ToLower(interaction.Topic), needle) ||
			strings.Contains(strings.ToLower(interaction.Query), needle) {
			count++
		}
	}
	return count, nil
}

func formatInteractions(history []memory.Interaction) string {
	var b strings.Builder
	for i, interaction := range history {
		topic := orDefault(interaction.Topic, "general")
		intent := orDefault(interaction.Intent, "unknown")
		fmt.Fprintf(&b, "Session %d:\n  Date: %s\n  Topic: %s\n  Intent: %s\n  Query: %s\n",
			i+1, interaction.Timestamp.Format(time.RFC3339), topic, intent, interaction.Query)
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func joinOrDefault(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

const emptyProgressReport = `Progress report

You're just getting started! There isn't enough data yet to analyze
your progress. Keep working with me and I'll be able to provide
detailed insights soon.

Tips for effective learning:
- Practice regularly
- Ask questions when confused
- Review challenging topics
- Test yourself with quizzes`

var stringArraySchema = map[string]interface{}{
	"type":  "array",
	"items": map[string]interface{}{"type": "string"},
}
