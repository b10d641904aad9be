package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edumentor-ai/edumentor/pkg/llms"
	"github.com/edumentor-ai/edumentor/pkg/logger"
	"github.com/edumentor-ai/edumentor/pkg/memory"
	"github.com/edumentor-ai/edumentor/pkg/progress"
	"github.com/edumentor-ai/edumentor/pkg/prompts"
)

const quizAgentName = "quiz"

// Question is a single generated practice question.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
	Topic         string   `json:"topic"`
}

// Evaluation is the scored feedback for a student answer.
type Evaluation struct {
	Score     float64 `json:"score"`
	Feedback  string  `json:"feedback"`
	Hint      string  `json:"hint"`
	IsCorrect bool    `json:"is_correct"`
}

// Flashcard is one memorization card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Hint  string `json:"hint,omitempty"`
}

// QuizGenerator creates practice material and grades answers. Scores
// from graded answers feed the progress store.
type QuizGenerator struct {
	llm              llms.LLMProvider
	progress         *progress.Store
	defaultQuestions int
	logger           *slog.Logger
}

func NewQuizGenerator(llm llms.LLMProvider, store *progress.Store, defaultQuestions int) *QuizGenerator {
	if defaultQuestions <= 0 {
		defaultQuestions = 5
	}
	return &QuizGenerator{
		llm:              llm,
		progress:         store,
		defaultQuestions: defaultQuestions,
		logger:           logger.GetLogger().With("agent", quizAgentName),
	}
}

// GenerateQuiz produces a formatted quiz with an answer key, mixing
// multiple choice, short answer, and problem solving roughly 50/30/20.
func (q *QuizGenerator) GenerateQuiz(ctx context.Context, topic string, count int, difficulty string) (string, error) {
	if count <= 0 {
		count = q.defaultQuestions
	}
	if difficulty == "" {
		difficulty = "medium"
	}

	system := prompts.Compose(prompts.Quiz, prompts.DifficultyBlock(difficulty))
	user := fmt.Sprintf(`Generate %d practice questions about: %s

Mix the question types:
- Multiple choice questions (about 50%%)
- Short answer questions (about 30%%)
- Problem-solving questions (about 20%%)

Format each question with its number, text, options (for multiple
choice), and point value. Finish with an ANSWER KEY giving correct
answers, brief explanations, and the key concept tested.`, count, topic)

	quiz, err := generate(ctx, q.llm, quizAgentName, []llms.Message{
		llms.System(system),
		llms.User(user),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Practice quiz: %s (difficulty: %s)\n\n%s", topic, difficulty, quiz), nil
}

// GenerateQuestion produces one question as structured JSON.
func (q *QuizGenerator) GenerateQuestion(ctx context.Context, topic, kind, difficulty string) (*Question, error) {
	if kind == "" {
		kind = "multiple_choice"
	}
	if difficulty == "" {
		difficulty = "medium"
	}

	user := fmt.Sprintf(`Generate ONE %s question about: %s
Difficulty: %s

For multiple_choice include exactly 4 options labeled A) through D).
For short_answer omit the options field.
For problem_solving include the step-by-step solution in the explanation.`, kind, topic, difficulty)

	var question Question
	err := generateInto(ctx, q.llm, quizAgentName, []llms.Message{
		llms.System(prompts.Quiz),
		llms.User(user),
	}, &llms.StructuredOutputConfig{
		Format:           "json",
		Schema:           questionSchema,
		PropertyOrdering: []string{"question", "options", "correct_answer", "explanation", "difficulty", "topic"},
	}, &question)
	if err != nil {
		return nil, err
	}

	if question.Difficulty == "" {
		question.Difficulty = difficulty
	}
	if question.Topic == "" {
		question.Topic = topic
	}
	return &question, nil
}

// EvaluateAnswer grades a student answer with scored feedback and
// records the score against the question's topic.
func (q *QuizGenerator) EvaluateAnswer(ctx context.Context, studentID string, question *Question, answer string) (*Evaluation, error) {
	user := fmt.Sprintf(`Evaluate this student answer:

QUESTION: %s

STUDENT ANSWER: %s

CORRECT ANSWER: %s

Score from 0 to 100. Be encouraging and educational in the feedback,
and include a helpful hint when the answer is not fully correct.`, question.Question, answer, question.CorrectAnswer)

	var eval Evaluation
	err := generateInto(ctx, q.llm, quizAgentName, []llms.Message{
		llms.System(prompts.Quiz),
		llms.User(user),
	}, &llms.StructuredOutputConfig{
		Format:           "json",
		Schema:           evaluationSchema,
		PropertyOrdering: []string{"score", "feedback", "hint", "is_correct"},
	}, &eval)
	if err != nil {
		return nil, err
	}

	topic := question.Topic
	if topic == "" {
		topic = memory.ExtractTopic(question.Question)
	}
	if q.progress != nil && studentID != "" {
		if err := q.progress.RecordScore(studentID, topic, eval.Score, question.Difficulty); err != nil {
			q.logger.Warn("failed to record score", "student_id", studentID, "topic", topic, "error", err)
		}
	}

	return &eval, nil
}

// AdaptiveQuiz picks a difficulty from the student's recent scores on
// the topic, then generates a quiz at that level.
func (q *QuizGenerator) AdaptiveQuiz(ctx context.Context, studentID, topic string, count int) (string, error) {
	difficulty, note := q.adaptDifficulty(studentID, topic)

	quiz, err := q.GenerateQuiz(ctx, topic, count, difficulty)
	if err != nil {
		return "", err
	}
	return note + "\n\n" + quiz, nil
}

func (q *QuizGenerator) adaptDifficulty(studentID, topic string) (difficulty, note string) {
	if q.progress == nil || studentID == "" {
		return "medium", "Starting with a balanced quiz to assess your level."
	}

	tp, err := q.progress.TopicProgress(studentID, topic)
	if err != nil || tp == nil || tp.Attempts == 0 {
		return "medium", "Starting with a balanced quiz to assess your level."
	}

	switch {
	case tp.AverageScore >= 85:
		return "hard", "Great job! Here's a challenging quiz to push your skills further."
	case tp.AverageScore >= 65:
		return "medium", "You're doing well! Here's a balanced quiz to continue your progress."
	default:
		return "easy", "Let's build your confidence with some fundamental questions."
	}
}

// Flashcards creates memorization cards as a structured array.
func (q *QuizGenerator) Flashcards(ctx context.Context, topic string, count int) ([]Flashcard, error) {
	if count <= 0 {
		count = 10
	}

	user := fmt.Sprintf(`Create %d educational flashcards about: %s

Each flashcard should test a key concept, definition, or fact, with an
optional memory aid or mnemonic as the hint.`, count, topic)

	var cards []Flashcard
	err := generateInto(ctx, q.llm, quizAgentName, []llms.Message{
		llms.System(prompts.Quiz),
		llms.User(user),
	}, &llms.StructuredOutputConfig{
		Format: "json",
		Schema: flashcardsSchema,
	}, &cards)
	if err != nil {
		return nil, err
	}
	return cards, nil
}

// WordProblems generates applied, real-world problems with solutions.
func (q *QuizGenerator) WordProblems(ctx context.Context, topic string, count int, difficulty string) (string, error) {
	if count <= 0 {
		count = 3
	}
	if difficulty == "" {
		difficulty = "medium"
	}

	system := prompts.Compose(prompts.Quiz, prompts.DifficultyBlock(difficulty))
	user := fmt.Sprintf(`Generate %d word problems about: %s

Each problem should set up a real-world scenario, require understanding
of %s, and have a clear numerical or conceptual solution. Number the
problems, then finish with a SOLUTIONS section giving a step-by-step
solution for each.`, count, topic, topic)

	problems, err := generate(ctx, q.llm, quizAgentName, []llms.Message{
		llms.System(system),
		llms.User(user),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Word problems: %s (difficulty: %s)\n\n%s", topic, difficulty, problems), nil
}

// TrueFalseQuiz generates a quick true/false assessment.
func (q *QuizGenerator) TrueFalseQuiz(ctx context.Context, topic string, count int) (string, error) {
	if count <= 0 {
		count = 10
	}

	user := fmt.Sprintf(`Generate %d True/False questions about: %s

Each statement must be unambiguously true or false. Number the
statements, then finish with an ANSWER KEY giving True or False plus a
brief explanation for each.`, count, topic)

	quiz, err := generate(ctx, q.llm, quizAgentName, []llms.Message{
		llms.System(prompts.Quiz),
		llms.User(user),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("True/false quiz: %s\n\n%s", topic, quiz), nil
}

// FormatFlashcards renders cards for terminal display.
func FormatFlashcards(cards []Flashcard) string {
	var b strings.Builder
	for i, card := range cards {
		fmt.Fprintf(&b, "Card %d\n  Front: %s\n  Back:  %s\n", i+1, card.Front, card.Back)
		if card.Hint != "" {
			fmt.Fprintf(&b, "  Hint:  %s\n", card.Hint)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var questionSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"question":       map[string]interface{}{"type": "string"},
		"options":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"correct_answer": map[string]interface{}{"type": "string"},
		"explanation":    map[string]interface{}{"type": "string"},
		"difficulty":     map[string]interface{}{"type": "string"},
		"topic":          map[string]interface{}{"type": "string"},
	},
	"required": []string{"question", "correct_answer", "explanation"},
}

var evaluationSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"score":      map[string]interface{}{"type": "number", "minimum": 0, "maximum": 100},
		"feedback":   map[string]interface{}{"type": "string"},
		"hint":       map[string]interface{}{"type": "string"},
		"is_correct": map[string]interface{}{"type": "boolean"},
	},
	"required": []string{"score", "feedback", "is_correct"},
}

var flashcardsSchema = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"front": map[string]interface{}{"type": "string"},
			"back":  map[string]interface{}{"type": "string"},
			"hint":  map[string]interface{}{"type": "string"},
		},
		"required": []string{"front", "back"},
	},
}
