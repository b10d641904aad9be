package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edumentor-ai/edumentor/pkg/knowledge"
	"github.com/edumentor-ai/edumentor/pkg/llms"
	"github.com/edumentor-ai/edumentor/pkg/logger"
	"github.com/edumentor-ai/edumentor/pkg/memory"
	"github.com/edumentor-ai/edumentor/pkg/prompts"
)

const tutorAgentName = "tutor"

// Tutor teaches with the Socratic method, personalizing its prompt from
// the student's memory record and retrieved knowledge.
type Tutor struct {
	llm       llms.LLMProvider
	memory    *memory.Bank
	knowledge knowledge.Retriever
	logger    *slog.Logger
}

// NewTutor builds the tutor agent. The retriever may be nil, in which
// case prompts carry no reference material.
func NewTutor(llm llms.LLMProvider, bank *memory.Bank, retriever knowledge.Retriever) *Tutor {
	return &Tutor{
		llm:       llm,
		memory:    bank,
		knowledge: retriever,
		logger:    logger.GetLogger().With("agent", tutorAgentName),
	}
}

// Teach answers a student query Socratically. extraContext carries
// output from an upstream agent (for example a concept explanation)
// and may be empty.
func (t *Tutor) Teach(ctx context.Context, studentID, query, extraContext string) (string, error) {
	background, err := t.memory.ContextSummary(studentID)
	if err != nil {
		t.logger.Warn("memory unavailable, teaching without background", "student_id", studentID, "error", err)
		background = ""
	}

	system := prompts.Compose(prompts.Tutor,
		background,
		prompts.FactsBlock(t.retrieveFacts(ctx, query)),
		contextBlock(extraContext),
	)

	return generate(ctx, t.llm, tutorAgentName, []llms.Message{
		llms.System(system),
		llms.User(query),
	})
}

// Hint gives a graded hint without revealing the full solution. The
// difficulty controls how much the hint gives away.
func (t *Tutor) Hint(ctx context.Context, question, difficulty string) (string, error) {
	system := prompts.Compose(prompts.Tutor, hintInstruction(difficulty))

	user := fmt.Sprintf("Give me a hint for this question, without solving it for me:\n\n%s", question)
	return generate(ctx, t.llm, tutorAgentName, []llms.Message{
		llms.System(system),
		llms.User(user),
	})
}

// CheckUnderstanding probes whether the student's own explanation of a
// topic holds up, responding with targeted follow-up questions.
func (t *Tutor) CheckUnderstanding(ctx context.Context, topic, answer string) (string, error) {
	system := prompts.Compose(prompts.Tutor,
		"The student is explaining a topic in their own words. Assess whether their understanding is sound, point out anything missing or mistaken gently, and ask one follow-up question that tests the weakest part.")

	user := fmt.Sprintf("Topic: %s\n\nMy explanation: %s", topic, answer)
	return generate(ctx, t.llm, tutorAgentName, []llms.Message{
		llms.System(system),
		llms.User(user),
	})
}

func (t *Tutor) retrieveFacts(ctx context.Context, query string) []string {
	if t.knowledge == nil {
		return nil
	}

	facts, err := t.knowledge.Retrieve(ctx, query, 3)
	if err != nil {
		t.logger.Debug("knowledge retrieval failed, continuing without facts", "error", err)
		return nil
	}

	texts := make([]string, len(facts))
	for i, fact := range facts {
		texts[i] = fact.Content
	}
	return texts
}

func contextBlock(extra string) string {
	if extra == "" {
		return ""
	}
	return "Context from a specialist agent, use it to ground your guidance:\n" + extra
}

func hintInstruction(difficulty string) string {
	switch difficulty {
	case "easy":
		return "Give a very direct hint that almost gives the answer."
	case "hard":
		return "Give a subtle hint that only provides direction."
	default:
		return "Give a balanced hint that guides thinking."
	}
}
