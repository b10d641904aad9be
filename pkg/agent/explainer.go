package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/edumentor-ai/edumentor/pkg/llms"
	"github.com/edumentor-ai/edumentor/pkg/prompts"
)

const explainerAgentName = "explainer"

// Explainer breaks complex concepts into structured explanations with
// analogies, steps, and worked examples.
type Explainer struct {
	llm           llms.LLMProvider
	defaultDetail string
}

// NewExplainer builds the explainer agent. defaultDetail is used when
// a call does not specify a level.
func NewExplainer(llm llms.LLMProvider, defaultDetail string) *Explainer {
	if defaultDetail == "" {
		defaultDetail = "medium"
	}
	return &Explainer{llm: llm, defaultDetail: defaultDetail}
}

// Explain produces the full structured explanation: definition,
// analogy, steps, visual description, misconceptions, and a practice
// example, at the requested detail level.
func (e *Explainer) Explain(ctx context.Context, concept, detail string) (string, error) {
	if detail == "" {
		detail = e.defaultDetail
	}

	system := prompts.Compose(prompts.Explainer, prompts.DetailBlock(detail))
	user := fmt.Sprintf(`Explain this concept: %s

Cover these sections in order:
1. Simple definition, as if the student is 10 years old
2. Real-world analogy from everyday life
3. Step-by-step breakdown into digestible pieces
4. Visual description to build a mental model
5. Common misconceptions and what people get wrong
6. A simple practice example to apply the concept

Make it engaging, clear, and easy to understand.`, concept)

	explanation, err := generate(ctx, e.llm, explainerAgentName, []llms.Message{
		llms.System(system),
		llms.User(user),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Concept explanation: %s\n\n%s", concept, explanation), nil
}

// Analogy creates one memorable analogy, optionally grounded in a
// familiar domain like cooking or sports.
func (e *Explainer) Analogy(ctx context.Context, concept, domain string) (string, error) {
	domainHint := "using everyday experiences"
	if domain != "" {
		domainHint = "using " + domain
	}

	user := fmt.Sprintf(`Create a clear, memorable analogy to explain: %s

%s

Provide the analogy itself, how it maps to the actual concept, and
where the analogy breaks down.`, concept, domainHint)

	return generate(ctx, e.llm, explainerAgentName, []llms.Message{
		llms.System(prompts.Explainer),
		llms.User(user),
	})
}

// StepBreakdown decomposes a process into numbered, actionable steps.
func (e *Explainer) StepBreakdown(ctx context.Context, process string) (string, error) {
	user := fmt.Sprintf(`Break down this process into clear, numbered steps: %s

For each step explain what to do, why it's done, and give a quick tip
or example. Keep explanations concise but complete.`, process)

	steps, err := generate(ctx, e.llm, explainerAgentName, []llms.Message{
		llms.System(prompts.Explainer),
		llms.User(user),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Step-by-step guide: %s\n\n%s", process, steps), nil
}

// Examples teaches a concept through a progression of examples.
func (e *Explainer) Examples(ctx context.Context, concept string, count int) (string, error) {
	if count <= 0 {
		count = 3
	}

	user := fmt.Sprintf(`Explain %q through %d clear examples.

For each example describe the scenario, show how the concept applies,
and explain what we can learn from it. Progress from simple to more
complex examples, keeping each distinct.`, concept, count)

	return generate(ctx, e.llm, explainerAgentName, []llms.Message{
		llms.System(prompts.Explainer),
		llms.User(user),
	})
}

// Misconceptions lists what students commonly get wrong about a
// concept, with corrections.
func (e *Explainer) Misconceptions(ctx context.Context, concept string) (string, error) {
	user := fmt.Sprintf(`What are common misconceptions about: %s?

List 3-5 misconceptions. For each, state the misconception, explain
why it's wrong, give the correct understanding, and clarify with an
example.`, concept)

	return generate(ctx, e.llm, explainerAgentName, []llms.Message{
		llms.System(prompts.Explainer),
		llms.User(user),
	})
}

// ConceptMap renders a text-based map of a concept and its relations.
func (e *Explainer) ConceptMap(ctx context.Context, concept string, related []string) (string, error) {
	relatedHint := ""
	if len(related) > 0 {
		relatedHint = "Include these related concepts: " + strings.Join(related, ", ")
	}

	user := fmt.Sprintf(`Create a concept map for: %s
%s

Show the main concept at the center, key sub-concepts, and how they
relate to each other. Format as a clear text-based diagram using
indentation and arrows.`, concept, relatedHint)

	return generate(ctx, e.llm, explainerAgentName, []llms.Message{
		llms.System(prompts.Explainer),
		llms.User(user),
	})
}
