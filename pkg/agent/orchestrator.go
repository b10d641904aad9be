package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/edumentor-ai/edumentor/pkg/config"
	"github.com/edumentor-ai/edumentor/pkg/knowledge"
	"github.com/edumentor-ai/edumentor/pkg/llms"
	"github.com/edumentor-ai/edumentor/pkg/logger"
	"github.com/edumentor-ai/edumentor/pkg/memory"
	"github.com/edumentor-ai/edumentor/pkg/observability"
	"github.com/edumentor-ai/edumentor/pkg/progress"
	"github.com/edumentor-ai/edumentor/pkg/prompts"
	"github.com/edumentor-ai/edumentor/pkg/session"
)

// Intent classifies what a student query needs.
type Intent string

const (
	IntentExplanation Intent = "explanation"
	IntentPractice    Intent = "practice"
	IntentProgress    Intent = "progress"
	IntentHomework    Intent = "homework"
	IntentGeneral     Intent = "general"
)

var allIntents = []Intent{IntentExplanation, IntentPractice, IntentProgress, IntentHomework, IntentGeneral}

// explanationContextLimit caps how much of an explanation is fed to
// the tutor as context in the sequential explanation route.
const explanationContextLimit = 500

// homeworkQuizQuestions is the size of the practice quiz appended to
// homework guidance.
const homeworkQuizQuestions = 3

// Orchestrator routes student queries to the specialized agents,
// maintains session and memory state, and degrades gracefully when
// the model API is rate limited.
type Orchestrator struct {
	router    llms.LLMProvider
	tutor     *Tutor
	quiz      *QuizGenerator
	tracker   *ProgressTracker
	explainer *Explainer

	sessions *session.Manager
	memory   *memory.Bank
	progress *progress.Store

	// fallback serves facts when the model API is unavailable.
	fallback knowledge.Retriever

	contextWindow int
	logger        *slog.Logger

	// closers are resources owned by NewFromConfig.
	closers []func() error
}

// Deps wires an orchestrator from pre-built components.
type Deps struct {
	Router    llms.LLMProvider
	Tutor     *Tutor
	Quiz      *QuizGenerator
	Tracker   *ProgressTracker
	Explainer *Explainer
	Sessions  *session.Manager
	Memory    *memory.Bank
	Progress  *progress.Store

	// Fallback is the retriever used during rate-limit degradation.
	// Defaults to the built-in local retriever.
	Fallback knowledge.Retriever

	// ContextWindow is how many recent exchanges feed agent context.
	ContextWindow int
}

func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Fallback == nil {
		deps.Fallback = knowledge.NewLocalRetriever()
	}
	if deps.ContextWindow <= 0 {
		deps.ContextWindow = 5
	}
	return &Orchestrator{
		router:        deps.Router,
		tutor:         deps.Tutor,
		quiz:          deps.Quiz,
		tracker:       deps.Tracker,
		explainer:     deps.Explainer,
		sessions:      deps.Sessions,
		memory:        deps.Memory,
		progress:      deps.Progress,
		fallback:      deps.Fallback,
		contextWindow: deps.ContextWindow,
		logger:        logger.GetLogger().With("component", "orchestrator"),
	}
}

// NewFromConfig builds the full agent stack from configuration: one
// provider per agent (with per-agent overrides), the session manager
// with its archive, the memory bank, the progress store, and the
// knowledge retriever.
func NewFromConfig(cfg *config.Config) (*Orchestrator, error) {
	bank, err := memory.NewBank(cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("memory bank: %w", err)
	}

	store, err := progress.NewStore(cfg.Progress)
	if err != nil {
		return nil, fmt.Errorf("progress store: %w", err)
	}

	retriever, err := knowledge.NewRetriever(cfg.Knowledge)
	if err != nil {
		return nil, fmt.Errorf("knowledge retriever: %w", err)
	}

	pool := config.NewDBPool()
	archive, err := session.NewArchiveStore(cfg.Session, cfg.ArchiveDatabase(), pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("session archive: %w", err)
	}
	sessions := session.NewManager(cfg.Session, archive)

	providers := make([]llms.LLMProvider, 0, 5)
	newProvider := func(agentCfg config.AgentConfig) (llms.LLMProvider, error) {
		p, err := llms.NewProvider(agentCfg.Resolve(cfg.LLM))
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
		return p, nil
	}

	closeAll := func() {
		for _, p := range providers {
			p.Close()
		}
		retriever.Close()
		pool.Close()
	}

	router, err := llms.NewProvider(cfg.LLM)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("router provider: %w", err)
	}
	providers = append(providers, router)

	tutorLLM, err := newProvider(cfg.Agents.Tutor)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("tutor provider: %w", err)
	}
	quizLLM, err := newProvider(cfg.Agents.Quiz)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("quiz provider: %w", err)
	}
	trackerLLM, err := newProvider(cfg.Agents.Tracker)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("tracker provider: %w", err)
	}
	explainerLLM, err := newProvider(cfg.Agents.Explainer)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("explainer provider: %w", err)
	}

	o := NewOrchestrator(Deps{
		Router:        router,
		Tutor:         NewTutor(tutorLLM, bank, retriever),
		Quiz:          NewQuizGenerator(quizLLM, store, cfg.Agents.QuizQuestions),
		Tracker:       NewProgressTracker(trackerLLM, bank, store),
		Explainer:     NewExplainer(explainerLLM, cfg.Agents.ExplainerDetail),
		Sessions:      sessions,
		Memory:        bank,
		Progress:      store,
		ContextWindow: cfg.Session.ContextWindow,
	})

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	sessions.StartCleanup(cleanupCtx, 0)

	o.closers = append(o.closers, func() error {
		stopCleanup()
		return nil
	})
	o.closers = append(o.closers, retriever.Close, pool.Close)
	for _, p := range providers {
		o.closers = append(o.closers, p.Close)
	}
	return o, nil
}

// Sessions exposes the session manager for the HTTP and CLI layers.
func (o *Orchestrator) Sessions() *session.Manager { return o.sessions }

// Memory exposes the memory bank for the HTTP and CLI layers.
func (o *Orchestrator) Memory() *memory.Bank { return o.memory }

// Tracker exposes the progress tracker agent.
func (o *Orchestrator) Tracker() *ProgressTracker { return o.tracker }

// Close releases resources owned by the orchestrator.
func (o *Orchestrator) Close() error {
	var firstErr error
	for _, closeFn := range o.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StartSession reuses the student's current session or creates one,
// bumps the session count, and returns a personalized greeting.
func (o *Orchestrator) StartSession(ctx context.Context, studentID string) (*session.Session, string, error) {
	sess, ok := o.sessions.Current(studentID)
	if !ok {
		sess = o.sessions.Create(studentID)
	}

	count, err := o.progress.IncrementSessions(studentID)
	if err != nil {
		o.logger.Warn("failed to bump session count", "student_id", studentID, "error", err)
	}

	sc, err := o.memory.StudentContext(studentID)
	if err != nil {
		o.logger.Warn("memory unavailable for greeting", "student_id", studentID, "error", err)
		sc = &memory.StudentContext{StudentID: studentID}
	}

	o.logger.Info("session started", "student_id", studentID, "session_id", sess.ID(), "session_count", count)
	return sess, greeting(sc, count), nil
}

func greeting(sc *memory.StudentContext, sessionCount int) string {
	var b strings.Builder
	b.WriteString("Welcome to EduMentor, your learning assistant.\n\n")
	b.WriteString("I can help you with:\n")
	b.WriteString("- Understanding difficult concepts\n")
	b.WriteString("- Homework and problem solving\n")
	b.WriteString("- Practice quizzes and exercises\n")
	b.WriteString("- Tracking your learning progress\n")

	if sessionCount > 1 || sc.TotalInteractions > 0 {
		fmt.Fprintf(&b, "\nWelcome back! This is session #%d.", sessionCount)
	}
	if len(sc.RecentTopics) > 0 {
		recent := sc.RecentTopics
		if len(recent) > 2 {
			recent = recent[:2]
		}
		fmt.Fprintf(&b, "\nLast time we worked on: %s.", strings.Join(recent, ", "))
	}

	b.WriteString("\n\nWhat would you like to learn today?")
	return b.String()
}

// Route classifies the query's intent and dispatches to the matching
// agent pipeline, then records the exchange in session and memory.
func (o *Orchestrator) Route(ctx context.Context, sessionID, query string) (reply string, intent Intent, err error) {
	sess, err := o.sessions.Get(sessionID)
	if err != nil {
		return "", "", err
	}
	studentID := sess.StudentID()

	tracer := observability.GetTracer("edumentor.orchestrator")
	ctx, span := tracer.Start(ctx, observability.SpanRouting)
	span.SetAttributes(
		attribute.String(observability.AttrStudentID, studentID),
		attribute.String(observability.AttrSessionID, sessionID),
	)
	start := time.Now()
	defer func() {
		span.SetAttributes(attribute.String(observability.AttrIntent, string(intent)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	intent = o.classifyIntent(ctx, query, studentID)
	o.logger.Info("routing query", "student_id", studentID, "intent", intent, "query_preview", truncatePreview(query, 50))

	reply, routeErr := o.dispatch(ctx, sess, studentID, query, intent)
	if routeErr != nil {
		degraded, ok := o.degrade(ctx, query, routeErr)
		if !ok {
			return "", intent, routeErr
		}
		reply = degraded
	}

	if err := o.sessions.RecordExchange(sessionID, query, reply); err != nil {
		o.logger.Warn("failed to record exchange", "session_id", sessionID, "error", err)
	}
	if err := o.memory.AddInteraction(studentID, query, reply, string(intent)); err != nil {
		o.logger.Warn("failed to record interaction", "student_id", studentID, "error", err)
	}

	o.logger.Debug("query routed", "intent", intent, "duration", time.Since(start))
	return reply, intent, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, sess *session.Session, studentID, query string, intent Intent) (string, error) {
	sessionContext := o.sessionContext(sess.ID())

	switch intent {
	case IntentExplanation:
		// Sequential: explainer first, then the tutor grounds its
		// guidance on a truncated slice of the explanation.
		explanation, err := o.explainer.Explain(ctx, query, "")
		if err != nil {
			return "", err
		}
		reply, err := o.tutor.Teach(ctx, studentID, query, truncateRunes(explanation, explanationContextLimit))
		if err != nil {
			return "", err
		}
		return explanation + "\n\n" + reply, nil

	case IntentPractice:
		// Parallel: quiz generation and study tips at the same time.
		var quiz, tips string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			quiz, err = o.quiz.GenerateQuiz(gctx, query, 0, "")
			return err
		})
		g.Go(func() error {
			var err error
			tips, err = o.tutor.Teach(gctx, studentID, "Provide study tips for: "+query, sessionContext)
			return err
		})
		if err := g.Wait(); err != nil {
			return "", err
		}
		return tips + "\n\n" + quiz, nil

	case IntentProgress:
		return o.tracker.AnalyzeProgress(ctx, studentID)

	case IntentHomework:
		// Sequential: guidance first, then targeted practice.
		guidance, err := o.tutor.Teach(ctx, studentID, query, sessionContext)
		if err != nil {
			return "", err
		}
		practice, err := o.quiz.GenerateQuiz(ctx, "practice problems for: "+query, homeworkQuizQuestions, "")
		if err != nil {
			return "", err
		}
		return guidance + "\n\n" + practice, nil

	default:
		return o.tutor.Teach(ctx, studentID, query, sessionContext)
	}
}

func (o *Orchestrator) sessionContext(sessionID string) string {
	prompt, err := o.sessions.ContextPrompt(sessionID, o.contextWindow)
	if err != nil {
		o.logger.Debug("no session context", "session_id", sessionID, "error", err)
		return ""
	}
	return prompt
}

// classifyIntent asks the router model for an enum-constrained intent,
// falling back to keyword rules and finally "general".
func (o *Orchestrator) classifyIntent(ctx context.Context, query, studentID string) Intent {
	enum := make([]string, len(allIntents))
	for i, it := range allIntents {
		enum[i] = string(it)
	}

	user := fmt.Sprintf("Student query: %q\n\n%s", query, o.studentHints(studentID))

	var (
		text string
		err  error
	)
	if sp, ok := o.router.(llms.StructuredOutputProvider); ok && sp.SupportsStructuredOutput() {
		text, _, err = sp.GenerateStructured(ctx, []llms.Message{
			llms.System(prompts.Routing),
			llms.User(user),
		}, &llms.StructuredOutputConfig{Format: "enum", Enum: enum})
	} else {
		text, _, err = o.router.Generate(ctx, []llms.Message{
			llms.System(prompts.Compose(prompts.Routing, "Answer with the single intent word and nothing else.")),
			llms.User(user),
		})
	}
	if err != nil {
		o.logger.Warn("intent classification failed, using keyword rules", "error", err)
		return keywordIntent(query)
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, it := range allIntents {
		if strings.Contains(normalized, string(it)) {
			return it
		}
	}
	return keywordIntent(query)
}

func (o *Orchestrator) studentHints(studentID string) string {
	sc, err := o.memory.StudentContext(studentID)
	if err != nil || sc == nil {
		return ""
	}

	var parts []string
	if len(sc.RecentTopics) > 0 {
		parts = append(parts, "Recent topics: "+strings.Join(sc.RecentTopics, ", "))
	}
	if len(sc.Profile.Gaps) > 0 {
		parts = append(parts, "Known gaps: "+strings.Join(sc.Profile.Gaps, ", "))
	}
	return strings.Join(parts, "\n")
}

// keywordIntent is the deterministic fallback classifier.
func keywordIntent(query string) Intent {
	q := strings.ToLower(query)

	contains := func(keywords ...string) bool {
		for _, kw := range keywords {
			if strings.Contains(q, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("progress", "how am i doing", "stats", "performance", "report"):
		return IntentProgress
	case contains("practice", "quiz", "test me", "problems", "exercises"):
		return IntentPractice
	case contains("homework", "assignment", "stuck on", "help me solve"):
		return IntentHomework
	case contains("explain", "what is", "what are", "how does", "why ", "understand"):
		return IntentExplanation
	default:
		return IntentGeneral
	}
}

// degrade handles rate-limit failures: local facts when available,
// otherwise a retry message. Returns false for non-quota errors.
func (o *Orchestrator) degrade(ctx context.Context, query string, err error) (string, bool) {
	if !llms.IsRateLimited(err) {
		return "", false
	}

	o.logger.Warn("model API rate limited, degrading to local knowledge", "error", err)

	facts, retrieveErr := o.fallback.Retrieve(ctx, query, 3)
	if retrieveErr == nil && len(facts) > 0 {
		texts := make([]string, len(facts))
		for i, fact := range facts {
			texts[i] = fact.Content
		}
		return "I couldn't reach the language API right now due to quota limits, but here's what I can share from the local knowledge base:\n\n" +
			prompts.FactsBlock(texts) +
			"\n\nThis is a limited fallback; for full help please retry after the cooldown.", true
	}

	if retryAfter := llms.RetryAfter(err); retryAfter > 0 {
		return fmt.Sprintf("I apologize, the language API quota was exceeded. Please try again in about %d seconds.", int(retryAfter.Seconds())), true
	}
	return "I apologize, the language API quota was exceeded. Please check your API key or billing, or try again later.", true
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
