package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/abhisek/bloom/internal/llm"
	"github.com/abhisek/bloom/internal/store"
	"github.com/abhisek/bloom/internal/telemetry"
)

var fixedNow = time.Date(2026, 1, 12, 15, 4, 5, 0, time.UTC)

type fixture struct {
	mock   *llm.MockProvider
	store  *store.Store
	cache  store.ExpositionRepo
	stats  *telemetry.CacheStats
	engine *Engine
}

func newFixture(t *testing.T, responses ...llm.MockResponse) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		mock:  llm.NewMockProvider(responses...),
		store: st,
		cache: st.ExpositionRepo(),
		stats: telemetry.NewCacheStats(),
	}
	f.engine = NewEngine(Deps{
		Generator: llm.NewCompletionService(f.mock, llm.DefaultCompletionConfig()),
		Cache:     f.cache,
		Recorder:  f.stats,
		Clock:     func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) script(responses ...llm.MockResponse) {
	for _, r := range responses {
		f.mock.AddResponse(r)
	}
}

// send appends a student message the way Agent.Advance does and runs a turn.
func (f *fixture) send(s *State, msg string) TurnResult {
	s.Messages = append(s.Messages, Message{Role: RoleStudent, Content: msg, Timestamp: fixedNow})
	s.LastStudentAnswer = msg
	return f.engine.RunTurn(context.Background(), s)
}

func tutorMessages(msgs []Message) []string {
	var out []string
	for _, m := range msgs {
		if m.Role == RoleTutor {
			out = append(out, m.Content)
		}
	}
	return out
}

const (
	explanation = "Fractions represent parts of a whole. For example, 1/2 + 1/4 = 3/4. Any questions?"
	question1   = "What is 2/3 + 1/6?"
	question2   = "What is 3/4 - 1/8?"
)

func evalJSON(correctness string) llm.MockResponse {
	return llm.MockText(`{"correctness":"` + correctness + `","feedback":"Good effort.","assessment":"Added numerators and denominators separately."}`)
}

// questioningState reproduces scenario B: a question has been asked.
func questioningState(t *testing.T, f *fixture) *State {
	t.Helper()
	s := NewState(101, "Adding fractions")
	f.script(llm.MockText(explanation), llm.MockText(question1), llm.MockText("NUMERICAL"))
	f.engine.RunNode(context.Background(), s)
	f.send(s, "give me a question")
	require.Equal(t, NodeQuestioning, s.CurrentState)
	return s
}

func TestScenarioStart(t *testing.T) {
	f := newFixture(t, llm.MockText(explanation))
	s := NewState(101, "Adding fractions")

	res := f.engine.RunNode(context.Background(), s)

	require.Len(t, s.Messages, 1)
	assert.Equal(t, RoleTutor, s.Messages[0].Role)
	assert.Equal(t, explanation, s.Messages[0].Content)
	assert.Equal(t, fixedNow, s.Messages[0].Timestamp)
	assert.Equal(t, NodeExposition, s.CurrentState)
	assert.Equal(t, []Node{NodeExposition}, res.Executed)
	assert.NoError(t, res.Contained)
	assert.Contains(t, f.mock.Prompt(0), "Adding fractions")
	assert.Contains(t, f.mock.Prompt(0), "14-16 years old")
}

func TestExpositionCacheMiss(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.MockText(explanation))

	f.engine.RunNode(ctx, NewState(101, "Adding fractions"))

	assert.Equal(t, 1, f.mock.CallCount())
	cached, err := f.cache.Get(ctx, 101)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, explanation, cached.Content)
	assert.Equal(t, "mock", cached.ModelIdentifier)
	assert.Equal(t, telemetry.CacheSnapshot{Misses: 1}, f.stats.Snapshot())
}

func TestExpositionCacheHit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.cache.Put(ctx, 101, "cached explanation", "claude-sonnet"))

	s := NewState(101, "Adding fractions")
	f.engine.RunNode(ctx, s)

	assert.Zero(t, f.mock.CallCount())
	assert.Equal(t, []string{"cached explanation"}, tutorMessages(s.Messages))
	snap := f.stats.Snapshot()
	assert.Equal(t, int64(1), snap.Hits)
	assert.Equal(t, int64(0), snap.Misses)
}

func TestExpositionFollowUpSkipsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.MockText("A denominator is the bottom number."))
	require.NoError(t, f.cache.Put(ctx, 101, "cached explanation", "m"))

	s := NewState(101, "Adding fractions")
	f.engine.RunNode(ctx, s)
	res := f.send(s, "what is a denominator?")

	assert.Equal(t, []Node{NodeExposition}, res.Executed)
	assert.Equal(t, NodeExposition, s.CurrentState)
	assert.Equal(t, 1, f.mock.CallCount())
	assert.Equal(t, int64(1), f.stats.Snapshot().Hits)
	assert.Contains(t, f.mock.Prompt(0), "student: what is a denominator?")
	assert.Equal(t, "A denominator is the bottom number.", s.Messages[2].Content)
}

func TestExpositionCacheFailureTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.MockText(explanation))
	require.NoError(t, f.store.Close())

	s := NewState(101, "Adding fractions")
	res := f.engine.RunNode(ctx, s)

	assert.NoError(t, res.Contained)
	assert.Equal(t, []string{explanation}, tutorMessages(s.Messages))
	assert.Equal(t, int64(1), f.stats.Snapshot().Misses)
}

func TestScenarioQuestionRequest(t *testing.T) {
	f := newFixture(t)
	s := questioningState(t, f)

	assert.Equal(t, 1, s.QuestionsAttempted)
	assert.Equal(t, question1, s.LastQuestion)
	assert.Equal(t, NodeQuestioning, s.CurrentState)
	assert.True(t, s.CalculatorVisible)
	assert.Zero(t, s.HintsGiven)
	assert.Equal(t, []string{explanation, question1}, tutorMessages(s.Messages))
	assert.Contains(t, f.mock.Prompt(1), "Ask ONE clear")
	assert.Contains(t, f.mock.Prompt(2), question1)
}

func TestScenarioCorrectAnswer(t *testing.T) {
	f := newFixture(t)
	s := questioningState(t, f)
	before := len(s.Messages)

	f.script(evalJSON("correct"), llm.MockText(question2), llm.MockText("NON_NUMERICAL"))
	res := f.send(s, "5/6")

	assert.Equal(t, []Node{NodeEvaluation, NodeQuestioning}, res.Executed)
	assert.Equal(t, 1, s.QuestionsCorrect)
	assert.Equal(t, 2, s.QuestionsAttempted)
	assert.Zero(t, s.HintsGiven)
	assert.Equal(t, NodeQuestioning, s.CurrentState)
	assert.Equal(t, question2, s.LastQuestion)
	assert.False(t, s.CalculatorVisible)

	added := tutorMessages(s.Messages[before:])
	assert.Equal(t, []string{"✓ Good effort.", question2}, added)
	require.NoError(t, s.Validate())
}

func TestScenarioIncorrectAnswer(t *testing.T) {
	f := newFixture(t)
	s := questioningState(t, f)
	before := len(s.Messages)

	f.script(
		llm.MockText("```json\n{\"correctness\":\"incorrect\",\"feedback\":\"Not right.\",\"assessment\":\"Added denominators.\"}\n```"),
		llm.MockText(`{"misconception":"Common Denominator","question":"What must be true of the denominators before you add?"}`),
		llm.MockText("What number do both 3 and 6 divide into?"),
	)
	res := f.send(s, "3/9")

	assert.Equal(t, []Node{NodeEvaluation, NodeDiagnosis, NodeSocratic}, res.Executed)
	added := tutorMessages(s.Messages[before:])
	assert.Equal(t, []string{
		"Not quite. What must be true of the denominators before you add?",
		"What number do both 3 and 6 divide into?",
	}, added)
	assert.Equal(t, NodeSocratic, s.CurrentState)
	assert.Equal(t, 1, s.HintsGiven)
	assert.Zero(t, s.QuestionsCorrect)
	require.NotNil(t, s.LastEvaluation)
	assert.Equal(t, Incorrect, s.LastEvaluation.Correctness)
	assert.Equal(t, "common-denominator", s.LastEvaluation.Misconception)

	assert.Same(t, EvaluationSchema, f.mock.Call(3).Schema)
	assert.Same(t, DiagnosisSchema, f.mock.Call(4).Schema)
	assert.Nil(t, f.mock.Call(5).Schema)

	hintPrompt := f.mock.Prompt(f.mock.CallCount() - 1)
	assert.Contains(t, hintPrompt, "subtle")
	assert.Contains(t, hintPrompt, "common-denominator")
}

func TestPartialAnswer(t *testing.T) {
	f := newFixture(t)
	s := questioningState(t, f)
	before := len(s.Messages)

	f.script(
		evalJSON("partial"),
		llm.MockText(`{"misconception":"operation-confusion","question":"Which operation did you use?"}`),
		llm.MockText("What happens to the bottom numbers?"),
	)
	f.send(s, "5/6 maybe?")

	assert.Equal(t, []string{
		"Good effort.",
		"Which operation did you use?",
		"What happens to the bottom numbers?",
	}, tutorMessages(s.Messages[before:]))
	assert.Equal(t, NodeSocratic, s.CurrentState)
	assert.Equal(t, 1, s.HintsGiven)
}

func TestHintTiersEscalate(t *testing.T) {
	f := newFixture(t)
	s := questioningState(t, f)

	f.script(evalJSON("incorrect"), llm.MockText(`{"misconception":"sign-error","question":"q?"}`), llm.MockText("hint 1"))
	f.send(s, "wrong")
	require.Equal(t, 1, s.HintsGiven)

	for want := 2; want <= 4; want++ {
		f.script(evalJSON("incorrect"), llm.MockText(`{"misconception":"sign-error","question":"q?"}`), llm.MockText("hint"))
		f.send(s, "still wrong")
		assert.Equal(t, want, s.HintsGiven)
		assert.Contains(t, f.mock.Prompt(f.mock.CallCount()-1), tierFor(want).Name)
	}
}

func TestFullSolutionAfterRepeatedHints(t *testing.T) {
	f := newFixture(t)
	s := questioningState(t, f)
	s.CurrentState = NodeSocratic
	s.HintsGiven = 3
	attempted := s.QuestionsAttempted
	before := len(s.Messages)

	f.script(
		evalJSON("incorrect"),
		llm.MockText("Step 1: write both with denominator 6..."),
		llm.MockText(question2),
		llm.MockText("NUMERICAL"),
	)
	res := f.send(s, "I give up, just tell me")

	assert.Equal(t, []Node{NodeEvaluation, NodeSocratic, NodeQuestioning}, res.Executed)
	added := tutorMessages(s.Messages[before:])
	require.Len(t, added, 3)
	assert.Equal(t, "Not quite.", added[0])
	assert.True(t, strings.HasPrefix(added[1], solutionPreamble))
	assert.Contains(t, added[1], "Step 1")
	assert.Equal(t, question2, added[2])
	assert.Zero(t, s.HintsGiven)
	assert.Equal(t, attempted+1, s.QuestionsAttempted)
	assert.Equal(t, NodeQuestioning, s.CurrentState)
}

func TestAnswerRequestWithFewHintsGoesToDiagnosis(t *testing.T) {
	f := newFixture(t)
	s := questioningState(t, f)
	s.HintsGiven = 2

	f.script(evalJSON("incorrect"), llm.MockText(`{"misconception":"sign-error","question":"q?"}`), llm.MockText("hint"))
	res := f.send(s, "just tell me")

	assert.Equal(t, []Node{NodeEvaluation, NodeDiagnosis, NodeSocratic}, res.Executed)
	assert.Equal(t, 3, s.HintsGiven)
}

func TestEvaluationWithoutAnswerIsNoop(t *testing.T) {
	f := newFixture(t)
	s := NewState(1, "x")
	s.CurrentState = NodeQuestioning

	res := f.engine.RunTurn(context.Background(), s)

	assert.Equal(t, []Node{NodeEvaluation}, res.Executed)
	assert.Empty(t, s.Messages)
	assert.Zero(t, f.mock.CallCount())
}

func TestCorrectNeverExceedsAttempted(t *testing.T) {
	f := newFixture(t)
	s := questioningState(t, f)
	s.QuestionsCorrect = s.QuestionsAttempted

	f.script(evalJSON("correct"), llm.MockError(errors.New("down")))
	f.send(s, "5/6")

	assert.Equal(t, 1, s.QuestionsCorrect)
	assert.Equal(t, 1, s.QuestionsAttempted)
	require.NoError(t, s.Validate())
}

func TestContainment(t *testing.T) {
	t.Run("generation failure in questioning", func(t *testing.T) {
		f := newFixture(t, llm.MockText(explanation), llm.MockError(errors.New("provider down")))
		s := NewState(101, "Adding fractions")
		f.engine.RunNode(context.Background(), s)
		snapshot := s.Clone()

		res := f.send(s, "give me a question")

		require.Error(t, res.Contained)
		assert.Equal(t, []Node{NodeQuestioning}, res.Executed)
		last, _ := s.LastMessage()
		assert.Equal(t, apologyQuestion, last.Content)
		assert.Equal(t, NodeQuestioning, s.CurrentState, "left on the failed node")
		assert.Equal(t, snapshot.QuestionsAttempted, s.QuestionsAttempted)
		assert.Empty(t, s.LastQuestion)
	})

	t.Run("malformed evaluation", func(t *testing.T) {
		f := newFixture(t)
		s := questioningState(t, f)
		snapshot := s.Clone()

		f.script(llm.MockText("Looks right to me!"))
		res := f.send(s, "5/6")

		var mo *MalformedOutputError
		require.True(t, errors.As(res.Contained, &mo))
		assert.Equal(t, []Node{NodeEvaluation}, res.Executed)
		last, _ := s.LastMessage()
		assert.Equal(t, apologyEvaluation, last.Content)
		assert.Equal(t, NodeEvaluation, s.CurrentState)
		assert.Equal(t, snapshot.QuestionsCorrect, s.QuestionsCorrect)
		assert.Equal(t, snapshot.QuestionsAttempted, s.QuestionsAttempted)
		assert.Nil(t, s.LastEvaluation)
	})

	t.Run("socratic failure keeps hint count", func(t *testing.T) {
		f := newFixture(t)
		s := questioningState(t, f)

		f.script(evalJSON("incorrect"), llm.MockText(`{"misconception":"sign-error","question":"q?"}`), llm.MockError(errors.New("timeout")))
		res := f.send(s, "3/9")

		require.Error(t, res.Contained)
		assert.Zero(t, s.HintsGiven)
		assert.Equal(t, NodeSocratic, s.CurrentState)
		last, _ := s.LastMessage()
		assert.Equal(t, apologyConnection, last.Content)
	})

	t.Run("classification failure hides calculator", func(t *testing.T) {
		f := newFixture(t, llm.MockText(explanation), llm.MockText(question1), llm.MockError(errors.New("down")))
		s := NewState(101, "Adding fractions")
		f.engine.RunNode(context.Background(), s)

		res := f.send(s, "quiz me")

		assert.NoError(t, res.Contained)
		assert.False(t, s.CalculatorVisible)
		assert.Equal(t, question1, s.LastQuestion)
	})
}

func TestIterationCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.cache.Put(ctx, 101, "cached", "m"))
	f.engine.route = func(Node, *State) Decision { return advance(NodeExposition) }

	s := NewState(101, "Adding fractions")
	res := f.engine.RunTurn(ctx, s)

	assert.True(t, res.Capped)
	assert.Equal(t, MaxIterations, res.Iterations())
	assert.Len(t, s.Messages, MaxIterations)
	assert.NoError(t, res.Contained)
	assert.Equal(t, int64(MaxIterations), f.stats.Snapshot().Hits)
}

// gatedGenerator blocks until released and counts calls.
type gatedGenerator struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGenerator) Generate(ctx context.Context, _ string) (string, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	select {
	case <-g.release:
		return "shared explanation", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedGenerator) GenerateJSON(ctx context.Context, prompt string, _ *llm.Schema) (string, error) {
	return g.Generate(ctx, prompt)
}

func (g *gatedGenerator) ModelID() string { return "gated" }

func TestConcurrentMissesShareGeneration(t *testing.T) {
	f := newFixture(t)
	gen := &gatedGenerator{entered: make(chan struct{}), release: make(chan struct{})}
	e := NewEngine(Deps{Generator: gen, Cache: f.cache, Recorder: f.stats})

	states := []*State{NewState(101, "Adding fractions"), NewState(101, "Adding fractions")}
	var wg sync.WaitGroup
	for _, s := range states {
		wg.Add(1)
		go func(s *State) {
			defer wg.Done()
			e.RunNode(context.Background(), s)
		}(s)
	}

	<-gen.entered
	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	assert.Equal(t, int32(1), gen.calls.Load())
	for _, s := range states {
		assert.Equal(t, []string{"shared explanation"}, tutorMessages(s.Messages))
	}
}

func TestTurnSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t, llm.MockText(explanation))
	f.engine.tracer = tp.Tracer("test")

	f.engine.RunNode(llm.WithSession(context.Background(), 9), NewState(101, "Adding fractions"))

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"tutor.node.exposition", "tutor.turn"}, names)
}
