package tutor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/bloom/internal/llm"
	"github.com/abhisek/bloom/internal/store"
	"github.com/abhisek/bloom/internal/telemetry"
)

// MaxIterations bounds the node executions in one turn.
const MaxIterations = 10

// Generator produces text from a prompt. *llm.CompletionService satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateJSON asks for output conforming to schema.
	GenerateJSON(ctx context.Context, prompt string, schema *llm.Schema) (string, error)

	ModelID() string
}

// ExpositionCache stores one generated exposition per subtopic.
// store.ExpositionRepo satisfies it.
type ExpositionCache interface {
	// Get returns nil, nil when nothing is cached for subtopicID.
	Get(ctx context.Context, subtopicID int64) (*store.CachedExposition, error)
	Put(ctx context.Context, subtopicID int64, content, modelIdentifier string) error
}

// Outcome is what a node reports back to the turn loop.
type Outcome struct {
	// Produced are new tutor messages, appended in order.
	Produced []Message

	// Chain requests a specific next node, overriding the router.
	Chain Node

	// Halt ends the turn without consulting the router.
	Halt bool

	// Contained is the failure the node absorbed into an apology.
	Contained error
}

type nodeFunc func(ctx context.Context, s *State) Outcome

// Deps are the engine's collaborators. Generator is required; the rest
// default to no-op implementations.
type Deps struct {
	Generator Generator
	Cache     ExpositionCache
	Recorder  telemetry.Recorder
	Tracer    trace.Tracer
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Engine runs nodes and the router for a single state at a time. One
// Engine serves many sessions concurrently; it keeps no per-session data.
type Engine struct {
	gen      Generator
	cache    ExpositionCache
	recorder telemetry.Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
	clock    func() time.Time

	maxIterations int
	route         func(Node, *State) Decision
	nodes         map[Node]nodeFunc

	// expositions collapses concurrent cache misses for one subtopic.
	expositions singleflight.Group
}

// NewEngine creates an Engine from deps.
func NewEngine(deps Deps) *Engine {
	e := &Engine{
		gen:           deps.Generator,
		cache:         deps.Cache,
		recorder:      deps.Recorder,
		tracer:        deps.Tracer,
		logger:        deps.Logger,
		clock:         deps.Clock,
		maxIterations: MaxIterations,
		route:         Route,
	}
	if e.cache == nil {
		e.cache = noCache{}
	}
	if e.recorder == nil {
		e.recorder = telemetry.Noop{}
	}
	if e.tracer == nil {
		e.tracer = telemetry.Tracer(nil)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	e.nodes = map[Node]nodeFunc{
		NodeExposition:  e.exposition,
		NodeQuestioning: e.questioning,
		NodeEvaluation:  e.evaluation,
		NodeDiagnosis:   e.diagnosis,
		NodeSocratic:    e.socratic,
	}
	return e
}

// TurnResult summarizes one pass of the turn loop.
type TurnResult struct {
	TurnID    string
	Executed  []Node
	Produced  int
	Capped    bool
	Contained error
}

// Iterations is the number of node executions in the turn.
func (r TurnResult) Iterations() int { return len(r.Executed) }

// RunTurn processes the student message already appended to s: it picks
// the entry node, then executes nodes until the router suspends, a node
// halts or contains a failure, or the iteration cap is reached. Hitting
// the cap is logged, not returned.
func (e *Engine) RunTurn(ctx context.Context, s *State) TurnResult {
	return e.loop(ctx, s, EntryNode(s))
}

// RunNode re-executes the current node without a new student message.
// After that node succeeds the turn carries on through chaining and the
// router as the interrupted turn would have, so a retried grade still
// leads to the next question or to diagnosis.
func (e *Engine) RunNode(ctx context.Context, s *State) TurnResult {
	return e.loop(ctx, s, s.CurrentState)
}

func (e *Engine) loop(ctx context.Context, s *State, entry Node) TurnResult {
	res := TurnResult{TurnID: uuid.NewString()}
	sessionID := llm.SessionFrom(ctx)
	logger := e.logger.With(
		slog.Int64("session_id", sessionID),
		slog.String("turn_id", res.TurnID),
		slog.Int64("subtopic_id", s.SubtopicID),
	)

	start := time.Now()
	ctx, span := telemetry.StartTurnSpan(ctx, e.tracer, sessionID, res.TurnID)

	node := entry
	for {
		if len(res.Executed) >= e.maxIterations {
			res.Capped = true
			logger.Error("turn exceeded iteration cap, stopping",
				slog.Int("cap", e.maxIterations),
				slog.String("next_node", string(node)))
			break
		}

		out := e.execute(ctx, logger, node, s)
		res.Executed = append(res.Executed, node)
		res.Produced += len(out.Produced)

		if out.Contained != nil {
			res.Contained = out.Contained
			break
		}
		if out.Halt {
			break
		}
		if out.Chain != "" {
			logger.Debug("node chained", slog.String("from", string(node)), slog.String("to", string(out.Chain)))
			node = out.Chain
			continue
		}

		d := e.route(node, s)
		if d.Suspend {
			logger.Debug("turn suspended", slog.String("node", string(node)))
			break
		}
		logger.Debug("routing", slog.String("from", string(node)), slog.String("to", string(d.Next)))
		node = d.Next
	}

	e.recorder.RecordTurn(ctx, res.Iterations(), res.Capped, time.Since(start))
	telemetry.EndSpan(span, res.Contained)
	return res
}

// execute runs one node and appends what it produced to the transcript.
func (e *Engine) execute(ctx context.Context, logger *slog.Logger, node Node, s *State) Outcome {
	fn, ok := e.nodes[node]
	if !ok {
		return Outcome{Contained: errors.New("unknown node " + string(node))}
	}
	// A contained failure leaves the state on this node so a retry
	// re-executes it.
	s.CurrentState = node

	logger.Info("entering node", slog.String("node", string(node)))
	ctx, span := telemetry.StartNodeSpan(ctx, e.tracer, string(node))
	start := time.Now()

	out := fn(ctx, s)
	for _, m := range out.Produced {
		if m.Timestamp.IsZero() {
			m.Timestamp = e.now()
		}
		s.Messages = append(s.Messages, m)
	}

	elapsed := time.Since(start)
	e.recorder.RecordNodeExecution(ctx, string(node), elapsed, out.Contained)
	telemetry.EndSpan(span, out.Contained)

	if out.Contained != nil {
		logger.Warn("node failure contained",
			slog.String("node", string(node)),
			slog.String("error", out.Contained.Error()))
	} else {
		logger.Info("leaving node",
			slog.String("node", string(node)),
			slog.String("current_state", string(s.CurrentState)),
			slog.Int("produced", len(out.Produced)),
			slog.Duration("elapsed", elapsed))
	}
	return out
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

func (e *Engine) generate(ctx context.Context, purpose, prompt string) (string, error) {
	return e.gen.Generate(llm.WithPurpose(ctx, purpose), prompt)
}

// generateJSON requests structured output named after the schema.
func (e *Engine) generateJSON(ctx context.Context, prompt string, schema *llm.Schema) (string, error) {
	return e.gen.GenerateJSON(llm.WithPurpose(ctx, schema.Name), prompt, schema)
}

// say wraps text as a single tutor message outcome.
func say(text string) Outcome {
	return Outcome{Produced: []Message{{Role: RoleTutor, Content: text}}}
}

// Apologies shown when a node contains a failure.
const (
	apologyConnection = "I'm having trouble connecting right now. Please try again in a moment."
	apologyQuestion   = "I'm having trouble generating a question. Let's try again."
	apologyEvaluation = "I had trouble evaluating that. Could you try rephrasing your answer?"
)

// contain turns err into an apology and halts the turn. The node must not
// have modified the state.
func contain(err error, apology string) Outcome {
	out := say(apology)
	out.Contained = err
	return out
}

var errEmptyOutput = errors.New("model returned empty text")

type noCache struct{}

func (noCache) Get(context.Context, int64) (*store.CachedExposition, error) { return nil, nil }

func (noCache) Put(context.Context, int64, string, string) error { return nil }
