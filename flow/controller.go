package flow

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/councilmesh/budget"
	"github.com/hupe1980/councilmesh/compress"
	"github.com/hupe1980/councilmesh/core"
	"github.com/hupe1980/councilmesh/logging"
	"github.com/hupe1980/councilmesh/persona"
	"github.com/hupe1980/councilmesh/retrieval"
	"github.com/hupe1980/councilmesh/summary"
)

var (
	// ErrRunInProgress is returned by Run when the meeting is already
	// being driven by another caller.
	ErrRunInProgress = errors.New("flow: run already in progress")
	// ErrContinuationQueued is returned by Continue when the single
	// continuation slot is already occupied.
	ErrContinuationQueued = errors.New("flow: a continuation is already queued")
	// ErrNotContinuable is returned by Continue for meetings that never
	// completed.
	ErrNotContinuable = errors.New("flow: meeting is not in a continuable state")
)

// Completer is the slice of the completion scheduler the controller needs.
// scheduler.Scheduler satisfies it.
type Completer interface {
	Submit(ctx context.Context, role string, messages []core.Message, opts *core.CompletionOptions) (*core.CompletionResult, error)
}

// ContextBuilder is the slice of the retriever the controller needs.
// retrieval.Retriever satisfies it.
type ContextBuilder interface {
	BuildPackage(q retrieval.Query) (string, int, error)
}

// SummaryGenerator is the slice of the summarizer the controller needs.
// summary.Summarizer satisfies it.
type SummaryGenerator interface {
	Generate(m *core.Meeting) (*summary.Result, error)
}

// Options configures a Controller.
type Options struct {
	// Stages overrides the per-stage policy table.
	Stages map[core.Stage]core.StageConfig
	// Personas resolves role system prompts. Defaults to the seeded
	// in-memory store.
	Personas core.PersonaStore
	// Contexts builds the opening context package. Nil disables retrieval;
	// the opening prompt then carries the explicit no-history marker.
	Contexts ContextBuilder
	// Summaries extracts durable records on completion. Nil disables the
	// extraction step.
	Summaries SummaryGenerator
	// Compressor shrinks over-long histories before speaking turns.
	Compressor *compress.Compressor
	// Notifier receives each stage's appended messages, best-effort.
	Notifier core.Notifier
	// Seed fixes the speaking-order shuffle for deterministic tests.
	// Zero seeds from the clock.
	Seed int64
	// NoInputPhrase is the abstention signal recognized during follow-up.
	NoInputPhrase string
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// StageResult is the outcome of one state transition.
type StageResult struct {
	// Messages appended to the meeting by this stage. Empty for skipped
	// stages and forced-decision jumps.
	Messages []core.Message
	// NextStage is where the flow goes next.
	NextStage core.Stage
	// Degradation is the meeting's degradation level after this stage.
	Degradation core.DegradationLevel
}

// meetingState tracks per-meeting run exclusivity and the single-slot
// continuation queue, independent from the scheduler's request queue.
type meetingState struct {
	mu         sync.Mutex
	running    bool
	pending    string
	summarized bool
}

// Controller drives meetings through the stage state machine. One
// controller serves any number of meetings; independent meetings run fully
// in parallel while their generation calls still serialize through the
// shared Completer.
type Controller struct {
	completions Completer
	personas    core.PersonaStore
	contexts    ContextBuilder
	summaries   SummaryGenerator
	compressor  *compress.Compressor
	notifier    core.Notifier
	logger      logging.Logger
	stages      map[core.Stage]core.StageConfig
	noInput     string

	rngMu sync.Mutex
	rng   *rand.Rand

	mu      sync.Mutex
	ledgers map[string]*budget.Ledger
	states  map[string]*meetingState
}

// NewController creates a controller submitting all generation requests
// through the given completer.
func NewController(completions Completer, optFns ...func(o *Options)) *Controller {
	opts := Options{
		Stages:        core.DefaultStageConfigs(),
		Personas:      persona.NewInMemoryStore(),
		Compressor:    compress.New(),
		Notifier:      core.NoOpNotifier{},
		NoInputPhrase: "no further input",
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Controller{
		completions: completions,
		personas:    opts.Personas,
		contexts:    opts.Contexts,
		summaries:   opts.Summaries,
		compressor:  opts.Compressor,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		stages:      opts.Stages,
		noInput:     opts.NoInputPhrase,
		rng:         rand.New(rand.NewSource(seed)),
		ledgers:     map[string]*budget.Ledger{},
		states:      map[string]*meetingState{},
	}
}

// Run drives a meeting from the opening stage to a terminal state. A
// generation failure marks the meeting failed and returns the error; no
// summaries are generated for failed meetings. Queued continuations are
// replayed after the run finishes.
func (c *Controller) Run(ctx context.Context, m *core.Meeting) error {
	st := c.stateFor(m.ID)
	st.mu.Lock()
	if st.running {
		st.mu.Unlock()
		return ErrRunInProgress
	}
	st.running = true
	st.mu.Unlock()
	defer c.drainThenRelease(ctx, m, st)

	m.SetStatus(core.StatusRunning)
	c.logger.Info("meeting run started", "meeting_id", m.ID, "topic", m.Topic, "budget", m.Budget)

	stage := core.StageIssueBrief
	for !stage.Terminal() {
		res, err := c.ExecuteStage(ctx, m, stage)
		if err != nil {
			m.Fail(err)
			c.logger.Error("meeting run failed", "meeting_id", m.ID, "stage", stage.String(), "error", err)
			return err
		}
		stage = res.NextStage
	}

	m.SetStatus(core.StatusCompleted)
	c.generateSummaries(m, st)
	c.logger.Info("meeting run completed", "meeting_id", m.ID, "usage", m.GetUsage(), "degradation", string(m.GetDegradation()))
	return nil
}

// ExecuteStage is the single entry point driving one state transition. It
// applies the degradation policy before executing the stage body: an
// exhausted budget jumps straight to the decision stage (severe), and a
// degradable stage under skip pressure advances without executing
// (partial). Department speeches and the prime summary never degrade.
func (c *Controller) ExecuteStage(ctx context.Context, m *core.Meeting, stage core.Stage) (*StageResult, error) {
	if stage.Terminal() {
		return nil, fmt.Errorf("flow: cannot execute terminal stage %s", stage)
	}
	ledger := c.ledgerFor(m)
	cfg := c.stages[stage]

	if stage != core.StagePrimeDecision && ledger.ShouldForceDecision() {
		reason := fmt.Sprintf("budget exhausted (%d of %d tokens) before %s; forcing decision", ledger.Usage(), ledger.Budget(), stage)
		m.Degrade(core.DegradationSevere, reason)
		c.logger.Warn("forcing decision", "meeting_id", m.ID, "stage", stage.String(), "usage", ledger.Usage())
		return &StageResult{NextStage: core.StagePrimeDecision, Degradation: m.GetDegradation()}, nil
	}
	if ledger.ShouldSkip(cfg) {
		reason := fmt.Sprintf("budget pressure (%d of %d tokens); skipping %s", ledger.Usage(), ledger.Budget(), stage)
		m.Degrade(core.DegradationPartial, reason)
		c.logger.Warn("skipping stage", "meeting_id", m.ID, "stage", stage.String(), "usage", ledger.Usage())
		return &StageResult{NextStage: stage.Next(), Degradation: m.GetDegradation()}, nil
	}

	transition := core.NewSystemMessage("Entering " + stage.String()).WithMetadata(core.MetaStage, stage.String())
	m.AppendMessage(transition)

	start := time.Now()
	var msgs []core.Message
	var err error
	switch stage {
	case core.StageIssueBrief:
		msgs, err = c.runIssueBrief(ctx, m, ledger, cfg)
	case core.StageDepartmentSpeeches:
		msgs, err = c.runSpeeches(ctx, m, ledger, cfg)
	case core.StageBrainIntervention:
		msgs, err = c.runIntervention(ctx, m, ledger, cfg)
	case core.StagePrimeSummary:
		msgs, err = c.runPrimeSummary(ctx, m, ledger, cfg)
	case core.StageFollowUpDiscussion:
		msgs, err = c.runFollowUp(ctx, m, ledger, cfg)
	case core.StagePrimeDecision:
		msgs, err = c.runDecision(ctx, m, ledger, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", stage, err)
	}

	m.SetUsage(ledger.Usage())
	c.notify(m.ID, msgs)
	c.logger.Debug("stage executed", "meeting_id", m.ID, "stage", stage.String(), "messages", len(msgs), "duration", time.Since(start))

	return &StageResult{Messages: msgs, NextStage: stage.Next(), Degradation: m.GetDegradation()}, nil
}

func (c *Controller) generateSummaries(m *core.Meeting, st *meetingState) {
	if c.summaries == nil {
		return
	}
	st.mu.Lock()
	done := st.summarized
	st.summarized = true
	st.mu.Unlock()
	if done {
		return
	}
	if _, err := c.summaries.Generate(m); err != nil {
		c.logger.Warn("summary extraction failed", "meeting_id", m.ID, "error", err)
	}
}

// notify delivers the stage's messages to observers. Delivery runs on its
// own goroutine and panics are swallowed so a broken notifier can never
// block or fail stage progress.
func (c *Controller) notify(meetingID string, msgs []core.Message) {
	if c.notifier == nil || len(msgs) == 0 {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Warn("notifier panicked", "meeting_id", meetingID, "panic", r)
			}
		}()
		c.notifier.Notify(meetingID, msgs)
	}()
}

func (c *Controller) ledgerFor(m *core.Meeting) *budget.Ledger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.ledgers[m.ID]; ok {
		return l
	}
	l := budget.NewLedger(m.Budget)
	l.Seed(m.GetUsage())
	c.ledgers[m.ID] = l
	return l
}

func (c *Controller) stateFor(meetingID string) *meetingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[meetingID]; ok {
		return st
	}
	st := &meetingState{}
	c.states[meetingID] = st
	return st
}

// shuffled returns a random permutation of roles using the controller's
// seeded source, so tests can pin a permutation via Options.Seed.
func (c *Controller) shuffled(roles []string) []string {
	out := append([]string(nil), roles...)
	c.rngMu.Lock()
	c.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	c.rngMu.Unlock()
	return out
}

func (c *Controller) speakingRoles(m *core.Meeting, cfg core.StageConfig) []string {
	if len(cfg.RequiredRoles) > 0 {
		return cfg.RequiredRoles
	}
	return m.Roles
}
