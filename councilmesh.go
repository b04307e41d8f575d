// Package councilmesh provides a high-level façade over the deliberation
// engine: the stage flow controller, the process-wide completion scheduler
// and the memory subsystem (compression, retrieval, summarization). Most
// applications interact with this package by:
//  1. Creating a CouncilMesh via New() (optionally overriding default in-memory services)
//  2. Creating a meeting with a topic, token budget and participant roles
//  3. Running the meeting and reading snapshots / durable records afterwards
//
// The façade delegates orchestration to flow.Controller while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments supply a real completion client, a
// durable record store and a structured logger.
package councilmesh

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/councilmesh/core"
	"github.com/hupe1980/councilmesh/flow"
	"github.com/hupe1980/councilmesh/logging"
	"github.com/hupe1980/councilmesh/model"
	"github.com/hupe1980/councilmesh/persona"
	"github.com/hupe1980/councilmesh/record"
	"github.com/hupe1980/councilmesh/retrieval"
	"github.com/hupe1980/councilmesh/scheduler"
	"github.com/hupe1980/councilmesh/summary"
)

// DefaultRoles is the participant set used when a meeting selects none.
var DefaultRoles = []string{"finance", "security", "infrastructure", "welfare"}

// Options configures the CouncilMesh instance.
type Options struct {
	// Completion is the generation capability shared by every role and
	// meeting. Defaults to the deterministic mock client.
	Completion core.CompletionClient

	// Personas resolves role system prompts. Defaults to the seeded
	// in-memory store.
	Personas core.PersonaStore

	// Records is the durable-record store backing retrieval and summary
	// extraction. Defaults to an in-memory implementation.
	Records core.RecordStore

	// Notifier receives each stage's appended messages, best-effort.
	Notifier core.Notifier

	// Stages overrides the per-stage policy table.
	Stages map[core.Stage]core.StageConfig

	// Seed fixes the speaking-order shuffle for reproducible runs.
	Seed int64

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// CouncilMesh is the high-level façade aggregating the flow controller and
// its services. Independent meetings run fully in parallel; their
// generation calls still serialize through the shared scheduler.
type CouncilMesh struct {
	opts       Options
	scheduler  *scheduler.Scheduler
	controller *flow.Controller
	records    core.RecordStore

	mu       sync.RWMutex
	meetings map[string]*core.Meeting
}

// New creates a CouncilMesh with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *CouncilMesh {
	opts := Options{
		Completion: model.NewMockClient(),
		Personas:   persona.NewInMemoryStore(),
		Records:    record.NewInMemoryStore(),
		Notifier:   core.NoOpNotifier{},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	sched := scheduler.New(opts.Completion, func(o *scheduler.Options) {
		o.Logger = opts.Logger
	})
	retr := retrieval.New(opts.Records, func(o *retrieval.Options) {
		o.Logger = opts.Logger
	})
	summ := summary.New(opts.Records, func(o *summary.Options) {
		o.Logger = opts.Logger
	})
	ctrl := flow.NewController(sched, func(o *flow.Options) {
		o.Personas = opts.Personas
		o.Contexts = retr
		o.Summaries = summ
		o.Notifier = opts.Notifier
		o.Logger = opts.Logger
		o.Seed = opts.Seed
		if opts.Stages != nil {
			o.Stages = opts.Stages
		}
	})

	return &CouncilMesh{
		opts:       opts,
		scheduler:  sched,
		controller: ctrl,
		records:    opts.Records,
		meetings:   map[string]*core.Meeting{},
	}
}

// CreateMeeting registers a new pending meeting. Empty roles select
// DefaultRoles.
func (cm *CouncilMesh) CreateMeeting(topic, description string, budget int, roles []string) *core.Meeting {
	if len(roles) == 0 {
		roles = DefaultRoles
	}
	m := core.NewMeeting(topic, description, budget, roles)
	cm.mu.Lock()
	cm.meetings[m.ID] = m
	cm.mu.Unlock()
	return m
}

// Run drives the meeting to a terminal state.
func (cm *CouncilMesh) Run(ctx context.Context, meetingID string) error {
	m, err := cm.meeting(meetingID)
	if err != nil {
		return err
	}
	return cm.controller.Run(ctx, m)
}

// Continue feeds a late-arriving user message into a completed meeting,
// re-entering the follow-up discussion and refreshing the decision.
func (cm *CouncilMesh) Continue(ctx context.Context, meetingID, text string) error {
	m, err := cm.meeting(meetingID)
	if err != nil {
		return err
	}
	return cm.controller.Continue(ctx, m, text)
}

// Meeting returns a snapshot of the meeting safe for external observers.
func (cm *CouncilMesh) Meeting(meetingID string) (*core.Meeting, error) {
	m, err := cm.meeting(meetingID)
	if err != nil {
		return nil, err
	}
	return m.Snapshot(), nil
}

// Records exposes the durable-record store for host-process reads.
func (cm *CouncilMesh) Records() core.RecordStore { return cm.records }

// Close stops the completion scheduler. In-flight meetings fail their next
// generation call.
func (cm *CouncilMesh) Close() { cm.scheduler.Close() }

func (cm *CouncilMesh) meeting(meetingID string) (*core.Meeting, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	m, ok := cm.meetings[meetingID]
	if !ok {
		return nil, fmt.Errorf("councilmesh: unknown meeting %q", meetingID)
	}
	return m, nil
}
