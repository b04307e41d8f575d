package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/councilmesh/core"
	"github.com/hupe1980/councilmesh/model"
	"github.com/hupe1980/councilmesh/record"
	"github.com/hupe1980/councilmesh/retrieval"
	"github.com/hupe1980/councilmesh/scheduler"
	"github.com/hupe1980/councilmesh/summary"
)

// newTestController wires a controller over a mock client and an in-memory
// record store, with a fixed shuffle seed for deterministic speaking order.
func newTestController(t *testing.T, client *model.MockClient) (*Controller, *record.InMemoryStore) {
	t.Helper()
	store := record.NewInMemoryStore()
	sched := scheduler.New(client)
	t.Cleanup(sched.Close)

	ctrl := NewController(sched, func(o *Options) {
		o.Contexts = retrieval.New(store)
		o.Summaries = summary.New(store)
		o.Seed = 42
	})
	return ctrl, store
}

func newTestMeeting(budget int) *core.Meeting {
	return core.NewMeeting("launch a pilot program", "decide on funding a pilot", budget, []string{"finance", "welfare"})
}

func TestController_RunCompletesHappyPath(t *testing.T) {
	client := model.NewMockClient()
	ctrl, store := newTestController(t, client)
	m := newTestMeeting(100000)

	require.NoError(t, ctrl.Run(context.Background(), m))

	assert.Equal(t, core.StatusCompleted, m.GetStatus())
	assert.Positive(t, m.GetUsage())

	// every non-degraded run traverses all six stages in order
	var stages []string
	for _, msg := range m.MessagesCopy() {
		if s, ok := msg.Metadata[core.MetaStage].(string); ok {
			stages = append(stages, s)
		}
	}
	assert.Equal(t, []string{
		"issue_brief", "department_speeches", "brain_intervention",
		"prime_summary", "follow_up_discussion", "prime_decision",
	}, stages)

	for _, name := range []string{core.ArtifactIssueBrief, core.ArtifactSpeakingPlan, core.ArtifactSummary, core.ArtifactFinalDecision, core.ArtifactContext} {
		content, ok := m.Artifact(name)
		assert.True(t, ok, "missing artifact %s", name)
		assert.NotEmpty(t, content)
	}

	// completion triggers summary extraction exactly once
	summaries, _ := store.List(core.RecordMeetingSummary)
	assert.Len(t, summaries, 1)
	// retrieval persisted its audit package
	packages, _ := store.List(core.RecordContextPackage)
	assert.Len(t, packages, 1)
}

func TestController_ForcedDecisionOnExhaustedBudget(t *testing.T) {
	client := model.NewMockClient()
	ctrl, _ := newTestController(t, client)

	// exhausted before the run starts: every pre-decision stage is jumped
	m := newTestMeeting(100)
	m.SetUsage(100)

	res, err := ctrl.ExecuteStage(context.Background(), m, core.StageDepartmentSpeeches)
	require.NoError(t, err)
	assert.Equal(t, core.StagePrimeDecision, res.NextStage)
	assert.Equal(t, core.DegradationSevere, res.Degradation)
	assert.Empty(t, res.Messages)

	require.NoError(t, ctrl.Run(context.Background(), m))
	assert.Equal(t, core.StatusCompleted, m.GetStatus())
	assert.Equal(t, core.DegradationSevere, m.GetDegradation())
	assert.NotEmpty(t, m.DegradationReasons)

	// the decision itself still executed
	decision, ok := m.Artifact(core.ArtifactFinalDecision)
	assert.True(t, ok)
	assert.NotEmpty(t, decision)
}

func TestController_SkipsDegradableStageUnderPressure(t *testing.T) {
	client := model.NewMockClient()
	ctrl, _ := newTestController(t, client)

	m := newTestMeeting(1000)
	m.SetUsage(900) // 0.9 ratio: skip pressure, not yet exhausted

	res, err := ctrl.ExecuteStage(context.Background(), m, core.StageBrainIntervention)
	require.NoError(t, err)
	assert.Equal(t, core.StagePrimeSummary, res.NextStage)
	assert.Equal(t, core.DegradationPartial, res.Degradation)
	assert.Empty(t, res.Messages, "skipped stage must produce zero messages")
}

func TestController_MandatoryStagesNeverSkipped(t *testing.T) {
	client := model.NewMockClient()
	ctrl, _ := newTestController(t, client)

	for _, stage := range []core.Stage{core.StageDepartmentSpeeches, core.StagePrimeSummary} {
		m := newTestMeeting(1000)
		m.SetUsage(900)

		res, err := ctrl.ExecuteStage(context.Background(), m, stage)
		require.NoError(t, err)
		assert.Equal(t, stage.Next(), res.NextStage)
		assert.NotEmpty(t, res.Messages, "%s must execute under skip pressure", stage)
	}
}

func TestController_SeededShuffleIsDeterministic(t *testing.T) {
	roles := []string{"finance", "security", "infrastructure", "welfare"}

	plan := func() string {
		client := model.NewMockClient()
		ctrl, _ := newTestController(t, client)
		m := core.NewMeeting("topic", "", 100000, roles)
		_, err := ctrl.ExecuteStage(context.Background(), m, core.StageDepartmentSpeeches)
		require.NoError(t, err)
		p, _ := m.Artifact(core.ArtifactSpeakingPlan)
		return p
	}

	assert.Equal(t, plan(), plan())
}

func TestController_FollowUpAbstentionChargesButAppendsNothing(t *testing.T) {
	client := model.NewMockClient()
	client.AddResponse("finance", "No further input.")
	client.AddResponse("welfare", "We still contest the funding split.")
	ctrl, _ := newTestController(t, client)

	m := newTestMeeting(100000)
	before := m.GetUsage()

	res, err := ctrl.ExecuteStage(context.Background(), m, core.StageFollowUpDiscussion)
	require.NoError(t, err)

	require.Len(t, res.Messages, 1)
	assert.Equal(t, "welfare", res.Messages[0].Role)
	assert.Greater(t, m.GetUsage(), before, "abstaining roles still cost tokens")
}

func TestController_FollowUpHonorsRequiredRolesOverride(t *testing.T) {
	client := model.NewMockClient()
	store := record.NewInMemoryStore()
	sched := scheduler.New(client)
	t.Cleanup(sched.Close)

	stages := core.DefaultStageConfigs()
	cfg := stages[core.StageFollowUpDiscussion]
	cfg.RequiredRoles = []string{"finance"}
	stages[core.StageFollowUpDiscussion] = cfg

	ctrl := NewController(sched, func(o *Options) {
		o.Contexts = retrieval.New(store)
		o.Summaries = summary.New(store)
		o.Stages = stages
		o.Seed = 42
	})

	m := newTestMeeting(100000)
	res, err := ctrl.ExecuteStage(context.Background(), m, core.StageFollowUpDiscussion)
	require.NoError(t, err)

	require.Len(t, res.Messages, 1)
	assert.Equal(t, "finance", res.Messages[0].Role)
}

func TestController_InterventionParsesStructuredOutput(t *testing.T) {
	client := model.NewMockClient()
	client.AddResponse(core.RoleBrain, `Here is my take:
{"analysis": "Finance and welfare pull in opposite directions on funding.", "disagreements": ["finance and welfare disagree on funding"], "follow_up_role": "finance", "question": "What is the minimum viable budget?"}`)
	client.AddResponse("finance", "Roughly half the proposed amount.")
	ctrl, _ := newTestController(t, client)

	m := newTestMeeting(100000)
	res, err := ctrl.ExecuteStage(context.Background(), m, core.StageBrainIntervention)
	require.NoError(t, err)
	require.Len(t, res.Messages, 3)

	assert.Equal(t, core.MessageStatement, res.Messages[0].Type)
	assert.Equal(t, core.MessageElaborationRequest, res.Messages[1].Type)
	assert.Equal(t, "finance", res.Messages[1].Metadata[core.MetaTarget])
	assert.Equal(t, core.MessageResponse, res.Messages[2].Type)
	assert.Equal(t, "finance", res.Messages[2].Role)

	analysis, _ := m.Artifact(core.ArtifactAnalysis)
	assert.Contains(t, analysis, "opposite directions")
	disagreements, ok := m.Artifact(core.ArtifactDisagreements)
	assert.True(t, ok)
	assert.Contains(t, disagreements, "disagree on funding")
}

func TestController_InterventionParseFailureFallsBack(t *testing.T) {
	client := model.NewMockClient()
	client.AddResponse(core.RoleBrain, "I refuse to answer in JSON today.")
	ctrl, _ := newTestController(t, client)

	m := newTestMeeting(100000)
	res, err := ctrl.ExecuteStage(context.Background(), m, core.StageBrainIntervention)
	require.NoError(t, err, "parse failures are recovered, never propagated")
	require.Len(t, res.Messages, 1)
	assert.Equal(t, placeholderAnalysis, res.Messages[0].Content)

	analysis, _ := m.Artifact(core.ArtifactAnalysis)
	assert.Equal(t, placeholderAnalysis, analysis)
}

func TestController_GenerationFailureFailsRun(t *testing.T) {
	boom := errors.New("provider unavailable")
	client := model.NewMockClient()
	client.FailRole(core.RolePrime, boom)
	ctrl, store := newTestController(t, client)

	m := newTestMeeting(100000)
	err := ctrl.Run(context.Background(), m)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, core.StatusFailed, m.GetStatus())
	assert.Contains(t, m.Error, "provider unavailable")

	// no summaries for failed meetings
	summaries, _ := store.List(core.RecordMeetingSummary)
	assert.Empty(t, summaries)
}

func TestController_ExecuteTerminalStageRejected(t *testing.T) {
	client := model.NewMockClient()
	ctrl, _ := newTestController(t, client)
	m := newTestMeeting(1000)

	_, err := ctrl.ExecuteStage(context.Background(), m, core.StageCompleted)
	assert.Error(t, err)
}

func TestController_ContinuationRefreshesDecision(t *testing.T) {
	client := model.NewMockClient()
	ctrl, _ := newTestController(t, client)

	m := newTestMeeting(100000)
	require.NoError(t, ctrl.Run(context.Background(), m))
	first, _ := m.Artifact(core.ArtifactFinalDecision)

	client.AddResponse(core.RolePrime, "Revised: scale the pilot to one district only.\nReasoning: new information.\nNext steps:\n- rescope")
	// queue the revision for the decision turn; follow-up turns use fallback
	require.NoError(t, ctrl.Continue(context.Background(), m, "What about the smaller variant discussed last time?"))

	assert.Equal(t, core.StatusCompleted, m.GetStatus())
	second, _ := m.Artifact(core.ArtifactFinalDecision)
	assert.NotEqual(t, first, second)

	// the user message entered the transcript
	var userSeen bool
	for _, msg := range m.MessagesCopy() {
		if msg.Role == "user" && msg.Type == core.MessageQuestion {
			userSeen = true
		}
	}
	assert.True(t, userSeen)
}

func TestController_ContinuationIgnoresBlankText(t *testing.T) {
	client := model.NewMockClient()
	ctrl, _ := newTestController(t, client)

	m := newTestMeeting(100000)
	require.NoError(t, ctrl.Run(context.Background(), m))
	countBefore := len(m.MessagesCopy())

	require.NoError(t, ctrl.Continue(context.Background(), m, "   \n\t"))
	assert.Len(t, m.MessagesCopy(), countBefore, "blank continuations change nothing")
}

func TestController_ContinuationRequiresCompletedMeeting(t *testing.T) {
	client := model.NewMockClient()
	ctrl, _ := newTestController(t, client)

	m := newTestMeeting(100000)
	err := ctrl.Continue(context.Background(), m, "too early")
	assert.ErrorIs(t, err, ErrNotContinuable)
}
