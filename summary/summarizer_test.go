package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/councilmesh/core"
	"github.com/hupe1980/councilmesh/record"
)

func transition(stage core.Stage) core.Message {
	msg := core.NewSystemMessage("Entering " + stage.String())
	return msg.WithMetadata(core.MetaStage, stage.String())
}

func finishedMeeting() *core.Meeting {
	m := core.NewMeeting("school lunch pilot", "fund a lunch pilot", 12000, []string{"finance", "welfare"})
	m.AppendMessage(transition(core.StageIssueBrief))
	m.AppendMessage(core.NewMessage(core.RolePrime, core.MessageStatement, "We are deciding on the school lunch pilot."))
	m.AppendMessage(transition(core.StageDepartmentSpeeches))
	m.AppendMessage(core.NewMessage("finance", core.MessagePerspective, "Funding the lunch pilot strains the quarterly budget."))
	m.AppendMessage(core.NewMessage("welfare", core.MessagePerspective, "The lunch pilot improves attendance and nutrition."))
	m.AppendMessage(transition(core.StageFollowUpDiscussion))
	m.AppendMessage(core.NewMessage("finance", core.MessageResponse, "We reached a compromise on funding the lunch pilot partially."))
	m.AppendMessage(transition(core.StagePrimeDecision))
	m.AppendMessage(core.NewMessage(core.RolePrime, core.MessageStatement, "Decision made."))
	m.SetArtifact(core.ArtifactFinalDecision, "Launch the school lunch pilot in two districts.\nReasoning: welfare benefits outweigh the budget strain.\nNext steps:\n- select districts\n- report in one quarter")
	m.SetArtifact(core.ArtifactDisagreements, `["finance and welfare disagree on funding the lunch pilot"]`)
	m.SetUsage(4000)
	m.SetStatus(core.StatusCompleted)
	return m
}

func TestGenerate_AllRecords(t *testing.T) {
	store := record.NewInMemoryStore()
	s := New(store)

	res, err := s.Generate(finishedMeeting())
	require.NoError(t, err)
	assert.NotEmpty(t, res.SummaryID)
	assert.NotEmpty(t, res.DecisionID)
	assert.Len(t, res.ControversyIDs, 1)

	summaries, _ := store.List(core.RecordMeetingSummary)
	require.Len(t, summaries, 1)
	assert.Contains(t, summaries[0].Content, "issue_brief")
	assert.Contains(t, summaries[0].Content, "department_speeches")
	assert.ElementsMatch(t, []string{"prime", "finance", "welfare"}, summaries[0].Metadata["roles"])
}

func TestGenerate_DecisionHeuristics(t *testing.T) {
	store := record.NewInMemoryStore()
	s := New(store)

	_, err := s.Generate(finishedMeeting())
	require.NoError(t, err)

	decisions, _ := store.List(core.RecordDecision)
	require.Len(t, decisions, 1)
	d := decisions[0]
	// "launch" is an action verb
	assert.Equal(t, "high", d.Metadata["impact"])
	// "budget" appears in the reasoning, fiscal wins the taxonomy scan
	assert.Equal(t, "fiscal", d.Metadata["category"])
	assert.Equal(t, "welfare benefits outweigh the budget strain.", d.Metadata["reasoning"])
	assert.Equal(t, []string{"select districts", "report in one quarter"}, d.Metadata["next_steps"])
}

func TestGenerate_ControversyInference(t *testing.T) {
	store := record.NewInMemoryStore()
	s := New(store)

	_, err := s.Generate(finishedMeeting())
	require.NoError(t, err)

	controversies, _ := store.List(core.RecordControversy)
	require.Len(t, controversies, 1)
	c := controversies[0]
	// both departments' messages overlap with the disagreement phrase
	assert.Contains(t, c.Metadata["roles"], "finance")
	assert.Contains(t, c.Metadata["roles"], "welfare")
	// the follow-up message contains "compromise"
	assert.Equal(t, "partial", c.Metadata["resolution"])
	assert.Equal(t, "normal", c.Metadata["importance"])
}

func TestGenerate_NoDecisionArtifact(t *testing.T) {
	store := record.NewInMemoryStore()
	s := New(store)

	m := core.NewMeeting("stalled topic", "", 1000, []string{"finance"})
	m.AppendMessage(transition(core.StageIssueBrief))
	m.AppendMessage(core.NewMessage(core.RolePrime, core.MessageStatement, "Brief only."))

	res, err := s.Generate(m)
	require.NoError(t, err)
	assert.Empty(t, res.DecisionID)
	assert.Empty(t, res.ControversyIDs)

	decisions, _ := store.List(core.RecordDecision)
	assert.Empty(t, decisions)
	summaries, _ := store.List(core.RecordMeetingSummary)
	assert.Len(t, summaries, 1)
}

func TestGenerate_EmptyTranscriptNeverPanics(t *testing.T) {
	store := record.NewInMemoryStore()
	s := New(store)

	m := core.NewMeeting("empty", "", 100, nil)
	res, err := s.Generate(m)
	require.NoError(t, err)
	assert.NotEmpty(t, res.SummaryID)
}

func TestGenerate_MalformedDisagreementsArtifact(t *testing.T) {
	store := record.NewInMemoryStore()
	s := New(store)

	m := finishedMeeting()
	m.SetArtifact(core.ArtifactDisagreements, "not json at all")
	res, err := s.Generate(m)
	require.NoError(t, err)
	// the raw text is treated as a single phrase rather than dropped
	assert.Len(t, res.ControversyIDs, 1)
}
