package core

import "testing"

func TestStageForwardOrder(t *testing.T) {
	want := []Stage{
		StageIssueBrief, StageDepartmentSpeeches, StageBrainIntervention,
		StagePrimeSummary, StageFollowUpDiscussion, StagePrimeDecision,
		StageCompleted,
	}
	stage := StageIssueBrief
	for i, w := range want {
		if stage != w {
			t.Fatalf("step %d: stage = %s, want %s", i, stage, w)
		}
		stage = stage.Next()
	}
	if !stage.Terminal() {
		t.Error("walk did not end in a terminal stage")
	}
	if StageCompleted.Next() != StageCompleted {
		t.Error("terminal stages must be fixed points of Next")
	}
}

func TestDefaultStageConfigsMandatoryStages(t *testing.T) {
	cfgs := DefaultStageConfigs()
	for _, stage := range []Stage{StageDepartmentSpeeches, StagePrimeSummary, StagePrimeDecision} {
		if cfgs[stage].CanDegrade {
			t.Errorf("%s must not be skippable", stage)
		}
	}
	if !cfgs[StageBrainIntervention].CanDegrade {
		t.Error("brain_intervention should be skippable under budget pressure")
	}
}
