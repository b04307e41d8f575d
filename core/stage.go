package core

// Stage identifies one phase of the meeting state machine. Stages advance
// in a fixed forward order with no backward transitions and no re-entry;
// StageFailed is a parallel terminal reachable from any non-terminal stage.
type Stage int

const (
	// StageIssueBrief frames the topic and injects retrieved prior-meeting
	// context before any department speaks.
	StageIssueBrief Stage = iota
	// StageDepartmentSpeeches gives every participating department role one
	// turn in a shuffled order. Never skippable.
	StageDepartmentSpeeches
	// StageBrainIntervention asks the synthesizing role to analyze the
	// discussion and optionally nominate one role for clarification.
	StageBrainIntervention
	// StagePrimeSummary has the chairing role consolidate the discussion.
	// Never skippable.
	StagePrimeSummary
	// StageFollowUpDiscussion lets roles respond to the summary; a role may
	// abstain with a recognized no-further-input phrase.
	StageFollowUpDiscussion
	// StagePrimeDecision produces the final decision artifact. Budget
	// exhaustion jumps here directly from any earlier stage.
	StagePrimeDecision
	// StageCompleted is the successful terminal state.
	StageCompleted
	// StageFailed is the error terminal state.
	StageFailed
)

// String returns the canonical snake_case stage name used in transition
// messages and logs.
func (s Stage) String() string {
	switch s {
	case StageIssueBrief:
		return "issue_brief"
	case StageDepartmentSpeeches:
		return "department_speeches"
	case StageBrainIntervention:
		return "brain_intervention"
	case StagePrimeSummary:
		return "prime_summary"
	case StageFollowUpDiscussion:
		return "follow_up_discussion"
	case StagePrimeDecision:
		return "prime_decision"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Next returns the stage following s in the forward order. Terminal stages
// return themselves.
func (s Stage) Next() Stage {
	if s.Terminal() {
		return s
	}
	if s == StagePrimeDecision {
		return StageCompleted
	}
	return s + 1
}

// Terminal reports whether s is one of the two terminal states.
func (s Stage) Terminal() bool { return s == StageCompleted || s == StageFailed }

// StageConfig carries the per-stage execution policy: which roles must
// participate, the token ceiling reserved for the stage and whether the
// stage may be skipped under budget pressure.
type StageConfig struct {
	// RequiredRoles pins the speaking set for the stage. Empty means the
	// meeting's selected participant roles.
	RequiredRoles []string
	// TokenBudget is the advisory token ceiling for the stage's output.
	TokenBudget int
	// CanDegrade marks the stage skippable when the ledger crosses the
	// skip threshold. Department speeches and the prime summary are the
	// minimum viable deliberation and must keep this false.
	CanDegrade bool
}

// DefaultStageConfigs returns the standard stage policy table. Callers may
// mutate the returned map freely; a fresh copy is built on every call.
func DefaultStageConfigs() map[Stage]StageConfig {
	return map[Stage]StageConfig{
		StageIssueBrief:         {RequiredRoles: []string{RolePrime}, TokenBudget: 1500, CanDegrade: true},
		StageDepartmentSpeeches: {TokenBudget: 4000, CanDegrade: false},
		StageBrainIntervention:  {RequiredRoles: []string{RoleBrain}, TokenBudget: 2000, CanDegrade: true},
		StagePrimeSummary:       {RequiredRoles: []string{RolePrime}, TokenBudget: 1500, CanDegrade: false},
		StageFollowUpDiscussion: {TokenBudget: 3000, CanDegrade: true},
		StagePrimeDecision:      {RequiredRoles: []string{RolePrime}, TokenBudget: 1500, CanDegrade: false},
	}
}

// Well-known orchestration roles. Department roles are free-form strings
// supplied per meeting; these two have fixed responsibilities in the flow.
const (
	// RolePrime chairs the meeting: issue brief, summary and final decision.
	RolePrime = "prime"
	// RoleBrain is the synthesizing role driving the intervention stage.
	RoleBrain = "brain"
)
