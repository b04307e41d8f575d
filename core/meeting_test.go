package core

import "testing"

func TestMeetingUsageNeverDecreases(t *testing.T) {
	m := NewMeeting("topic", "", 1000, []string{"finance"})

	m.SetUsage(300)
	m.SetUsage(100)
	if got := m.GetUsage(); got != 300 {
		t.Errorf("usage = %d, want 300", got)
	}

	m.SetUsage(500)
	if got := m.GetUsage(); got != 500 {
		t.Errorf("usage = %d, want 500", got)
	}
}

func TestMeetingDegradeSevereOutranksPartial(t *testing.T) {
	m := NewMeeting("topic", "", 1000, nil)

	m.Degrade(DegradationSevere, "budget exhausted")
	m.Degrade(DegradationPartial, "skipped a stage")

	if got := m.GetDegradation(); got != DegradationSevere {
		t.Errorf("degradation = %s, want severe", got)
	}
	if len(m.DegradationReasons) != 2 {
		t.Errorf("reasons = %d, want 2", len(m.DegradationReasons))
	}
}

func TestMeetingSnapshotIsDeepCopy(t *testing.T) {
	m := NewMeeting("topic", "", 1000, []string{"finance"})
	m.AppendMessage(NewMessage("finance", MessageStatement, "original"))
	m.SetArtifact(ArtifactSummary, "summary text")

	snap := m.Snapshot()
	snap.Messages[0].Content = "mutated"
	snap.Artifacts[ArtifactSummary] = "mutated"
	snap.Roles[0] = "mutated"

	if m.MessagesCopy()[0].Content != "original" {
		t.Error("snapshot mutation leaked into message history")
	}
	if v, _ := m.Artifact(ArtifactSummary); v != "summary text" {
		t.Error("snapshot mutation leaked into artifacts")
	}
	if m.Roles[0] != "finance" {
		t.Error("snapshot mutation leaked into roles")
	}
}

func TestMeetingFailRecordsError(t *testing.T) {
	m := NewMeeting("topic", "", 1000, nil)
	m.Fail(errSentinel("boom"))

	if m.GetStatus() != StatusFailed {
		t.Errorf("status = %s, want failed", m.GetStatus())
	}
	if m.Error != "boom" {
		t.Errorf("error = %q, want boom", m.Error)
	}
}

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
