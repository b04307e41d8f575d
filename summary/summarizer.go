package summary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/councilmesh/core"
	"github.com/hupe1980/councilmesh/logging"
)

// Options configures a Summarizer.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Summarizer extracts durable records from a finished meeting transcript.
// It runs exactly once per meeting, after the flow reaches the completed
// state; the flow controller owns that invariant.
type Summarizer struct {
	store  core.RecordStore
	logger logging.Logger
}

// Result references the records written for one meeting. DecisionID is
// empty when no final-decision artifact existed.
type Result struct {
	SummaryID      string
	DecisionID     string
	ControversyIDs []string
}

// New creates a summarizer writing into the given record store.
func New(store core.RecordStore, optFns ...func(o *Options)) *Summarizer {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Summarizer{store: store, logger: opts.Logger}
}

// Generate writes the meeting summary, the optional decision record and any
// controversy records. Only store failures are errors; absent optional
// artifacts silently skip their step.
func (s *Summarizer) Generate(m *core.Meeting) (*Result, error) {
	snap := m.Snapshot()
	res := &Result{}

	summaryRec, err := s.writeSummary(snap)
	if err != nil {
		return nil, err
	}
	res.SummaryID = summaryRec

	decisionID, err := s.writeDecision(snap)
	if err != nil {
		return nil, err
	}
	res.DecisionID = decisionID

	controversyIDs, err := s.writeControversies(snap)
	if err != nil {
		return nil, err
	}
	res.ControversyIDs = controversyIDs

	s.logger.Info("meeting summaries generated",
		"meeting_id", snap.ID,
		"decision", decisionID != "",
		"controversies", len(controversyIDs),
	)
	return res, nil
}

func (s *Summarizer) writeSummary(m *core.Meeting) (string, error) {
	participants := participantRoles(m.Messages)
	stages := traversedStages(m.Messages)

	var b strings.Builder
	fmt.Fprintf(&b, "# Meeting: %s\n\n", m.Topic)
	fmt.Fprintf(&b, "Participants: %s\n", strings.Join(participants, ", "))
	fmt.Fprintf(&b, "Stages: %s\n", strings.Join(stages, " -> "))
	b.WriteString(renderByStage(m.Messages))
	if summary, ok := m.Artifact(core.ArtifactSummary); ok && summary != "" {
		fmt.Fprintf(&b, "\n## Chair summary\n%s\n", summary)
	}

	rec := core.NewRecord(core.RecordMeetingSummary, m.Topic, b.String(), map[string]any{
		"meeting_id": m.ID,
		"roles":      participants,
		"stages":     stages,
		"usage":      m.Usage,
	})
	if err := s.store.Write(rec); err != nil {
		return "", fmt.Errorf("write meeting summary: %w", err)
	}
	return rec.ID, nil
}

// actionVerbs tag a decision high-impact regardless of budget consumption.
var actionVerbs = []string{"implement", "launch", "deploy", "execute", "initiate", "roll out"}

// categoryTerms is the fixed decision taxonomy.
var categoryTerms = map[string][]string{
	"fiscal":     {"budget", "cost", "fund", "revenue", "tax", "spend"},
	"policy":     {"policy", "regulation", "law", "rule", "mandate"},
	"operations": {"operation", "process", "schedule", "infrastructure", "logistics", "pilot"},
	"personnel":  {"hire", "staff", "team", "personnel", "training"},
}

func (s *Summarizer) writeDecision(m *core.Meeting) (string, error) {
	decision, ok := m.Artifact(core.ArtifactFinalDecision)
	if !ok || strings.TrimSpace(decision) == "" {
		return "", nil
	}

	impact := "medium"
	lower := strings.ToLower(decision)
	for _, verb := range actionVerbs {
		if strings.Contains(lower, verb) {
			impact = "high"
			break
		}
	}
	if m.Budget > 0 && float64(m.Usage) > 0.8*float64(m.Budget) {
		impact = "high"
	}

	category := "general"
	for _, cat := range []string{"fiscal", "policy", "operations", "personnel"} {
		if containsAny(lower, categoryTerms[cat]) {
			category = cat
			break
		}
	}

	reasoning, nextSteps := parseDecisionSections(decision)

	rec := core.NewRecord(core.RecordDecision, m.Topic, decision, map[string]any{
		"meeting_id": m.ID,
		"roles":      participantRoles(m.Messages),
		"impact":     impact,
		"category":   category,
		"reasoning":  reasoning,
		"next_steps": nextSteps,
	})
	if err := s.store.Write(rec); err != nil {
		return "", fmt.Errorf("write decision record: %w", err)
	}
	return rec.ID, nil
}

func (s *Summarizer) writeControversies(m *core.Meeting) ([]string, error) {
	raw, ok := m.Artifact(core.ArtifactDisagreements)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var phrases []string
	if err := json.Unmarshal([]byte(raw), &phrases); err != nil {
		// best-effort: fall back to treating the artifact as one phrase
		phrases = []string{raw}
	}

	followUps := messagesAfterStage(m.Messages, core.StageFollowUpDiscussion.String())
	var ids []string
	for _, phrase := range phrases {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		rec := core.NewRecord(core.RecordControversy, m.Topic, phrase, map[string]any{
			"meeting_id": m.ID,
			"roles":      involvedRoles(phrase, m.Messages),
			"resolution": resolutionStatus(phrase, followUps),
			"importance": importance(phrase),
		})
		if err := s.store.Write(rec); err != nil {
			return nil, fmt.Errorf("write controversy record: %w", err)
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// participantRoles returns every non-system role that produced at least one
// message, in order of first appearance.
func participantRoles(msgs []core.Message) []string {
	var roles []string
	seen := map[string]bool{}
	for _, m := range msgs {
		if m.Role == core.RoleSystem || m.Type == core.MessageSystem || m.Type == core.MessageCompressed {
			continue
		}
		if !seen[m.Role] {
			seen[m.Role] = true
			roles = append(roles, m.Role)
		}
	}
	return roles
}

// traversedStages extracts the stage sequence actually executed from the
// system-originated transition messages.
func traversedStages(msgs []core.Message) []string {
	var stages []string
	for _, m := range msgs {
		if m.Type != core.MessageSystem {
			continue
		}
		if stage, ok := m.Metadata[core.MetaStage].(string); ok {
			stages = append(stages, stage)
		}
	}
	return stages
}

// renderByStage groups non-system statements under the stage they were
// spoken in.
func renderByStage(msgs []core.Message) string {
	var b strings.Builder
	current := ""
	for _, m := range msgs {
		if m.Type == core.MessageSystem {
			if stage, ok := m.Metadata[core.MetaStage].(string); ok {
				current = stage
				fmt.Fprintf(&b, "\n## %s\n", stage)
			}
			continue
		}
		if m.Type == core.MessageCompressed || current == "" {
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", m.Role, firstLine(m.Content))
	}
	return b.String()
}

// involvedRoles infers the roles party to a disagreement by word overlap
// between the phrase and each role's messages.
func involvedRoles(phrase string, msgs []core.Message) []string {
	words := significantWords(phrase)
	var roles []string
	seen := map[string]bool{}
	for _, m := range msgs {
		if m.Role == core.RoleSystem || seen[m.Role] {
			continue
		}
		content := strings.ToLower(m.Content)
		hits := 0
		for w := range words {
			if strings.Contains(content, w) {
				hits++
			}
		}
		if hits >= 2 || (len(words) > 0 && hits == len(words)) {
			seen[m.Role] = true
			roles = append(roles, m.Role)
		}
	}
	return roles
}

var (
	resolvedTerms = []string{"agree", "consensus", "resolved", "aligned", "settled"}
	partialTerms  = []string{"compromise", "partially", "some progress", "narrowed"}
)

// resolutionStatus scans follow-up-stage messages that reference the
// disagreement for resolution keywords.
func resolutionStatus(phrase string, followUps []core.Message) string {
	words := significantWords(phrase)
	status := "unresolved"
	for _, m := range followUps {
		content := strings.ToLower(m.Content)
		referenced := len(words) == 0
		for w := range words {
			if strings.Contains(content, w) {
				referenced = true
				break
			}
		}
		if !referenced {
			continue
		}
		if containsAny(content, resolvedTerms) {
			return "resolved"
		}
		if containsAny(content, partialTerms) {
			status = "partial"
		}
	}
	return status
}

func importance(phrase string) string {
	if containsAny(strings.ToLower(phrase), []string{"critical", "blocking", "major", "fundamental", "urgent"}) {
		return "high"
	}
	return "normal"
}

// messagesAfterStage returns the messages appended after the named stage's
// transition marker.
func messagesAfterStage(msgs []core.Message, stage string) []core.Message {
	for i, m := range msgs {
		if m.Type == core.MessageSystem {
			if s, ok := m.Metadata[core.MetaStage].(string); ok && s == stage {
				return msgs[i+1:]
			}
		}
	}
	return nil
}

// parseDecisionSections splits a decision text into its stated reasoning
// and next-step items, best effort.
func parseDecisionSections(decision string) (string, []string) {
	var reasoning string
	var nextSteps []string
	section := ""
	for _, line := range strings.Split(decision, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "reasoning:"):
			section = "reasoning"
			reasoning = strings.TrimSpace(trimmed[len("reasoning:"):])
		case strings.HasPrefix(lower, "next steps:"):
			section = "next"
		case section == "reasoning" && trimmed != "" && !isBullet(trimmed):
			reasoning = strings.TrimSpace(reasoning + " " + trimmed)
		case section == "next" && isBullet(trimmed):
			nextSteps = append(nextSteps, strings.TrimLeft(trimmed, "-*0123456789.) "))
		}
	}
	return reasoning, nextSteps
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") ||
		(len(line) > 1 && line[0] >= '0' && line[0] <= '9')
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func significantWords(phrase string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(phrase)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) >= 4 {
			words[w] = true
		}
	}
	return words
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
