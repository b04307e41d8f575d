package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/councilmesh/budget"
	"github.com/hupe1980/councilmesh/core"
	"github.com/hupe1980/councilmesh/retrieval"
)

// placeholderAnalysis is the fixed fallback when the intervention role's
// structured output cannot be parsed. Parse failures are recovered locally
// and never fail the run.
const placeholderAnalysis = "The discussion was reviewed; no structured analysis is available for this round."

func (c *Controller) runIssueBrief(ctx context.Context, m *core.Meeting, ledger *budget.Ledger, cfg core.StageConfig) ([]core.Message, error) {
	digest := retrieval.NoRelevantHistory
	if c.contexts != nil {
		d, tokens, err := c.contexts.BuildPackage(retrieval.Query{
			Topic: m.Topic,
			Roles: m.Roles,
			Types: []core.RecordType{core.RecordDecision, core.RecordControversy, core.RecordLearning, core.RecordMeetingSummary},
		})
		if err != nil {
			// memory is best-effort: a broken retriever degrades to the
			// no-history marker instead of failing the meeting
			c.logger.Warn("context retrieval failed", "meeting_id", m.ID, "error", err)
		} else {
			digest = d
			ledger.Record(tokens)
		}
	}
	m.SetArtifact(core.ArtifactContext, digest)

	instruction := fmt.Sprintf(
		"Open the meeting on %q. Frame the issue for the council: what is being decided, why now, and what constraints apply.\n\nBackground from prior meetings:\n%s",
		m.Topic, digest,
	)
	content, err := c.speak(ctx, m, ledger, core.RolePrime, instruction, cfg.TokenBudget)
	if err != nil {
		return nil, err
	}

	msg := core.NewMessage(core.RolePrime, core.MessageStatement, content)
	m.AppendMessage(msg)
	m.SetArtifact(core.ArtifactIssueBrief, content)
	return []core.Message{msg}, nil
}

func (c *Controller) runSpeeches(ctx context.Context, m *core.Meeting, ledger *budget.Ledger, cfg core.StageConfig) ([]core.Message, error) {
	order := c.shuffled(c.speakingRoles(m, cfg))
	m.SetArtifact(core.ArtifactSpeakingPlan, strings.Join(order, ", "))

	var out []core.Message
	for _, role := range order {
		instruction := fmt.Sprintf("It is the %s department's turn. Give your department's perspective on the issue brief.", role)
		content, err := c.speak(ctx, m, ledger, role, instruction, cfg.TokenBudget)
		if err != nil {
			return nil, err
		}
		msg := core.NewMessage(role, core.MessagePerspective, content)
		m.AppendMessage(msg)
		out = append(out, msg)
	}
	return out, nil
}

// interventionOutput is the structured response expected from the
// synthesizing role.
type interventionOutput struct {
	Analysis      string   `json:"analysis"`
	Disagreements []string `json:"disagreements"`
	FollowUpRole  string   `json:"follow_up_role"`
	Question      string   `json:"question"`
}

func (c *Controller) runIntervention(ctx context.Context, m *core.Meeting, ledger *budget.Ledger, cfg core.StageConfig) ([]core.Message, error) {
	instruction := `Analyze the discussion so far. Respond with a single JSON object:
{"analysis": "...", "disagreements": ["..."], "follow_up_role": "", "question": ""}
Set follow_up_role and question only if exactly one role's position needs a targeted clarification.`

	content, err := c.speak(ctx, m, ledger, core.RoleBrain, instruction, cfg.TokenBudget)
	if err != nil {
		return nil, err
	}

	parsed, perr := parseIntervention(content)
	if perr != nil {
		// recovered locally with a fixed fallback, never propagated
		c.logger.Warn("intervention parse failed", "meeting_id", m.ID, "error", perr)
		msg := core.NewMessage(core.RoleBrain, core.MessageStatement, placeholderAnalysis)
		m.AppendMessage(msg)
		m.SetArtifact(core.ArtifactAnalysis, placeholderAnalysis)
		return []core.Message{msg}, nil
	}

	msg := core.NewMessage(core.RoleBrain, core.MessageStatement, parsed.Analysis)
	m.AppendMessage(msg)
	m.SetArtifact(core.ArtifactAnalysis, parsed.Analysis)
	out := []core.Message{msg}

	if len(parsed.Disagreements) > 0 {
		if raw, err := json.Marshal(parsed.Disagreements); err == nil {
			m.SetArtifact(core.ArtifactDisagreements, string(raw))
		}
	}

	if target := strings.TrimSpace(parsed.FollowUpRole); target != "" && parsed.Question != "" && c.isParticipant(m, target) {
		ask := core.NewMessage(core.RoleBrain, core.MessageElaborationRequest, parsed.Question).WithMetadata(core.MetaTarget, target)
		m.AppendMessage(ask)
		out = append(out, ask)

		answer, err := c.speak(ctx, m, ledger, target, fmt.Sprintf("Answer the clarification question directed at you: %s", parsed.Question), cfg.TokenBudget)
		if err != nil {
			return nil, err
		}
		reply := core.NewMessage(target, core.MessageResponse, answer).WithMetadata(core.MetaTarget, core.RoleBrain)
		m.AppendMessage(reply)
		out = append(out, reply)
	}
	return out, nil
}

func (c *Controller) runPrimeSummary(ctx context.Context, m *core.Meeting, ledger *budget.Ledger, cfg core.StageConfig) ([]core.Message, error) {
	instruction := "Summarize the discussion so far: each department's position, points of agreement and open disagreements. Be faithful; do not decide yet."
	content, err := c.speak(ctx, m, ledger, core.RolePrime, instruction, cfg.TokenBudget)
	if err != nil {
		return nil, err
	}
	msg := core.NewMessage(core.RolePrime, core.MessageStatement, content)
	m.AppendMessage(msg)
	m.SetArtifact(core.ArtifactSummary, content)
	return []core.Message{msg}, nil
}

func (c *Controller) runFollowUp(ctx context.Context, m *core.Meeting, ledger *budget.Ledger, cfg core.StageConfig) ([]core.Message, error) {
	order := c.shuffled(c.speakingRoles(m, cfg))

	var out []core.Message
	for _, role := range order {
		instruction := fmt.Sprintf("Given the chair's summary, does the %s department have anything to add or contest? If not, reply exactly %q.", role, c.noInput)
		content, err := c.speak(ctx, m, ledger, role, instruction, cfg.TokenBudget)
		if err != nil {
			return nil, err
		}
		// abstention: no message is appended, the token cost stays charged
		if strings.Contains(strings.ToLower(content), strings.ToLower(c.noInput)) {
			continue
		}
		msg := core.NewMessage(role, core.MessageResponse, content)
		m.AppendMessage(msg)
		out = append(out, msg)
	}
	return out, nil
}

func (c *Controller) runDecision(ctx context.Context, m *core.Meeting, ledger *budget.Ledger, cfg core.StageConfig) ([]core.Message, error) {
	instruction := "Deliver the final decision. State the decision, then a \"Reasoning:\" line, then a \"Next steps:\" list."
	if m.GetDegradation() == core.DegradationSevere {
		instruction = "The token budget is exhausted; the deliberation was cut short. " + instruction + " Decide directly from what is on record."
	}
	content, err := c.speak(ctx, m, ledger, core.RolePrime, instruction, cfg.TokenBudget)
	if err != nil {
		return nil, err
	}
	msg := core.NewMessage(core.RolePrime, core.MessageStatement, content)
	m.AppendMessage(msg)
	m.SetArtifact(core.ArtifactFinalDecision, content)
	return []core.Message{msg}, nil
}

// speak compresses the history if needed, assembles the prompt for one
// role's turn, submits it through the shared scheduler and charges the
// ledger: exact usage when the provider reports it, the local estimate
// otherwise.
func (c *Controller) speak(ctx context.Context, m *core.Meeting, ledger *budget.Ledger, role, instruction string, maxTokens int) (string, error) {
	history := m.MessagesCopy()
	if c.compressor != nil && c.compressor.NeedsCompression(history) {
		history = c.compressor.Compress(history)
		m.ReplaceMessages(history)
	}

	prompt := c.buildPrompt(m, role, history, instruction)

	var opts *core.CompletionOptions
	if maxTokens > 0 {
		opts = &core.CompletionOptions{MaxTokens: &maxTokens}
	}
	res, err := c.completions.Submit(ctx, role, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("completion for role %s: %w", role, err)
	}

	if res.Usage != nil && res.Usage.TotalTokens > 0 {
		ledger.Record(res.Usage.TotalTokens)
	} else {
		ledger.Record(core.EstimateMessageTokens(prompt) + core.EstimateTokens(res.Content))
	}
	return res.Content, nil
}

func (c *Controller) buildPrompt(m *core.Meeting, role string, history []core.Message, instruction string) []core.Message {
	systemPrompt, err := c.personas.SystemPrompt(role)
	if err != nil || systemPrompt == "" {
		systemPrompt = fmt.Sprintf("You are the %s role in a council meeting.", role)
	}
	header := fmt.Sprintf("%s\n\nMeeting topic: %s\n%s", systemPrompt, m.Topic, m.Description)

	prompt := make([]core.Message, 0, len(history)+2)
	prompt = append(prompt, core.NewSystemMessage(strings.TrimSpace(header)))
	prompt = append(prompt, history...)
	prompt = append(prompt, core.NewSystemMessage(instruction))
	return prompt
}

func (c *Controller) isParticipant(m *core.Meeting, role string) bool {
	for _, r := range m.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// parseIntervention extracts the first JSON object from the raw completion
// text. Models often wrap JSON in prose or code fences; everything outside
// the outermost braces is ignored.
func parseIntervention(raw string) (*interventionOutput, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in intervention output")
	}
	var out interventionOutput
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decode intervention output: %w", err)
	}
	if strings.TrimSpace(out.Analysis) == "" {
		return nil, fmt.Errorf("intervention output missing analysis")
	}
	return &out, nil
}
