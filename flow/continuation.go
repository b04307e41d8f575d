package flow

import (
	"context"
	"strings"

	"github.com/hupe1980/councilmesh/core"
)

// Continue handles a user message arriving after the meeting completed: the
// flow re-enters at the follow-up discussion and proceeds through the
// decision stage again, refreshing the decision artifact. If a run (or a
// prior continuation) is still in progress the message is queued in the
// meeting's single continuation slot and replayed when it finishes; a
// second arrival while the slot is occupied returns ErrContinuationQueued.
// Empty or whitespace-only text is silently ignored.
func (c *Controller) Continue(ctx context.Context, m *core.Meeting, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	st := c.stateFor(m.ID)
	st.mu.Lock()
	if st.running {
		if st.pending != "" {
			st.mu.Unlock()
			return ErrContinuationQueued
		}
		st.pending = text
		st.mu.Unlock()
		return nil
	}
	if m.GetStatus() != core.StatusCompleted {
		st.mu.Unlock()
		return ErrNotContinuable
	}
	st.running = true
	st.mu.Unlock()
	defer c.drainThenRelease(ctx, m, st)

	return c.runContinuation(ctx, m, text)
}

// drainThenRelease replays queued continuations one at a time after the
// active run, then releases the meeting's run slot. Continuations queued
// against a meeting that did not complete are dropped.
func (c *Controller) drainThenRelease(ctx context.Context, m *core.Meeting, st *meetingState) {
	for {
		st.mu.Lock()
		text := st.pending
		st.pending = ""
		if text == "" || m.GetStatus() != core.StatusCompleted {
			st.running = false
			st.mu.Unlock()
			return
		}
		st.mu.Unlock()

		if err := c.runContinuation(ctx, m, text); err != nil {
			c.logger.Error("queued continuation failed", "meeting_id", m.ID, "error", err)
		}
	}
}

func (c *Controller) runContinuation(ctx context.Context, m *core.Meeting, text string) error {
	c.logger.Info("continuation started", "meeting_id", m.ID)
	m.AppendMessage(core.NewMessage("user", core.MessageQuestion, text))
	m.SetStatus(core.StatusRunning)

	stage := core.StageFollowUpDiscussion
	for !stage.Terminal() {
		res, err := c.ExecuteStage(ctx, m, stage)
		if err != nil {
			m.Fail(err)
			c.logger.Error("continuation failed", "meeting_id", m.ID, "stage", stage.String(), "error", err)
			return err
		}
		stage = res.NextStage
	}

	m.SetStatus(core.StatusCompleted)
	c.logger.Info("continuation completed", "meeting_id", m.ID)
	return nil
}
