package core

import (
	"sync"
	"time"
)

// MeetingStatus is the meeting lifecycle state.
type MeetingStatus string

const (
	// StatusPending marks a created meeting that has not started running.
	StatusPending MeetingStatus = "pending"
	// StatusRunning marks a meeting whose flow is currently executing.
	StatusRunning MeetingStatus = "running"
	// StatusCompleted marks a meeting that reached the completed stage.
	StatusCompleted MeetingStatus = "completed"
	// StatusFailed marks a meeting abandoned after an unrecovered error.
	// Meetings are never deleted, only marked failed.
	StatusFailed MeetingStatus = "failed"
)

// DegradationLevel records the budget-pressure policy response applied to a
// meeting. The empty value means no degradation occurred.
type DegradationLevel string

const (
	// DegradationNone is explicit absence of degradation.
	DegradationNone DegradationLevel = "none"
	// DegradationPartial means at least one skippable stage was skipped.
	DegradationPartial DegradationLevel = "partial"
	// DegradationSevere means the flow jumped straight to the decision.
	DegradationSevere DegradationLevel = "severe"
)

// Well-known artifact names written by the flow controller.
const (
	ArtifactIssueBrief    = "issue_brief"
	ArtifactSpeakingPlan  = "speaking_plan"
	ArtifactAnalysis      = "analysis"
	ArtifactDisagreements = "disagreements"
	ArtifactSummary       = "summary"
	ArtifactFinalDecision = "final_decision"
	ArtifactContext       = "context_package"
)

// Meeting is the mutable container for one deliberation run. It tracks the
// conversation history, named artifacts, budget consumption and degradation
// state. It is safe for concurrent access, but by convention the flow
// controller owns it exclusively while a stage executes; transports read a
// Snapshot after a stage completes, never during.
//
// Contract:
//   - Usage is monotonically non-decreasing
//   - Messages are append-only except compressor replacement
//   - mutations update the Updated timestamp
type Meeting struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Description string            `json:"description"`
	Status      MeetingStatus     `json:"status"`
	Budget      int               `json:"budget"`
	Usage       int               `json:"usage"`
	Roles       []string          `json:"roles"`
	Messages    []Message         `json:"messages"`
	Artifacts   map[string]string `json:"artifacts"`
	Degradation DegradationLevel  `json:"degradation,omitempty"`
	// DegradationReasons accumulates one human-readable entry per policy
	// branch taken (skip or forced decision).
	DegradationReasons []string  `json:"degradation_reasons,omitempty"`
	Error              string    `json:"error,omitempty"`
	Created            time.Time `json:"created"`
	Updated            time.Time `json:"updated"`

	mu sync.RWMutex
}

// NewMeeting creates a pending meeting for the topic with the given token
// budget and participating department roles.
func NewMeeting(topic, description string, budget int, roles []string) *Meeting {
	now := time.Now().UTC()
	return &Meeting{
		ID:          NewID(),
		Topic:       topic,
		Description: description,
		Status:      StatusPending,
		Budget:      budget,
		Degradation: DegradationNone,
		Roles:       append([]string(nil), roles...),
		Messages:    []Message{},
		Artifacts:   map[string]string{},
		Created:     now,
		Updated:     now,
	}
}

// AppendMessage adds a message to the history.
func (m *Meeting) AppendMessage(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
	m.Updated = time.Now().UTC()
}

// ReplaceMessages swaps the entire history, used by the compressor's
// wholesale replacement. The input slice is copied.
func (m *Meeting) ReplaceMessages(msgs []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = make([]Message, len(msgs))
	copy(m.Messages, msgs)
	m.Updated = time.Now().UTC()
}

// MessagesCopy returns a defensive copy of the history.
func (m *Meeting) MessagesCopy() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := make([]Message, len(m.Messages))
	copy(msgs, m.Messages)
	return msgs
}

// SetArtifact stores (or overwrites) a named artifact.
func (m *Meeting) SetArtifact(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Artifacts[name] = content
	m.Updated = time.Now().UTC()
}

// Artifact returns the named artifact and whether it exists.
func (m *Meeting) Artifact(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.Artifacts[name]
	return v, ok
}

// SetStatus transitions the lifecycle state.
func (m *Meeting) SetStatus(s MeetingStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = s
	m.Updated = time.Now().UTC()
}

// GetStatus returns the current lifecycle state.
func (m *Meeting) GetStatus() MeetingStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Status
}

// Fail marks the meeting failed recording the triggering error text.
func (m *Meeting) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Status = StatusFailed
	if err != nil {
		m.Error = err.Error()
	}
	m.Updated = time.Now().UTC()
}

// SetUsage records cumulative token consumption. Usage never decreases;
// a lower value is ignored.
func (m *Meeting) SetUsage(usage int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if usage > m.Usage {
		m.Usage = usage
		m.Updated = time.Now().UTC()
	}
}

// GetUsage returns cumulative token consumption.
func (m *Meeting) GetUsage() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Usage
}

// Degrade records a degradation level and its reason. Severe outranks
// partial; a partial report never downgrades a severe meeting.
func (m *Meeting) Degrade(level DegradationLevel, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Degradation != DegradationSevere {
		m.Degradation = level
	}
	if reason != "" {
		m.DegradationReasons = append(m.DegradationReasons, reason)
	}
	m.Updated = time.Now().UTC()
}

// GetDegradation returns the recorded degradation level.
func (m *Meeting) GetDegradation() DegradationLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Degradation
}

// Snapshot returns a deep copy safe for external observers while the flow
// keeps mutating the original.
func (m *Meeting) Snapshot() *Meeting {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := &Meeting{
		ID:          m.ID,
		Topic:       m.Topic,
		Description: m.Description,
		Status:      m.Status,
		Budget:      m.Budget,
		Usage:       m.Usage,
		Roles:       append([]string(nil), m.Roles...),
		Messages:    make([]Message, len(m.Messages)),
		Artifacts:   make(map[string]string, len(m.Artifacts)),
		Degradation: m.Degradation,
		Error:       m.Error,
		Created:     m.Created,
		Updated:     m.Updated,
	}
	copy(cp.Messages, m.Messages)
	for k, v := range m.Artifacts {
		cp.Artifacts[k] = v
	}
	cp.DegradationReasons = append([]string(nil), m.DegradationReasons...)
	return cp
}
