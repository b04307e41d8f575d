package core

import (
	"time"

	"github.com/google/uuid"
)

// MessageType is the closed tag classifying a meeting message.
type MessageType string

const (
	// MessageStatement is a role's positional contribution.
	MessageStatement MessageType = "statement"
	// MessageQuestion is a question directed at the meeting or a role.
	MessageQuestion MessageType = "question"
	// MessageResponse answers a question or elaboration request.
	MessageResponse MessageType = "response"
	// MessagePerspective is a department's viewpoint during speeches.
	MessagePerspective MessageType = "perspective"
	// MessageElaborationRequest asks a specific role for clarification.
	MessageElaborationRequest MessageType = "elaboration_request"
	// MessageSystem marks orchestration messages (stage transitions,
	// degradation notices). Authored by RoleSystem.
	MessageSystem MessageType = "system"
	// MessageCompressed is the synthetic stand-in for a collapsed run of
	// history produced by the compressor.
	MessageCompressed MessageType = "compressed"
)

// RoleSystem authors orchestration messages that no persona produced.
const RoleSystem = "system"

// Metadata keys used on messages by the engine.
const (
	// MetaStage records the stage a system transition message entered.
	MetaStage = "stage"
	// MetaTarget names the role a directed question or elaboration
	// request is addressed to.
	MetaTarget = "target"
	// MetaOriginalCount is the number of messages a compressed message
	// replaces.
	MetaOriginalCount = "original_count"
	// MetaFromTime and MetaToTime bound the time span a compressed
	// message covers (RFC 3339).
	MetaFromTime = "from_time"
	MetaToTime   = "to_time"
)

// Message is one entry of a meeting's append-only conversation history.
// The only non-append mutation the engine performs is wholesale replacement
// of a contiguous run by a single MessageCompressed entry.
type Message struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Role      string         `json:"role"`
	Type      MessageType    `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage constructs a message authored by role with a fresh ID and UTC
// timestamp.
func NewMessage(role string, typ MessageType, content string) Message {
	return Message{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Role:      role,
		Type:      typ,
		Content:   content,
	}
}

// NewSystemMessage constructs an orchestration message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, MessageSystem, content)
}

// WithMetadata returns a copy of m with the key set, allocating the map on
// first use so zero-value messages stay allocation free.
func (m Message) WithMetadata(key string, value any) Message {
	md := make(map[string]any, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		md[k] = v
	}
	md[key] = value
	m.Metadata = md
	return m
}

// NewID generates a unique identifier for meetings, messages and records.
func NewID() string { return uuid.NewString() }
