package core

import "time"

// RecordType keys the small closed set of durable record kinds the memory
// subsystem reads and writes.
type RecordType string

const (
	// RecordDecision is a final decision extracted from a completed meeting.
	RecordDecision RecordType = "decision"
	// RecordControversy is an unresolved or partially resolved disagreement.
	RecordControversy RecordType = "controversy"
	// RecordMeetingSummary is the durable summary of a completed meeting.
	RecordMeetingSummary RecordType = "meeting_summary"
	// RecordLearning is a lesson carried across meetings.
	RecordLearning RecordType = "learning"
	// RecordContextPackage is the audit copy of a retrieval package
	// assembled for a new meeting.
	RecordContextPackage RecordType = "context_package"
)

// Record is one durable, append-only artifact surviving across meetings.
// Produced exactly once per meeting at completion (except context packages,
// written at retrieval time) and read by the retriever of future meetings.
type Record struct {
	ID       string         `json:"id"`
	Type     RecordType     `json:"type"`
	Topic    string         `json:"topic"`
	Created  time.Time      `json:"created"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Content  string         `json:"content"`
}

// NewRecord constructs a record with a fresh ID and UTC creation time.
func NewRecord(typ RecordType, topic, content string, metadata map[string]any) Record {
	return Record{
		ID:       NewID(),
		Type:     typ,
		Topic:    topic,
		Created:  time.Now().UTC(),
		Metadata: metadata,
		Content:  content,
	}
}

// ContextItem is a scored, summarized reference to one durable record,
// produced fresh per retrieval call and never persisted itself.
type ContextItem struct {
	Type      RecordType     `json:"type"`
	SourceID  string         `json:"source_id"`
	Relevance float64        `json:"relevance"`
	Summary   string         `json:"summary"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
