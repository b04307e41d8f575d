package retrieval

import (
	"strings"
	"time"

	"github.com/hupe1980/councilmesh/core"
)

// Relevance weights. They sum to 1.0 so a perfect match scores exactly 1.
const (
	topicWeight = 0.4
	roleWeight  = 0.3
	typeWeight  = 0.2
	decayWeight = 0.1
)

// decayWindow is the linear time-decay horizon: a record older than one
// year contributes nothing on the recency axis.
const decayWindow = 365 * 24 * time.Hour

// Query describes what a new meeting wants from durable memory. All fields
// are optional; MinRelevance falls back to DefaultMinRelevance when zero.
type Query struct {
	Topic        string
	Roles        []string
	Types        []core.RecordType
	MinRelevance float64
}

// DefaultMinRelevance is the cutoff applied when a query does not set one.
const DefaultMinRelevance = 0.6

// Scorer computes the relevance of one record for a query, in [0, 1].
type Scorer interface {
	Score(q Query, rec core.Record) float64
}

// LexicalScorer is the default heuristic scorer: topic substring match,
// role overlap, record-type match and linear time decay.
type LexicalScorer struct {
	// Now is injectable for deterministic decay in tests. Defaults to
	// time.Now.
	Now func() time.Time
}

var _ Scorer = (*LexicalScorer)(nil)

// Score implements Scorer.
func (s *LexicalScorer) Score(q Query, rec core.Record) float64 {
	score := 0.0

	if topicMatches(q.Topic, rec) {
		score += topicWeight
	}
	score += roleWeight * roleOverlap(q.Roles, recordRoles(rec))
	if typeMatches(q.Types, rec.Type) {
		score += typeWeight
	}
	score += decayWeight * s.recency(rec.Created)

	if score > 1 {
		score = 1
	}
	return score
}

func topicMatches(topic string, rec core.Record) bool {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return false
	}
	return strings.Contains(strings.ToLower(rec.Topic), topic) ||
		strings.Contains(strings.ToLower(rec.Content), topic)
}

// roleOverlap returns the fraction of query roles present in the record's
// associated roles.
func roleOverlap(queryRoles, recordRoles []string) float64 {
	if len(queryRoles) == 0 || len(recordRoles) == 0 {
		return 0
	}
	have := make(map[string]bool, len(recordRoles))
	for _, r := range recordRoles {
		have[strings.ToLower(r)] = true
	}
	matched := 0
	for _, r := range queryRoles {
		if have[strings.ToLower(r)] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryRoles))
}

// typeMatches treats an empty requested set as matching every type.
func typeMatches(types []core.RecordType, typ core.RecordType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == typ {
			return true
		}
	}
	return false
}

func (s *LexicalScorer) recency(created time.Time) float64 {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	age := now.Sub(created)
	if age <= 0 {
		return 1
	}
	if age >= decayWindow {
		return 0
	}
	return 1 - float64(age)/float64(decayWindow)
}

// recordRoles extracts the roles associated with a record from its
// metadata. Both []string and []any entries are accepted since records may
// round-trip through JSON.
func recordRoles(rec core.Record) []string {
	raw, ok := rec.Metadata["roles"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		roles := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	default:
		return nil
	}
}
