package retrieval

import (
	"fmt"
	"strings"

	"github.com/hupe1980/councilmesh/core"
	"github.com/hupe1980/councilmesh/logging"
)

// scanOrder fixes the priority across record types: decisions first, then
// unresolved controversies, then lessons, then prior meeting summaries.
var scanOrder = []core.RecordType{
	core.RecordDecision,
	core.RecordControversy,
	core.RecordLearning,
	core.RecordMeetingSummary,
}

// NoRelevantHistory is the explicit digest marker used when no record
// clears the relevance cutoff. An empty result is a valid, non-error
// outcome; downstream prompts get this marker rather than an absent field.
const NoRelevantHistory = "No relevant history from prior meetings."

// Options configures a Retriever.
type Options struct {
	// TokenBudget caps the estimated token total of an assembled package.
	TokenBudget int
	// SummaryLength bounds each item's summary excerpt, in runes.
	SummaryLength int
	// Scorer computes per-record relevance. Defaults to LexicalScorer.
	Scorer Scorer
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Retriever assembles token-bounded packages of prior durable records
// relevant to a new topic.
type Retriever struct {
	store core.RecordStore
	opts  Options
}

// New creates a retriever over the given record store.
func New(store core.RecordStore, optFns ...func(o *Options)) *Retriever {
	opts := Options{
		TokenBudget:   3000,
		SummaryLength: 240,
		Scorer:        &LexicalScorer{},
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Retriever{store: store, opts: opts}
}

// Retrieve scans every durable record type in the fixed priority order and
// returns the scored items accepted under the running token budget, plus
// that running total. Acceptance stops the moment an item would push the
// total past the budget.
func (r *Retriever) Retrieve(q Query) ([]core.ContextItem, int, error) {
	cutoff := q.MinRelevance
	if cutoff == 0 {
		cutoff = DefaultMinRelevance
	}

	items := []core.ContextItem{}
	totalTokens := 0

scan:
	for _, typ := range scanOrder {
		recs, err := r.store.List(typ)
		if err != nil {
			return nil, 0, fmt.Errorf("list %s records: %w", typ, err)
		}
		for _, rec := range recs {
			score := r.opts.Scorer.Score(q, rec)
			if score < cutoff {
				continue
			}
			summary := summarize(rec.Content, r.opts.SummaryLength)
			tokens := core.EstimateTokens(summary)
			if totalTokens+tokens > r.opts.TokenBudget {
				break scan
			}
			items = append(items, core.ContextItem{
				Type:      typ,
				SourceID:  rec.ID,
				Relevance: score,
				Summary:   summary,
				Metadata:  rec.Metadata,
			})
			totalTokens += tokens
		}
	}

	r.opts.Logger.Debug("retrieval finished", "topic", q.Topic, "items", len(items), "tokens", totalTokens)
	return items, totalTokens, nil
}

// BuildPackage retrieves relevant items, formats them into a per-type
// digest for direct prompt injection and persists the assembled package as
// a durable record for auditability. Returns the digest and its token
// estimate.
func (r *Retriever) BuildPackage(q Query) (string, int, error) {
	items, totalTokens, err := r.Retrieve(q)
	if err != nil {
		return "", 0, err
	}

	digest := formatDigest(items)
	rec := core.NewRecord(core.RecordContextPackage, q.Topic, digest, map[string]any{
		"item_count":   len(items),
		"total_tokens": totalTokens,
	})
	if err := r.store.Write(rec); err != nil {
		return "", 0, fmt.Errorf("persist context package: %w", err)
	}

	return digest, core.EstimateTokens(digest), nil
}

var typeHeadings = map[core.RecordType]string{
	core.RecordDecision:       "Past decisions",
	core.RecordControversy:    "Unresolved disagreements",
	core.RecordLearning:       "Lessons",
	core.RecordMeetingSummary: "Prior meetings",
}

func formatDigest(items []core.ContextItem) string {
	if len(items) == 0 {
		return NoRelevantHistory
	}

	var b strings.Builder
	b.WriteString("## Relevant history\n")
	for _, typ := range scanOrder {
		var section []core.ContextItem
		for _, it := range items {
			if it.Type == typ {
				section = append(section, it)
			}
		}
		if len(section) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n", typeHeadings[typ])
		for _, it := range section {
			fmt.Fprintf(&b, "- (%.2f) %s\n", it.Relevance, it.Summary)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func summarize(content string, limit int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}
