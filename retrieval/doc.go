// Package retrieval scores prior durable records against a new topic and
// assembles a token-bounded context package for prompt injection. Scoring
// is lexical and heuristic by design (substring, role overlap, type match,
// time decay) and sits behind the Scorer interface so an embedding-based
// scorer can be swapped in without touching the orchestration logic. Scan
// order across record types (decisions first, then controversies, learnings
// and prior summaries) is itself a priority signal: acceptance under the
// token cap is first-come in scan order, not globally re-ranked.
package retrieval
