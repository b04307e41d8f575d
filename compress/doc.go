// Package compress collapses an over-long meeting history into a bounded
// representation. The earliest system messages and the most recent messages
// survive verbatim; everything strictly between is replaced by exactly one
// synthetic compressed message carrying per-role excerpts and up to a
// handful of verbatim key-point lines. This is a heuristic summarizer, not
// a lossless codec; the only hard guarantee is the accounting invariant
// that no message is silently lost from the count.
package compress
