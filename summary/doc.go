// Package summary performs the post-hoc extraction step after a meeting
// completes: one durable meeting summary, a decision record when a final
// decision artifact exists, and one controversy record per disagreement
// surfaced during the intervention stage. All extraction is best-effort
// text heuristics over the transcript; missing optional pieces are skipped
// silently, never errors.
package summary
