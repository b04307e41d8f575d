// Package flow implements the meeting stage state machine. The controller
// advances one stage at a time in a fixed forward order, consulting the
// budget ledger before every stage (forcing the decision or skipping
// degradable stages under pressure), compressing history before each
// speaking turn, retrieving prior-meeting context at the opening stage and
// handing the finished transcript to the summarizer on completion. All
// generation requests go through the shared completion scheduler; the
// controller owns the meeting record exclusively while a stage executes.
package flow
