// Package budget tracks cumulative token consumption for one meeting
// against a fixed ceiling and answers the two degradation questions the
// flow controller asks before every stage: must we force a decision, and
// may this stage be skipped. Pure accounting, no I/O.
package budget
