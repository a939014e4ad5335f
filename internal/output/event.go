package output

import "repofleet/internal/outcome"

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - run.started
// - item.result
// - run.finished
//
// JSON mode remains an aggregate of outcome.Outcome values.
type Event struct {
	Type string     `json:"type"`
	Op   outcome.Op `json:"op,omitempty"`
	*outcome.Outcome
	// Items is the planned item count on run.started. -1 means the count is
	// unknown until enumeration (changelog runs).
	Items    int              `json:"items,omitempty"`
	Summary  *outcome.Summary `json:"summary,omitempty"`
	ExitCode int              `json:"exit_code,omitempty"`
}

func eventFromOutcome(o outcome.Outcome) Event {
	return Event{Type: "item.result", Op: o.Op, Outcome: &o}
}
