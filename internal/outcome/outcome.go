// Package outcome defines the per-item result model shared by the
// orchestrators and the output sinks.
package outcome

import "fmt"

// Status classifies the result of processing one work item.
type Status string

const (
	StatusOK      Status = "OK"
	StatusSkipped Status = "SKIP"
	StatusFailed  Status = "FAIL"
)

// Op identifies which orchestrator produced an outcome.
type Op string

const (
	OpFetch     Op = "fetch"
	OpChangelog Op = "changelog"
)

// Canonical outcome reasons. Reasons are short and stable so automation can
// match on them; human-oriented detail goes in Outcome.Detail.
const (
	ReasonAlreadyExists     = "already exists"
	ReasonInvalidDescriptor = "invalid descriptor"
	ReasonCloneError        = "clone error"
	ReasonSparseError       = "sparse filter error"
	ReasonCheckoutError     = "checkout error"
	ReasonNotRepository     = "not a repository"
	ReasonNoCommits         = "no commits"
	ReasonGenerationError   = "generation error"
	ReasonReadError         = "read error"
)

// Outcome is the result of attempting one unit of work against one item
// (a descriptor during fetch, a directory during changelog generation).
//
// Exactly one Outcome is produced per item per run. Outcomes are never
// mutated after creation; they are streamed to sinks as they happen and
// folded into a Summary at the end.
type Outcome struct {
	// Index is the item's position in the input order. The aggregate outcome
	// slice is ordered by Index regardless of completion order.
	Index  int    `json:"index"`
	Op     Op     `json:"op"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	// Reason is set for SKIP and FAIL outcomes (see the Reason* constants).
	Reason string `json:"reason,omitempty"`
	// Detail carries supporting information: the underlying error text for
	// failures, or an informational note for successes.
	Detail string `json:"detail,omitempty"`
}

// Summary aggregates a run's outcomes by status tag.
//
// Summary is derived, never independently mutated: Total == Succeeded +
// Skipped + Failed always holds for a Summary produced by Summarize.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Summarize folds an outcome sequence into a Summary by counting tags.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusOK:
			s.Succeeded++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// ExitCode maps a summary onto the process exit contract: 0 when nothing
// failed (skips are success-equivalent), 1 otherwise. Fatal preconditions
// never reach a Summary; the CLI reports those as exit code 2.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

func (s Summary) String() string {
	return fmt.Sprintf("%d succeeded, %d skipped, %d failed (%d total)", s.Succeeded, s.Skipped, s.Failed, s.Total)
}
