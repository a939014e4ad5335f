package engine

import "repofleet/internal/outcome"

func okOutcome(idx int, op outcome.Op, name, detail string) outcome.Outcome {
	return outcome.Outcome{Index: idx, Op: op, Name: name, Status: outcome.StatusOK, Detail: detail}
}

func skipOutcome(idx int, op outcome.Op, name, reason string) outcome.Outcome {
	return outcome.Outcome{Index: idx, Op: op, Name: name, Status: outcome.StatusSkipped, Reason: reason}
}

func failOutcome(idx int, op outcome.Op, name, reason string, err error) outcome.Outcome {
	o := outcome.Outcome{Index: idx, Op: op, Name: name, Status: outcome.StatusFailed, Reason: reason}
	if err != nil {
		o.Detail = err.Error()
	}
	return o
}
