package poller

import "time"

// Outcome classifies how an execution ended.
type Outcome string

const (
	// OutcomeSuccess means the result was applied to the state.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure means the error was applied to the state.
	OutcomeFailure Outcome = "failure"

	// OutcomeSuperseded means a later-started execution had already been
	// applied when this one completed; the result was discarded.
	OutcomeSuperseded Outcome = "superseded"

	// OutcomeStopped means the poller was stopped before this execution
	// completed; the result was discarded.
	OutcomeStopped Outcome = "stopped"
)

// Observer receives one call per completed execution. Implementations must
// be safe for concurrent use and must not block.
type Observer interface {
	ObserveExecution(resource string, outcome Outcome, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveExecution(string, Outcome, time.Duration, error) {}
