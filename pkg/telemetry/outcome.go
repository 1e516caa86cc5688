package telemetry

// Outcome classifies how a single handler execution ended.
type Outcome string

const (
	// OutcomeSuccess is a completed execution with no surfacing signal.
	OutcomeSuccess Outcome = "success"
	// OutcomeSkipped means the execution gate filtered the body out.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeContinue is a continue signal surfacing from the node.
	OutcomeContinue Outcome = "continue"
	// OutcomeBreak is a break signal surfacing from the node.
	OutcomeBreak Outcome = "break"
	// OutcomeTerminate is a terminate signal passing through the node.
	OutcomeTerminate Outcome = "terminate"
	// OutcomeFailure is a handler failure surfacing from the node.
	OutcomeFailure Outcome = "failure"
)
